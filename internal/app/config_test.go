package app

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var configKeys = []string{
	"DISCORD_TOKEN", "ROYALE_API_TOKEN", "ROYALE_API_BASE", "FETCH_CONCURRENCY",
	"STORE_DRIVER", "MONGO_URI", "TRACKED_CLANS", "REMINDER_INTERVAL",
}

func TestLoadConfig(t *testing.T) {
	original := make(map[string]string, len(configKeys))
	for _, key := range configKeys {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			setOrUnset(key, value)
		}
	}()

	reset := func() {
		for _, key := range configKeys {
			os.Unsetenv(key)
		}
		os.Setenv("DISCORD_TOKEN", "discord_token")
		os.Setenv("ROYALE_API_TOKEN", "royale_token")
	}

	t.Run("ValidConfiguration", func(t *testing.T) {
		reset()
		os.Setenv("ROYALE_API_BASE", "https://example.test/v1/")
		os.Setenv("TRACKED_CLANS", "#ABC, ,DEF")

		config, err := LoadConfig()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if config.DiscordToken != "discord_token" {
			t.Errorf("Expected DiscordToken 'discord_token', got '%s'", config.DiscordToken)
		}

		if config.RoyaleAPIBase != "https://example.test/v1" {
			t.Errorf("Expected trailing slash trimmed, got '%s'", config.RoyaleAPIBase)
		}

		if len(config.TrackedClans) != 2 || config.TrackedClans[0] != "#ABC" || config.TrackedClans[1] != "DEF" {
			t.Errorf("Expected tracked clans [#ABC DEF], got %v", config.TrackedClans)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		reset()

		config, err := LoadConfig()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if config.FetchConcurrency != 6 {
			t.Errorf("Expected FetchConcurrency default 6, got %d", config.FetchConcurrency)
		}

		if config.StoreDriver != StoreDriverLevelDB {
			t.Errorf("Expected StoreDriver default '%s', got '%s'", StoreDriverLevelDB, config.StoreDriver)
		}

		if config.ReminderInterval != 12*time.Hour {
			t.Errorf("Expected ReminderInterval default 12h, got %v", config.ReminderInterval)
		}

		if config.RoyaleAPIBase != "https://proxy.royaleapi.dev/v1" {
			t.Errorf("Expected default API base, got '%s'", config.RoyaleAPIBase)
		}
	})

	t.Run("MissingDiscordToken", func(t *testing.T) {
		reset()
		os.Unsetenv("DISCORD_TOKEN")

		_, err := LoadConfig()
		if err == nil {
			t.Fatal("Expected error for missing DISCORD_TOKEN, got nil")
		}

		if !strings.Contains(err.Error(), "DISCORD_TOKEN") {
			t.Errorf("Expected error message to contain 'DISCORD_TOKEN', got '%s'", err.Error())
		}
	})

	t.Run("MissingRoyaleToken", func(t *testing.T) {
		reset()
		os.Unsetenv("ROYALE_API_TOKEN")

		_, err := LoadConfig()
		if err == nil || !strings.Contains(err.Error(), "ROYALE_API_TOKEN") {
			t.Errorf("Expected ROYALE_API_TOKEN error, got %v", err)
		}
	})

	t.Run("MongoRequiresURI", func(t *testing.T) {
		reset()
		os.Setenv("STORE_DRIVER", "mongo")

		_, err := LoadConfig()
		if err == nil || !strings.Contains(err.Error(), "MONGO_URI") {
			t.Errorf("Expected MONGO_URI error, got %v", err)
		}
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		reset()
		os.Setenv("STORE_DRIVER", "postgres")

		if _, err := LoadConfig(); err == nil {
			t.Error("Expected error for unknown store driver, got nil")
		}
	})

	t.Run("NonPositiveReminderInterval", func(t *testing.T) {
		for _, value := range []string{"0s", "-1h"} {
			reset()
			os.Setenv("REMINDER_INTERVAL", value)

			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), "REMINDER_INTERVAL") {
				t.Errorf("Expected REMINDER_INTERVAL error for %s, got %v", value, err)
			}
		}
	})

	t.Run("ZeroConcurrency", func(t *testing.T) {
		reset()
		os.Setenv("FETCH_CONCURRENCY", "0")

		if _, err := LoadConfig(); err == nil {
			t.Error("Expected error for zero concurrency, got nil")
		}
	})
}

func TestSetupEnvironment(t *testing.T) {
	originalENV := os.Getenv("ENV")
	originalLOGLEVEL := os.Getenv("LOGLEVEL")
	originalLevel := zerolog.GlobalLevel()

	defer func() {
		setOrUnset("ENV", originalENV)
		setOrUnset("LOGLEVEL", originalLOGLEVEL)
		zerolog.SetGlobalLevel(originalLevel)
	}()

	testCases := []struct {
		name          string
		env           string
		logLevel      string
		expectedLevel zerolog.Level
	}{
		{"ProductionDebug", "production", "debug", zerolog.DebugLevel},
		{"ProductionWarning", "production", "warning", zerolog.WarnLevel},
		{"ProductionError", "production", "error", zerolog.ErrorLevel},
		{"ProductionDisabled", "production", "disabled", zerolog.Disabled},
		{"ProductionDefault", "production", "", zerolog.WarnLevel},
		{"ProductionUnknown", "production", "unknown", zerolog.InfoLevel},
		{"DevelopmentDefault", "development", "", zerolog.InfoLevel},
		{"DevelopmentMixedCase", "", " DeBuG ", zerolog.DebugLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setOrUnset("ENV", tc.env)
			setOrUnset("LOGLEVEL", tc.logLevel)

			SetupEnvironment()

			if zerolog.GlobalLevel() != tc.expectedLevel {
				t.Errorf("Expected log level %v, got %v", tc.expectedLevel, zerolog.GlobalLevel())
			}
		})
	}
}

// setOrUnset sets an environment variable or unsets it if value is empty
func setOrUnset(key, value string) {
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
}
