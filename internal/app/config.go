package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store drivers
const (
	StoreDriverMongo   = "mongo"
	StoreDriverLevelDB = "leveldb"
)

// Config holds application configuration
type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	RoyaleAPIToken string `env:"ROYALE_API_TOKEN"`
	RoyaleAPIBase  string `env:"ROYALE_API_BASE" env-default:"https://proxy.royaleapi.dev/v1"`

	FetchConcurrency int           `env:"FETCH_CONCURRENCY" env-default:"6"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`

	StoreDriver   string `env:"STORE_DRIVER" env-default:"leveldb"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" env-default:"clanbot"`
	LevelDBPath   string `env:"LEVELDB_PATH" env-default:"./data/leveldb"`
	RedisURL      string `env:"REDIS_URL"`

	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" env-default:"credentials.json"`

	DashboardExportPath string `env:"DASHBOARD_EXPORT_PATH" env-default:"./data/dashboard.json"`
	DeployURL           string `env:"DEPLOY_URL"`
	DeployKeyPath       string `env:"DEPLOY_KEY_PATH" env-default:"deploy.pem"`
	DeployKnownHosts    string `env:"DEPLOY_KNOWN_HOSTS"`
	MetricsAddr         string `env:"METRICS_ADDR" env-default:":9090"`

	TrackedClans     []string      `env:"TRACKED_CLANS" env-separator:","`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" env-default:"12h"`

	// UpdateInterval is set from the command line, not the environment
	UpdateInterval time.Duration
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	zerolog.SetGlobalLevel(parseLogLevel(os.Getenv("LOGLEVEL"), os.Getenv("ENV") == "production"))

	// report on the .env file only once logging is configured
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found; proceeding with existing environment variables.")
	}
}

func parseLogLevel(raw string, production bool) zerolog.Level {
	levelStr := strings.ToLower(strings.TrimSpace(raw))
	switch levelStr {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	case "":
		if production {
			return zerolog.WarnLevel
		}
		return zerolog.InfoLevel
	default:
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
		return zerolog.InfoLevel
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}
	if cfg.RoyaleAPIToken == "" {
		return nil, fmt.Errorf("ROYALE_API_TOKEN environment variable is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.RoyaleAPIBase = strings.TrimRight(cfg.RoyaleAPIBase, "/")
	cfg.TrackedClans = compactTags(cfg.TrackedClans)

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable is required when STORE_DRIVER=mongo")
		}
	case StoreDriverLevelDB:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected %q or %q)", c.StoreDriver, StoreDriverMongo, StoreDriverLevelDB)
	}

	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1, got %d", c.FetchConcurrency)
	}

	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %v", c.ReminderInterval)
	}

	return nil
}

func compactTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
