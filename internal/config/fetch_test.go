package config

import (
	"testing"
	"time"
)

func TestCacheLifetimes(t *testing.T) {
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"current river race", CurrentRiverRaceTTL, 30 * time.Second},
		{"river race log", RiverRaceLogTTL, 5 * time.Minute},
		{"clan", ClanTTL, 5 * time.Minute},
		{"player", PlayerTTL, time.Hour},
		{"clan tag cache", ClanTagCacheTTL, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestWarConstants(t *testing.T) {
	if got := DecksPerDay * MaxWarDays; got != 16 {
		t.Errorf("Expected ceiling of 16 decks, got %d", got)
	}

	if DefaultExpectedDecks != DecksPerDay {
		t.Errorf("Expected default estimate to be one day's worth (%d), got %d", DecksPerDay, DefaultExpectedDecks)
	}

	if FetchConcurrency != 6 {
		t.Errorf("Expected fetch concurrency 6, got %d", FetchConcurrency)
	}
}
