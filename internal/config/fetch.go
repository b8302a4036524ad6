package config

import "time"

// Outbound API configuration constants
const (
	// FetchConcurrency is the default number of simultaneous outbound API requests
	FetchConcurrency  = 6
	// APIRequestTimeout bounds a single HTTP call to the game API
	APIRequestTimeout = 30 * time.Second

	// Cache lifetimes per endpoint
	CurrentRiverRaceTTL = 30 * time.Second
	RiverRaceLogTTL     = 5 * time.Minute
	ClanTTL             = 5 * time.Minute
	PlayerTTL           = time.Hour

	// ClanTagCacheTTL is how long a resolved clan tag stays in the external cache
	ClanTagCacheTTL = time.Hour
)

// War scoring constants. They encode game rules and change when the game does.
const (
	// DecksPerDay is how many decks a participant may use on one war day
	DecksPerDay          = 4
	// MaxWarDays is the number of scoring days in one war week
	MaxWarDays           = 4
	// DefaultExpectedDecks is one day's worth, used when nothing better is known
	DefaultExpectedDecks = DecksPerDay
	// MaxClanMembers is the size limit of a clan
	MaxClanMembers       = 50
)
