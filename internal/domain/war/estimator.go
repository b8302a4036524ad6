package war

import (
	"math"
	"time"

	"clan_war_bot/internal/config"

	"github.com/rs/zerolog/log"
)

// TrainingPeriod is the non-scoring warm-up phase
const TrainingPeriod = "training"

// EstimatorConfig holds the game rules behind the expected-decks heuristic
type EstimatorConfig struct {
	DecksPerDay     int
	MaxWarDays      int
	DefaultExpected int
}

// DefaultEstimatorConfig returns the current game rules
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		DecksPerDay:     config.DecksPerDay,
		MaxWarDays:      config.MaxWarDays,
		DefaultExpected: config.DefaultExpectedDecks,
	}
}

// Ceiling is the most decks a participant can be expected to have used
func (c EstimatorConfig) Ceiling() int {
	return c.DecksPerDay * c.MaxWarDays
}

// DeckEstimator computes how many decks a participant should have used so far
type DeckEstimator struct {
	config EstimatorConfig
}

// NewDeckEstimator creates an estimator; a config without positive rules falls back to the defaults
func NewDeckEstimator(cfg EstimatorConfig) *DeckEstimator {
	if cfg.DecksPerDay <= 0 || cfg.MaxWarDays <= 0 {
		cfg = DefaultEstimatorConfig()
	}
	if cfg.DefaultExpected < 0 || cfg.DefaultExpected > cfg.Ceiling() {
		cfg.DefaultExpected = cfg.DecksPerDay
	}
	return &DeckEstimator{config: cfg}
}

var defaultEstimator = NewDeckEstimator(DefaultEstimatorConfig())

// EstimateExpectedDecks applies the default game rules to a raw current-war payload
func EstimateExpectedDecks(raw any, now time.Time) int {
	return defaultEstimator.Estimate(raw, now)
}

// Estimate returns the expected decks for a raw current-war payload.
// It never panics: a nil payload or any malformed field yields the default estimate.
func (e *DeckEstimator) Estimate(raw any, now time.Time) (expected int) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Deck estimation panicked, using default")
			expected = e.config.DefaultExpected
		}
	}()

	if raw == nil {
		return e.config.DefaultExpected
	}

	expected, err := e.estimate(raw, now)
	if err != nil {
		log.Debug().Err(err).Msg("Malformed war snapshot, using default deck estimate")
		return e.config.DefaultExpected
	}
	return expected
}

// estimate walks the branches in priority order; the first applicable one wins
func (e *DeckEstimator) estimate(raw any, now time.Time) (int, error) {
	fields, err := newSnapshotFields(raw)
	if err != nil {
		return 0, err
	}

	periodType, err := fields.periodType()
	if err != nil {
		return 0, err
	}
	if periodType == TrainingPeriod {
		return 0, nil
	}

	days, err := fields.dayDecks()
	if err != nil {
		return 0, err
	}
	if len(days) > 0 {
		activeDays := 0
		for _, decks := range days {
			if decks > 0 {
				activeDays++
			}
		}
		return e.daysToDecks(activeDays), nil
	}

	participants, err := fields.participantDecks()
	if err != nil {
		return 0, err
	}
	total, maxUsed := 0, 0
	for _, decks := range participants {
		total += decks
		if decks > maxUsed {
			maxUsed = decks
		}
	}
	if total == 0 {
		return 0, nil
	}

	// the most active participant implies at least this many days have passed
	activeDays := (maxUsed + e.config.DecksPerDay - 1) / e.config.DecksPerDay

	elapsed, known, err := elapsedDays(fields, now)
	if err != nil {
		return 0, err
	}
	if known && elapsed < activeDays {
		activeDays = elapsed
	}

	return e.daysToDecks(activeDays), nil
}

func (e *DeckEstimator) daysToDecks(days int) int {
	if days <= 0 {
		return 0
	}
	if days >= e.config.MaxWarDays {
		return e.config.Ceiling()
	}
	return days * e.config.DecksPerDay
}

// elapsedDays counts the war day we are on, from the start timestamp or else the day index.
// A started war is on day ceil(elapsed/24h), at least 1; exactly 24h in is still day 1.
func elapsedDays(fields snapshotFields, now time.Time) (int, bool, error) {
	if start := fields.startTime(); start != nil {
		seconds := now.UTC().Sub(*start).Seconds()
		if seconds < 0 {
			return 0, true, nil
		}
		days := int(math.Ceil(seconds / 86400))
		if days < 1 {
			days = 1
		}
		return days, true, nil
	}
	index, err := fields.dayIndex()
	if err != nil || index == nil {
		return 0, false, err
	}
	return *index, true, nil
}
