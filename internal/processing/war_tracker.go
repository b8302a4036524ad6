package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/config"
	"clan_war_bot/internal/domain/war"
	"clan_war_bot/internal/royale"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// WarTracker takes a war snapshot of every tracked clan on each cycle
type WarTracker struct {
	fetcher      Fetcher
	store        SnapshotStore
	history      WarHistorySink
	estimator    *war.DeckEstimator
	baseURL      string
	trackedClans []string
	workers      int
	now          func() time.Time
}

// TrackerOption customizes a WarTracker
type TrackerOption func(*WarTracker)

// WithHistory also appends every snapshot to a history sink
func WithHistory(history WarHistorySink) TrackerOption {
	return func(t *WarTracker) { t.history = history }
}

// WithEstimator replaces the default deck estimator
func WithEstimator(estimator *war.DeckEstimator) TrackerOption {
	return func(t *WarTracker) { t.estimator = estimator }
}

// WithTrackerClock replaces the wall clock used for estimates and snapshot times
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *WarTracker) { t.now = now }
}

// WithWorkers sets how many clans are processed at once
func WithWorkers(workers int) TrackerOption {
	return func(t *WarTracker) { t.workers = workers }
}

// NewWarTracker creates a tracker over the linked users' clans plus trackedClans
func NewWarTracker(fetcher Fetcher, store SnapshotStore, baseURL string, trackedClans []string, opts ...TrackerOption) *WarTracker {
	t := &WarTracker{
		fetcher:      fetcher,
		store:        store,
		estimator:    war.NewDeckEstimator(war.DefaultEstimatorConfig()),
		baseURL:      baseURL,
		trackedClans: trackedClans,
		workers:      config.FetchConcurrency,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.workers < 1 {
		t.workers = 1
	}
	if t.baseURL == "" {
		t.baseURL = royale.DefaultBaseURL
	}
	return t
}

// TrackingSummary reports the outcome of one cycle
type TrackingSummary struct {
	Clans  int
	Saved  int
	Failed int
}

// ProcessTrackedClans snapshots every tracked clan. A failing clan is logged
// and skipped; only a failure to read the links aborts the cycle.
func (t *WarTracker) ProcessTrackedClans(ctx context.Context) (TrackingSummary, error) {
	clanTags, err := t.collectClanTags(ctx)
	if err != nil {
		return TrackingSummary{}, err
	}

	summary := TrackingSummary{Clans: len(clanTags)}
	var mutex sync.Mutex

	var g errgroup.Group
	g.SetLimit(t.workers)
	for _, clanTag := range clanTags {
		g.Go(func() error {
			err := t.trackClan(ctx, clanTag)

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				summary.Failed++
				log.Warn().
					Err(err).
					Str("clan_tag", clanTag).
					Msg("Failed to track clan war")
				return nil
			}
			summary.Saved++
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("clans", summary.Clans).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Msg("Completed war tracking cycle")

	return summary, nil
}

// collectClanTags returns the configured clans followed by the clans of linked players, without duplicates
func (t *WarTracker) collectClanTags(ctx context.Context) ([]string, error) {
	links, err := t.store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	playerClans := make([]string, len(links))
	var g errgroup.Group
	g.SetLimit(t.workers)
	for i, link := range links {
		g.Go(func() error {
			player, err := fetchPlayer(ctx, t.fetcher, t.baseURL, link.PlayerTag)
			if err != nil {
				log.Debug().
					Err(err).
					Str("discord_id", link.DiscordID).
					Str("player_tag", link.PlayerTag).
					Msg("Skipping linked player without data")
				return nil
			}
			if player.Clan != nil {
				playerClans[i] = player.Clan.Tag
			}
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var clanTags []string
	for _, tag := range append(append([]string{}, t.trackedClans...), playerClans...) {
		tag = royale.NormalizeTag(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		clanTags = append(clanTags, tag)
	}
	return clanTags, nil
}

func (t *WarTracker) trackClan(ctx context.Context, clanTag string) error {
	now := t.now()

	payload, err := t.fetcher.Fetch(ctx, royale.CurrentRiverRaceURL(t.baseURL, clanTag), config.CurrentRiverRaceTTL)
	if err != nil {
		return fmt.Errorf("failed to fetch current river race: %w", err)
	}

	expected := t.estimator.Estimate(payload, now)

	var race app.RiverRace
	if err := app.DecodePayload(payload, &race); err != nil {
		return err
	}

	snapshot := war.BuildSnapshot(race, expected, now)
	if snapshot.ClanTag == "" {
		snapshot.ClanTag = clanTag
	}

	if err := t.store.SaveWarSnapshot(ctx, snapshot); err != nil {
		return err
	}

	if t.history != nil {
		if err := t.history.AppendWarSnapshot(ctx, snapshot); err != nil {
			// the snapshot is already stored; history is best-effort
			log.Warn().
				Err(err).
				Str("clan_tag", clanTag).
				Msg("Failed to append war history")
		}
	}

	log.Debug().
		Str("clan_tag", clanTag).
		Str("period_type", snapshot.PeriodType).
		Int("expected_decks", expected).
		Int("participants", len(snapshot.Participants)).
		Msg("Saved war snapshot")

	return nil
}

// fetchPlayer fetches and decodes a player profile
func fetchPlayer(ctx context.Context, fetcher Fetcher, baseURL, playerTag string) (app.Player, error) {
	var player app.Player
	payload, err := fetcher.Fetch(ctx, royale.PlayerURL(baseURL, playerTag), config.PlayerTTL)
	if err != nil {
		return player, err
	}
	if err := app.DecodePayload(payload, &player); err != nil {
		return player, err
	}
	return player, nil
}
