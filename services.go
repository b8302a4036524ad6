package main

import (
	"context"
	"fmt"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/bot"
	"clan_war_bot/internal/cache"
	"clan_war_bot/internal/deployment"
	"clan_war_bot/internal/processing"
	"clan_war_bot/internal/royale"
	"clan_war_bot/internal/sheets"
	"clan_war_bot/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// services holds everything built from the configuration
type services struct {
	royale     *royale.Client
	apiTracker *processing.APICallTracker
	registry   *prometheus.Registry
	store      store.Store
	redis      *cache.RedisClanTagCache
	tracker    *processing.WarTracker
	exporter   *processing.DashboardExporter
	bot        *bot.Service
}

func buildServices(ctx context.Context, config *app.Config) (*services, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	royaleClient := royale.NewClient(config.RoyaleAPIToken, config.HTTPTimeout)
	apiTracker := processing.NewAPICallTracker()
	fetcher := processing.NewFetchCoordinator(royaleClient, config.FetchConcurrency,
		processing.WithMetrics(processing.NewFetchMetrics(registry)),
		processing.WithTracker(apiTracker),
	)

	st, err := store.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	s := &services{
		royale:     royaleClient,
		apiTracker: apiTracker,
		registry:   registry,
		store:      st,
	}

	var clanTags cache.ClanTagCache = cache.NoopClanTagCache{}
	if config.RedisURL != "" {
		redisCache, err := cache.NewRedisClanTagCache(ctx, config.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = redisCache
		clanTags = redisCache
	}

	var trackerOpts []processing.TrackerOption
	if config.SpreadsheetID != "" {
		sheetsClient, err := sheets.NewClient(ctx, config.CredentialsFile)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		trackerOpts = append(trackerOpts, processing.WithHistory(sheets.NewWarHistoryWriter(sheetsClient, config.SpreadsheetID)))
	}
	s.tracker = processing.NewWarTracker(fetcher, st, config.RoyaleAPIBase, config.TrackedClans, trackerOpts...)

	var exporterOpts []processing.ExporterOption
	if config.DeployURL != "" {
		deployOpts := []deployment.Option{deployment.WithKeyPath(config.DeployKeyPath)}
		if config.DeployKnownHosts != "" {
			deployOpts = append(deployOpts, deployment.WithKnownHosts(config.DeployKnownHosts))
		}
		exporterOpts = append(exporterOpts, processing.WithDeployer(deployment.NewSSHDeployer(config.DeployURL, deployOpts...)))
	}
	s.exporter = processing.NewDashboardExporter(fetcher, st, config.RoyaleAPIBase, config.DashboardExportPath, exporterOpts...)

	s.bot = bot.NewService(fetcher, st, clanTags, config.RoyaleAPIBase)

	return s, nil
}

// runCycle tracks every clan and refreshes the dashboard export
func (s *services) runCycle(ctx context.Context) {
	log.Debug().Msg("Starting war tracking cycle")

	// Reset API call counter at the start of each cycle
	s.royale.ResetAPICallCount()
	s.apiTracker.ResetSession()

	if _, err := s.tracker.ProcessTrackedClans(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to track clan wars")
	}
	if err := s.exporter.Export(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to export dashboard")
	}

	s.apiTracker.LogSessionSummary(ctx)
	log.Info().
		Int64("api_calls", s.royale.GetAPICallCount()).
		Msg("Completed war tracking cycle")
}

// Close releases the store and cache connections
func (s *services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if err := s.store.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}
