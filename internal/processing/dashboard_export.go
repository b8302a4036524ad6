package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DashboardExporter writes the linked-players dashboard JSON and optionally deploys it
type DashboardExporter struct {
	fetcher  Fetcher
	links    LinkLister
	deployer FileDeployer
	baseURL  string
	path     string
	now      func() time.Time
}

// ExporterOption customizes a DashboardExporter
type ExporterOption func(*DashboardExporter)

// WithDeployer uploads every export after it is written
func WithDeployer(deployer FileDeployer) ExporterOption {
	return func(e *DashboardExporter) { e.deployer = deployer }
}

// WithExporterClock replaces the clock used for the updated timestamp
func WithExporterClock(now func() time.Time) ExporterOption {
	return func(e *DashboardExporter) { e.now = now }
}

// NewDashboardExporter creates an exporter writing to path
func NewDashboardExporter(fetcher Fetcher, links LinkLister, baseURL, path string, opts ...ExporterOption) *DashboardExporter {
	e := &DashboardExporter{
		fetcher: fetcher,
		links:   links,
		baseURL: baseURL,
		path:    path,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildDashboard fetches every linked player and sorts them by trophies, unknown last
func (e *DashboardExporter) BuildDashboard(ctx context.Context) (app.DashboardJSON, error) {
	links, err := e.links.ListLinks(ctx)
	if err != nil {
		return app.DashboardJSON{}, fmt.Errorf("failed to list links: %w", err)
	}

	players := make([]app.DashboardPlayer, len(links))
	var g errgroup.Group
	g.SetLimit(config.FetchConcurrency)
	for i, link := range links {
		g.Go(func() error {
			entry := app.DashboardPlayer{DiscordID: link.DiscordID, PlayerTag: link.PlayerTag}
			player, err := fetchPlayer(ctx, e.fetcher, e.baseURL, link.PlayerTag)
			if err == nil {
				trophies := player.Trophies
				entry.Name = player.Name
				entry.Trophies = &trophies
				entry.Arena = player.Arena.Name
			} else {
				log.Debug().
					Err(err).
					Str("player_tag", link.PlayerTag).
					Msg("Exporting linked player without profile data")
			}
			players[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	sortDashboardPlayers(players)

	return app.DashboardJSON{
		Updated: e.now().UTC().Format(time.RFC3339),
		Players: players,
	}, nil
}

func sortDashboardPlayers(players []app.DashboardPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i].Trophies, players[j].Trophies
		switch {
		case a == nil && b == nil:
			return players[i].DiscordID < players[j].DiscordID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return players[i].DiscordID < players[j].DiscordID
		}
	})
}

// Export writes the dashboard to disk and deploys it when a deployer is configured
func (e *DashboardExporter) Export(ctx context.Context) error {
	dashboard, err := e.BuildDashboard(ctx)
	if err != nil {
		return err
	}

	jsonBytes, err := json.MarshalIndent(dashboard, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if dir := filepath.Dir(e.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	if err := os.WriteFile(e.path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	log.Info().
		Str("filename", e.path).
		Int("players", len(dashboard.Players)).
		Msg("Successfully exported dashboard JSON")

	if e.deployer == nil {
		log.Debug().Msg("No deployer configured - skipping remote deployment")
		return nil
	}

	remoteFilename := filepath.Base(e.path)
	if err := e.deployer.DeployFile(e.path, remoteFilename); err != nil {
		return fmt.Errorf("failed to deploy JSON file: %w", err)
	}

	log.Info().
		Str("local_file", e.path).
		Str("remote_file", remoteFilename).
		Msg("Successfully deployed dashboard JSON")

	return nil
}
