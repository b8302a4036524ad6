package processing

import (
	"context"
	"time"

	"clan_war_bot/internal/app"
)

// JSONFetcher defines the raw API access the FetchCoordinator wraps
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// Fetcher defines the cached, bounded fetch used by the tracker and the bot
type Fetcher interface {
	Fetch(ctx context.Context, url string, ttl time.Duration) (any, error)
}

// LinkLister defines read access to Discord-to-player links
type LinkLister interface {
	ListLinks(ctx context.Context) ([]app.Link, error)
}

// SnapshotStore defines the store methods used by WarTracker
type SnapshotStore interface {
	LinkLister
	SaveWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error
}

// WarHistorySink defines the spreadsheet history used by WarTracker
type WarHistorySink interface {
	AppendWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error
}

// FileDeployer defines the remote upload used by DashboardExporter
type FileDeployer interface {
	DeployFile(localPath, filename string) error
}
