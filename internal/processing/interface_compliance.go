package processing

import (
	"clan_war_bot/internal/deployment"
	"clan_war_bot/internal/royale"
	"clan_war_bot/internal/sheets"
	"clan_war_bot/internal/store"
)

// Compile-time interface compliance checks
// These will cause compilation errors if the types don't implement the interfaces

var (
	_ royale.API       = (*royale.Client)(nil)
	_ JSONFetcher      = (*royale.Client)(nil)
	_ Fetcher          = (*FetchCoordinator)(nil)
	_ SnapshotStore    = (*store.MongoStore)(nil)
	_ SnapshotStore    = (*store.LevelStore)(nil)
	_ WarHistorySink   = (*sheets.WarHistoryWriter)(nil)
	_ sheets.SheetsAPI = (*sheets.Client)(nil)
	_ FileDeployer     = (*deployment.SSHDeployer)(nil)
)
