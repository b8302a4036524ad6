package bot

import "clan_war_bot/internal/store"

// Compile-time interface compliance checks
var (
	_ LinkStore     = (store.Store)(nil)
	_ LinkStore     = (*store.MongoStore)(nil)
	_ LinkStore     = (*store.LevelStore)(nil)
	_ ChannelLister = (*Service)(nil)
)
