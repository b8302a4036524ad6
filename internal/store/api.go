package store

import (
	"context"
	"errors"
	"fmt"

	"clan_war_bot/internal/app"
)

var (
	// ErrNotFound is returned when a requested document does not exist
	ErrNotFound = errors.New("not found")
	// ErrNotLinked is returned when a Discord user has no linked player tag
	ErrNotLinked = errors.New("discord user is not linked")
)

// Store persists account links, reminder channels and war snapshots
type Store interface {
	LinkPlayer(ctx context.Context, discordID, playerTag string) error
	GetPlayerTag(ctx context.Context, discordID string) (string, error)
	ListLinks(ctx context.Context) ([]app.Link, error)

	SetReminderChannel(ctx context.Context, guildID, channelID string) error
	ListReminderChannels(ctx context.Context) ([]app.ReminderChannel, error)

	SaveWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error
	LatestWarSnapshot(ctx context.Context, clanTag string) (*app.WarSnapshot, error)

	Close(ctx context.Context) error
}

// Open connects to the store selected by config.StoreDriver
func Open(ctx context.Context, config *app.Config) (Store, error) {
	switch config.StoreDriver {
	case app.StoreDriverMongo:
		return OpenMongo(ctx, config.MongoURI, config.MongoDatabase)
	case app.StoreDriverLevelDB:
		return OpenLevelDB(config.LevelDBPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", config.StoreDriver)
	}
}
