package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clan_war_bot/internal/app"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.mongodb.org/mongo-driver/bson"
)

// Key prefixes
const (
	linkPrefix     = "link:"
	guildPrefix    = "guild:"
	snapshotPrefix = "snap:"
)

// LevelStore implements Store on an embedded LevelDB database.
// Values are BSON documents so both stores share one encoding.
type LevelStore struct {
	db  *leveldb.DB
	now func() time.Time
}

// OpenLevelDB opens or creates the database at path
func OpenLevelDB(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return NewLevelStore(db), nil
}

// NewLevelStore wraps an open database
func NewLevelStore(db *leveldb.DB) *LevelStore {
	return &LevelStore{db: db, now: time.Now}
}

// LinkPlayer links a Discord user to a player tag, replacing any previous link
func (s *LevelStore) LinkPlayer(ctx context.Context, discordID, playerTag string) error {
	link := app.Link{DiscordID: discordID, PlayerTag: playerTag, LinkedAt: s.now().UTC()}
	if err := s.put(ctx, linkPrefix+discordID, link); err != nil {
		return fmt.Errorf("failed to link player: %w", err)
	}
	return nil
}

// GetPlayerTag returns the player tag linked to a Discord user
func (s *LevelStore) GetPlayerTag(ctx context.Context, discordID string) (string, error) {
	var link app.Link
	err := s.get(ctx, linkPrefix+discordID, &link)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotLinked
	}
	if err != nil {
		return "", fmt.Errorf("failed to read link: %w", err)
	}
	if link.PlayerTag == "" {
		return "", ErrNotLinked
	}
	return link.PlayerTag, nil
}

// ListLinks returns every linked account
func (s *LevelStore) ListLinks(ctx context.Context) ([]app.Link, error) {
	var links []app.Link
	err := s.scan(ctx, linkPrefix, func(value []byte) error {
		var link app.Link
		if err := bson.Unmarshal(value, &link); err != nil {
			return err
		}
		links = append(links, link)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// SetReminderChannel sets the channel that receives war reminders for a guild
func (s *LevelStore) SetReminderChannel(ctx context.Context, guildID, channelID string) error {
	channel := app.ReminderChannel{GuildID: guildID, ChannelID: channelID}
	if err := s.put(ctx, guildPrefix+guildID, channel); err != nil {
		return fmt.Errorf("failed to set reminder channel: %w", err)
	}
	return nil
}

// ListReminderChannels returns every guild with a reminder channel
func (s *LevelStore) ListReminderChannels(ctx context.Context) ([]app.ReminderChannel, error) {
	var channels []app.ReminderChannel
	err := s.scan(ctx, guildPrefix, func(value []byte) error {
		var channel app.ReminderChannel
		if err := bson.Unmarshal(value, &channel); err != nil {
			return err
		}
		channels = append(channels, channel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder channels: %w", err)
	}
	return channels, nil
}

// SaveWarSnapshot appends a snapshot to the clan's history
func (s *LevelStore) SaveWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error {
	if err := s.put(ctx, snapshotKey(snapshot.ClanTag, snapshot.TakenAt), snapshot); err != nil {
		return fmt.Errorf("failed to save war snapshot: %w", err)
	}
	return nil
}

// LatestWarSnapshot returns the newest snapshot for clanTag
func (s *LevelStore) LatestWarSnapshot(ctx context.Context, clanTag string) (*app.WarSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it := s.db.NewIterator(util.BytesPrefix([]byte(snapshotClanPrefix(clanTag))), nil)
	defer it.Release()

	if !it.Last() {
		if err := it.Error(); err != nil {
			return nil, fmt.Errorf("failed to read war snapshot: %w", err)
		}
		return nil, ErrNotFound
	}

	var snapshot app.WarSnapshot
	if err := bson.Unmarshal(it.Value(), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode war snapshot: %w", err)
	}
	return &snapshot, nil
}

// Close closes the database
func (s *LevelStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *LevelStore) put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := bson.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), b, nil)
}

func (s *LevelStore) get(ctx context.Context, key string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, out)
}

func (s *LevelStore) scan(ctx context.Context, prefix string, fn func(value []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	it := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// snapshot keys sort by time within a clan: snap:<TAG>:<zero-padded unix nanos>
func snapshotClanPrefix(clanTag string) string {
	return snapshotPrefix + clanTag + ":"
}

func snapshotKey(clanTag string, takenAt time.Time) string {
	return fmt.Sprintf("%s%020d", snapshotClanPrefix(clanTag), takenAt.UnixNano())
}
