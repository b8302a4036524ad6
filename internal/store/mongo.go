package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clan_war_bot/internal/app"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	usersCollection     = "users"
	guildsCollection    = "guilds"
	snapshotsCollection = "war_snapshots"
)

// MongoStore implements Store on MongoDB
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	guilds    *mongo.Collection
	snapshots *mongo.Collection
	now       func() time.Time
}

// OpenMongo connects to uri and verifies the connection with a ping
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Info().
		Str("database", database).
		Msg("Connected to MongoDB")

	return newMongoStore(client, client.Database(database)), nil
}

func newMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:    client,
		users:     db.Collection(usersCollection),
		guilds:    db.Collection(guildsCollection),
		snapshots: db.Collection(snapshotsCollection),
		now:       time.Now,
	}
}

// LinkPlayer links a Discord user to a player tag, replacing any previous link
func (s *MongoStore) LinkPlayer(ctx context.Context, discordID, playerTag string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: discordID}},
		linkUpdate(playerTag, s.now()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to link player: %w", err)
	}
	return nil
}

// GetPlayerTag returns the player tag linked to a Discord user
func (s *MongoStore) GetPlayerTag(ctx context.Context, discordID string) (string, error) {
	var link app.Link
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: discordID}}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
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
func (s *MongoStore) ListLinks(ctx context.Context) ([]app.Link, error) {
	cursor, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var links []app.Link
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	return links, nil
}

// SetReminderChannel sets the channel that receives war reminders for a guild
func (s *MongoStore) SetReminderChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.guilds.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: guildID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "channel_id", Value: channelID}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set reminder channel: %w", err)
	}
	return nil
}

// ListReminderChannels returns every guild with a reminder channel
func (s *MongoStore) ListReminderChannels(ctx context.Context) ([]app.ReminderChannel, error) {
	cursor, err := s.guilds.Find(ctx, bson.D{{Key: "channel_id", Value: bson.D{{Key: "$exists", Value: true}}}})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder channels: %w", err)
	}

	var channels []app.ReminderChannel
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("failed to decode reminder channels: %w", err)
	}
	return channels, nil
}

// SaveWarSnapshot appends a snapshot to the clan's history
func (s *MongoStore) SaveWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error {
	if _, err := s.snapshots.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save war snapshot: %w", err)
	}
	return nil
}

// LatestWarSnapshot returns the newest snapshot for clanTag
func (s *MongoStore) LatestWarSnapshot(ctx context.Context, clanTag string) (*app.WarSnapshot, error) {
	var snapshot app.WarSnapshot
	err := s.snapshots.FindOne(ctx,
		bson.D{{Key: "clan_tag", Value: clanTag}},
		options.FindOne().SetSort(bson.D{{Key: "taken_at", Value: -1}}),
	).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read war snapshot: %w", err)
	}
	return &snapshot, nil
}

// Close disconnects from the server
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func linkUpdate(playerTag string, linkedAt time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "player_id", Value: playerTag},
		{Key: "linked_at", Value: linkedAt},
	}}}
}
