package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/store"
)

// MockStore is an in-memory store.Store
type MockStore struct {
	mutex     sync.Mutex
	links     map[string]app.Link
	channels  map[string]app.ReminderChannel
	Snapshots []app.WarSnapshot

	// Errors to return
	ListLinksError            error
	LinkPlayerError           error
	SaveWarSnapshotError      error
	ListReminderChannelsError error
	SetReminderChannelError   error
	LatestWarSnapshotError    error

	// Call tracking
	LinkPlayerCalled         bool
	SetReminderChannelCalled bool
	SaveWarSnapshotCalled    bool
	LatestWarSnapshotCalled  bool
}

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		links:    make(map[string]app.Link),
		channels: make(map[string]app.ReminderChannel),
	}
}

func (m *MockStore) LinkPlayer(ctx context.Context, discordID, playerTag string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.LinkPlayerCalled = true
	if m.LinkPlayerError != nil {
		return m.LinkPlayerError
	}
	m.links[discordID] = app.Link{DiscordID: discordID, PlayerTag: playerTag, LinkedAt: time.Now()}
	return nil
}

func (m *MockStore) GetPlayerTag(ctx context.Context, discordID string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	link, ok := m.links[discordID]
	if !ok {
		return "", store.ErrNotLinked
	}
	return link.PlayerTag, nil
}

func (m *MockStore) ListLinks(ctx context.Context) ([]app.Link, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.ListLinksError != nil {
		return nil, m.ListLinksError
	}
	links := make([]app.Link, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].DiscordID < links[j].DiscordID })
	return links, nil
}

func (m *MockStore) SetReminderChannel(ctx context.Context, guildID, channelID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.SetReminderChannelCalled = true
	if m.SetReminderChannelError != nil {
		return m.SetReminderChannelError
	}
	m.channels[guildID] = app.ReminderChannel{GuildID: guildID, ChannelID: channelID}
	return nil
}

func (m *MockStore) ListReminderChannels(ctx context.Context) ([]app.ReminderChannel, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.ListReminderChannelsError != nil {
		return nil, m.ListReminderChannelsError
	}
	channels := make([]app.ReminderChannel, 0, len(m.channels))
	for _, channel := range m.channels {
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].GuildID < channels[j].GuildID })
	return channels, nil
}

func (m *MockStore) SaveWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.SaveWarSnapshotCalled = true
	if m.SaveWarSnapshotError != nil {
		return m.SaveWarSnapshotError
	}
	m.Snapshots = append(m.Snapshots, snapshot)
	return nil
}

func (m *MockStore) LatestWarSnapshot(ctx context.Context, clanTag string) (*app.WarSnapshot, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.LatestWarSnapshotCalled = true
	if m.LatestWarSnapshotError != nil {
		return nil, m.LatestWarSnapshotError
	}
	var latest *app.WarSnapshot
	for i := range m.Snapshots {
		snap := m.Snapshots[i]
		if snap.ClanTag == clanTag && (latest == nil || snap.TakenAt.After(latest.TakenAt)) {
			latest = &snap
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (m *MockStore) Close(ctx context.Context) error {
	return nil
}

// SnapshotsFor returns the saved snapshots of one clan
func (m *MockStore) SnapshotsFor(clanTag string) []app.WarSnapshot {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []app.WarSnapshot
	for _, snap := range m.Snapshots {
		if snap.ClanTag == clanTag {
			out = append(out, snap)
		}
	}
	return out
}
