package mocks

import (
	"context"
	"os"
	"sync"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/cache"
)

// MockHistorySink is a test double for sheets.WarHistoryWriter
type MockHistorySink struct {
	mutex sync.Mutex
	Rows  []app.WarSnapshot

	AppendError error

	AppendWarSnapshotCalled bool
}

func (m *MockHistorySink) AppendWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.AppendWarSnapshotCalled = true
	if m.AppendError != nil {
		return m.AppendError
	}
	m.Rows = append(m.Rows, snapshot)
	return nil
}

// MockDeployer is a test double for deployment.SSHDeployer
type MockDeployer struct {
	DeployError error

	DeployFileCalled bool
	LocalPath        string
	RemoteName       string
	// Content is the file as it was at upload time
	Content []byte
}

func (m *MockDeployer) DeployFile(localPath, filename string) error {
	m.DeployFileCalled = true
	m.LocalPath = localPath
	m.RemoteName = filename
	if m.DeployError != nil {
		return m.DeployError
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.Content = content
	return nil
}

// MockClanTagCache is an in-memory cache.ClanTagCache
type MockClanTagCache struct {
	mutex sync.Mutex
	Tags  map[string]string
	TTLs  map[string]time.Duration

	GetError error

	GetCalled bool
	SetCalled bool
}

// NewMockClanTagCache creates a new empty mock cache
func NewMockClanTagCache() *MockClanTagCache {
	return &MockClanTagCache{
		Tags: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockClanTagCache) Get(ctx context.Context, discordID string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.GetCalled = true
	if m.GetError != nil {
		return "", m.GetError
	}
	tag, ok := m.Tags[discordID]
	if !ok {
		return "", cache.ErrMiss
	}
	return tag, nil
}

func (m *MockClanTagCache) Set(ctx context.Context, discordID, clanTag string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.SetCalled = true
	m.Tags[discordID] = clanTag
	m.TTLs[discordID] = ttl
	return nil
}
