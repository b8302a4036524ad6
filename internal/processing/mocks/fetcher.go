package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrFetch is returned by MockFetcher for URLs without a canned payload
var ErrFetch = errors.New("no data")

// MockFetcher is a test double for processing.FetchCoordinator.
// Bodies are decoded on every call so each caller gets a private tree.
type MockFetcher struct {
	Bodies map[string]string
	Errors map[string]error

	mutex     sync.Mutex
	FetchURLs []string
	FetchTTLs map[string]time.Duration
}

// NewMockFetcher creates a new mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Bodies:    make(map[string]string),
		Errors:    make(map[string]error),
		FetchTTLs: make(map[string]time.Duration),
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, ttl time.Duration) (any, error) {
	m.mutex.Lock()
	m.FetchURLs = append(m.FetchURLs, url)
	m.FetchTTLs[url] = ttl
	err, hasErr := m.Errors[url]
	body, hasBody := m.Bodies[url]
	m.mutex.Unlock()

	if hasErr {
		return nil, err
	}
	if !hasBody {
		return nil, ErrFetch
	}

	var payload any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, ErrFetch
	}
	return payload, nil
}

// FetchCalled reports whether url was fetched
func (m *MockFetcher) FetchCalled(url string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, u := range m.FetchURLs {
		if u == url {
			return true
		}
	}
	return false
}

// TTLFor returns the ttl url was last fetched with
func (m *MockFetcher) TTLFor(url string) time.Duration {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.FetchTTLs[url]
}
