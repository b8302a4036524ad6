package mocks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockRoyaleClient is a test double for royale.Client serving canned bodies per URL
type MockRoyaleClient struct {
	// Responses to return
	Bodies map[string]string
	// Errors to return; a URL with neither body nor error fails with ErrNoBody
	Errors map[string]error

	// Delay holds every call for a while so concurrent calls overlap
	Delay time.Duration
	// Block, when set, holds every call until it is closed or the context ends
	Block chan struct{}

	mutex       sync.Mutex
	calls       map[string]int
	inFlight    int
	maxInFlight int
	callCount   int64
}

// ErrNoBody is returned for URLs without a canned response
var ErrNoBody = errors.New("mock: no body for url")

// NewMockRoyaleClient creates a new mock API client
func NewMockRoyaleClient() *MockRoyaleClient {
	return &MockRoyaleClient{
		Bodies: make(map[string]string),
		Errors: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (m *MockRoyaleClient) GetJSON(ctx context.Context, url string) ([]byte, error) {
	m.mutex.Lock()
	m.calls[url]++
	m.callCount++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mutex.Unlock()

	defer func() {
		m.mutex.Lock()
		m.inFlight--
		m.mutex.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err, ok := m.Errors[url]; ok {
		return nil, err
	}
	body, ok := m.Bodies[url]
	if !ok {
		return nil, ErrNoBody
	}
	return []byte(body), nil
}

// CallsFor returns how many times url was requested
func (m *MockRoyaleClient) CallsFor(url string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.calls[url]
}

// MaxInFlight returns the highest number of overlapping calls observed
func (m *MockRoyaleClient) MaxInFlight() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.maxInFlight
}

// InFlight returns the number of calls currently running
func (m *MockRoyaleClient) InFlight() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.inFlight
}

func (m *MockRoyaleClient) GetAPICallCount() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.callCount
}

func (m *MockRoyaleClient) ResetAPICallCount() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callCount = 0
}
