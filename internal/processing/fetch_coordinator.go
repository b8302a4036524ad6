package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clan_war_bot/internal/royale"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrNoData is the only error Fetch returns. Transport failures, non-2xx
// responses and unparseable bodies all collapse into it.
var ErrNoData = errors.New("no data")

var errEmptyPayload = errors.New("response body was null")

// FetchCoordinator wraps outbound API calls with a per-URL TTL cache and a
// bounded number of concurrent requests. One instance is shared per process.
type FetchCoordinator struct {
	api   JSONFetcher
	gate  *semaphore.Weighted
	limit int

	mutex   sync.Mutex
	entries map[string]cacheEntry

	now      func() time.Time
	coalesce bool
	group    singleflight.Group
	metrics  *FetchMetrics
	tracker  *APICallTracker
}

type cacheEntry struct {
	expiresAt time.Time
	payload   any
}

// CoordinatorOption customizes a FetchCoordinator
type CoordinatorOption func(*FetchCoordinator)

// WithClock replaces the wall clock used for expiry
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *FetchCoordinator) { c.now = now }
}

// WithCoalescing shares one in-flight request between concurrent misses on the same URL
func WithCoalescing() CoordinatorOption {
	return func(c *FetchCoordinator) { c.coalesce = true }
}

// WithMetrics records cache and request metrics
func WithMetrics(m *FetchMetrics) CoordinatorOption {
	return func(c *FetchCoordinator) { c.metrics = m }
}

// WithTracker records every network call per endpoint
func WithTracker(t *APICallTracker) CoordinatorOption {
	return func(c *FetchCoordinator) { c.tracker = t }
}

// NewFetchCoordinator creates a coordinator that allows at most maxConcurrent outbound requests
func NewFetchCoordinator(api JSONFetcher, maxConcurrent int, opts ...CoordinatorOption) *FetchCoordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	c := &FetchCoordinator{
		api:     api,
		gate:    semaphore.NewWeighted(int64(maxConcurrent)),
		limit:   maxConcurrent,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limit returns the configured number of permits
func (c *FetchCoordinator) Limit() int {
	return c.limit
}

// Fetch returns the JSON payload for url, from cache while it is younger than ttl.
// A ttl of zero always refetches. The returned value is a private copy the caller may mutate.
func (c *FetchCoordinator) Fetch(ctx context.Context, url string, ttl time.Duration) (any, error) {
	now := c.now()

	if payload, ok := c.cached(url, now); ok {
		c.metrics.cacheHit()
		log.Debug().Str("url", url).Msg("Using cached API response (API call saved)")
		return payload, nil
	}
	c.metrics.cacheMiss()

	if !c.coalesce {
		payload, err := c.fetchAndStore(ctx, url, ttl, now)
		if err != nil {
			return nil, ErrNoData
		}
		return DeepCopy(payload), nil
	}

	// The shared call must outlive any single waiter that gives up
	shared, err, _ := c.group.Do(url, func() (any, error) {
		return c.fetchAndStore(context.WithoutCancel(ctx), url, ttl, now)
	})
	if err != nil {
		return nil, ErrNoData
	}
	return DeepCopy(shared), nil
}

// cached returns a copy of a live entry; expired entries behave as misses
func (c *FetchCoordinator) cached(url string, now time.Time) (any, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[url]
	if !ok || !now.Before(entry.expiresAt) {
		return nil, false
	}
	return DeepCopy(entry.payload), true
}

// fetchAndStore performs one network call while holding a permit
func (c *FetchCoordinator) fetchAndStore(ctx context.Context, url string, ttl time.Duration, now time.Time) (any, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		c.metrics.request(resultCanceled, 0)
		log.Debug().Err(err).Str("url", url).Msg("Gave up waiting for an API permit")
		return nil, err
	}
	defer c.gate.Release(1)

	c.metrics.inFlightInc()
	started := time.Now()
	body, err := c.api.GetJSON(ctx, url)
	elapsed := time.Since(started)
	c.metrics.inFlightDec()

	if c.tracker != nil {
		c.tracker.RecordCall(EndpointName(url))
	}

	if err != nil {
		c.metrics.request(classifyFetchError(ctx, err), elapsed)
		log.Debug().Err(err).Str("url", url).Msg("API fetch failed")
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.request(resultParse, elapsed)
		log.Debug().Err(err).Str("url", url).Msg("API response was not valid JSON")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload == nil {
		c.metrics.request(resultParse, elapsed)
		log.Debug().Str("url", url).Msg("API response was an empty JSON document")
		return nil, errEmptyPayload
	}
	c.metrics.request(resultOK, elapsed)

	c.mutex.Lock()
	c.entries[url] = cacheEntry{expiresAt: now.Add(ttl), payload: DeepCopy(payload)}
	c.mutex.Unlock()

	return payload, nil
}

// CacheStats returns the number of live and expired entries
func (c *FetchCoordinator) CacheStats() CacheStats {
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	var stats CacheStats
	for _, entry := range c.entries {
		if now.Before(entry.expiresAt) {
			stats.ValidEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	stats.TotalEntries = stats.ValidEntries + stats.ExpiredEntries
	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	ValidEntries   int
	ExpiredEntries int
	TotalEntries   int
}

func classifyFetchError(ctx context.Context, err error) string {
	var statusErr *royale.StatusError
	switch {
	case errors.As(err, &statusErr):
		return resultStatus
	case ctx.Err() != nil:
		return resultCanceled
	default:
		return resultTransport
	}
}

// DeepCopy clones a JSON tree of maps, slices and scalars
func DeepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = DeepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = DeepCopy(item)
		}
		return out
	default:
		return v
	}
}
