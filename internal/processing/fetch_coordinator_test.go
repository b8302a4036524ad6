package processing

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"clan_war_bot/internal/processing/mocks"
	"clan_war_bot/internal/royale"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testURL = "https://proxy.royaleapi.dev/v1/clans/%23ABC123/currentriverrace"

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFetchCoordinator_CacheHitAvoidsNetworkCall(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full","clan":{"fame":1200}}`
	coordinator := NewFetchCoordinator(client, 6)
	ctx := context.Background()

	first, err := coordinator.Fetch(ctx, testURL, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := coordinator.Fetch(ctx, testURL, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error on cached call, got %v", err)
	}

	if calls := client.CallsFor(testURL); calls != 1 {
		t.Errorf("Expected exactly 1 network call, got %d", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected cached payload to equal the original, got %v and %v", first, second)
	}
}

func TestFetchCoordinator_ExpiryTriggersRefetch(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full"}`
	clock := newFakeClock()
	coordinator := NewFetchCoordinator(client, 6, WithClock(clock.Now))
	ctx := context.Background()

	if _, err := coordinator.Fetch(ctx, testURL, 30*time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clock.Advance(29 * time.Second)
	if _, err := coordinator.Fetch(ctx, testURL, 30*time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if calls := client.CallsFor(testURL); calls != 1 {
		t.Errorf("Expected entry to be live before ttl, got %d calls", calls)
	}

	clock.Advance(2 * time.Second)
	if _, err := coordinator.Fetch(ctx, testURL, 30*time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if calls := client.CallsFor(testURL); calls != 2 {
		t.Errorf("Expected a refetch after ttl, got %d calls", calls)
	}
}

func TestFetchCoordinator_ZeroTTLAlwaysRefetches(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full"}`
	coordinator := NewFetchCoordinator(client, 6)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := coordinator.Fetch(ctx, testURL, 0); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if calls := client.CallsFor(testURL); calls != 3 {
		t.Errorf("Expected 3 network calls with zero ttl, got %d", calls)
	}
}

func TestFetchCoordinator_DefensiveCopy(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"clan":{"name":"Original","participants":[{"name":"Ann","decksUsed":4}]}}`
	coordinator := NewFetchCoordinator(client, 6)
	ctx := context.Background()

	first, err := coordinator.Fetch(ctx, testURL, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	clan := first.(map[string]any)["clan"].(map[string]any)
	clan["name"] = "Mutated"
	participants := clan["participants"].([]any)
	participants[0].(map[string]any)["decksUsed"] = 99.0
	clan["participants"] = append(participants, "extra")

	second, err := coordinator.Fetch(ctx, testURL, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	secondClan := second.(map[string]any)["clan"].(map[string]any)
	if secondClan["name"] != "Original" {
		t.Errorf("Expected cached name to be unchanged, got %v", secondClan["name"])
	}
	secondParticipants := secondClan["participants"].([]any)
	if len(secondParticipants) != 1 {
		t.Fatalf("Expected 1 cached participant, got %d", len(secondParticipants))
	}
	if decks := secondParticipants[0].(map[string]any)["decksUsed"]; decks != 4.0 {
		t.Errorf("Expected cached decksUsed 4, got %v", decks)
	}
	if calls := client.CallsFor(testURL); calls != 1 {
		t.Errorf("Expected second call to be served from cache, got %d calls", calls)
	}
}

func TestFetchCoordinator_ConcurrencyBound(t *testing.T) {
	const limit = 3

	client := mocks.NewMockRoyaleClient()
	client.Delay = 20 * time.Millisecond
	urls := make([]string, limit+5)
	for i := range urls {
		urls[i] = royale.CurrentRiverRaceURL(royale.DefaultBaseURL, fmt.Sprintf("CLAN%d", i))
		client.Bodies[urls[i]] = `{"state":"full"}`
	}

	coordinator := NewFetchCoordinator(client, limit)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, len(urls))
	for _, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := coordinator.Fetch(ctx, url, time.Minute); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected fetch error: %v", err)
	}
	if peak := client.MaxInFlight(); peak > limit {
		t.Errorf("Expected at most %d requests in flight, observed %d", limit, peak)
	}
	if peak := client.MaxInFlight(); peak < 1 {
		t.Errorf("Expected requests to run, observed peak %d", peak)
	}
	for _, url := range urls {
		if calls := client.CallsFor(url); calls != 1 {
			t.Errorf("Expected 1 call for %s, got %d", url, calls)
		}
	}
}

func TestFetchCoordinator_DuplicateMissesWithoutCoalescing(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full"}`
	client.Block = make(chan struct{})
	coordinator := NewFetchCoordinator(client, 6)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = coordinator.Fetch(ctx, testURL, time.Minute)
		}()
	}

	waitFor(t, "three concurrent calls", func() bool { return client.InFlight() == 3 })
	close(client.Block)
	wg.Wait()

	if calls := client.CallsFor(testURL); calls != 3 {
		t.Errorf("Expected each cold miss to issue its own call, got %d", calls)
	}
}

func TestFetchCoordinator_Coalescing(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full"}`
	client.Block = make(chan struct{})
	coordinator := NewFetchCoordinator(client, 6, WithCoalescing())
	ctx := context.Background()

	results := make([]any, 5)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = coordinator.Fetch(ctx, testURL, time.Minute)
		}()
	}

	waitFor(t, "the shared call", func() bool { return client.InFlight() == 1 })
	time.Sleep(20 * time.Millisecond)
	close(client.Block)
	wg.Wait()

	if calls := client.CallsFor(testURL); calls != 1 {
		t.Errorf("Expected concurrent misses to share one call, got %d", calls)
	}

	// every caller still gets its own copy
	results[0].(map[string]any)["state"] = "mutated"
	for i := 1; i < len(results); i++ {
		if results[i].(map[string]any)["state"] != "full" {
			t.Errorf("Result %d shares memory with result 0", i)
		}
	}
}

func TestFetchCoordinator_CoalescedCallOutlivesCanceledCaller(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	client.Bodies[testURL] = `{"state":"full"}`
	client.Block = make(chan struct{})
	coordinator := NewFetchCoordinator(client, 6, WithCoalescing())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = coordinator.Fetch(firstCtx, testURL, time.Minute)
	}()
	waitFor(t, "the shared call", func() bool { return client.InFlight() == 1 })

	var payload any
	var err error
	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)
		payload, err = coordinator.Fetch(context.Background(), testURL, time.Minute)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(client.Block)
	<-firstDone
	<-waiterDone

	if err != nil {
		t.Fatalf("Expected the waiter to get the shared result, got %v", err)
	}
	if payload.(map[string]any)["state"] != "full" {
		t.Errorf("Unexpected payload %v", payload)
	}
	if calls := client.CallsFor(testURL); calls != 1 {
		t.Errorf("Expected one shared call, got %d", calls)
	}
}

func TestFetchCoordinator_FailuresReturnNoData(t *testing.T) {
	ctx := context.Background()

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(nil)
		baseURL := server.URL
		server.Close()

		coordinator := NewFetchCoordinator(royale.NewClient("token", time.Second), 6)
		payload, err := coordinator.Fetch(ctx, royale.PlayerURL(baseURL, "ABC"), time.Minute)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
		if payload != nil {
			t.Errorf("Expected nil payload, got %v", payload)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		client := mocks.NewMockRoyaleClient()
		client.Bodies[testURL] = `{"state": "full"`
		coordinator := NewFetchCoordinator(client, 6)

		if _, err := coordinator.Fetch(ctx, testURL, time.Minute); !errors.Is(err, ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
		if _, err := coordinator.Fetch(ctx, testURL, time.Minute); !errors.Is(err, ErrNoData) {
			t.Errorf("Expected ErrNoData on retry, got %v", err)
		}
		if calls := client.CallsFor(testURL); calls != 2 {
			t.Errorf("Expected failures not to be cached, got %d calls", calls)
		}
	})

	t.Run("null body", func(t *testing.T) {
		client := mocks.NewMockRoyaleClient()
		client.Bodies[testURL] = `null`
		coordinator := NewFetchCoordinator(client, 6)

		for i := 0; i < 2; i++ {
			payload, err := coordinator.Fetch(ctx, testURL, time.Minute)
			if !errors.Is(err, ErrNoData) || payload != nil {
				t.Errorf("Expected ErrNoData for a null body, got %v, %v", payload, err)
			}
		}
		if calls := client.CallsFor(testURL); calls != 2 {
			t.Errorf("Expected null bodies not to be cached, got %d calls", calls)
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		client := mocks.NewMockRoyaleClient()
		client.Errors[testURL] = &royale.StatusError{URL: testURL, StatusCode: 404, Body: "notFound"}
		coordinator := NewFetchCoordinator(client, 6)

		_, err := coordinator.Fetch(ctx, testURL, time.Minute)
		if err != ErrNoData {
			t.Errorf("Expected the ErrNoData sentinel itself, got %v", err)
		}
	})

	t.Run("permits are released after failures", func(t *testing.T) {
		client := mocks.NewMockRoyaleClient()
		okURL := royale.PlayerURL(royale.DefaultBaseURL, "OK")
		client.Bodies[okURL] = `{"name":"ok"}`
		coordinator := NewFetchCoordinator(client, 1)

		for i := 0; i < 3; i++ {
			_, _ = coordinator.Fetch(ctx, testURL, time.Minute)
		}
		if _, err := coordinator.Fetch(ctx, okURL, time.Minute); err != nil {
			t.Errorf("Expected gate to be usable after failures, got %v", err)
		}
	})
}

func TestFetchCoordinator_CanceledWhileWaitingForPermit(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	blockedURL := royale.PlayerURL(royale.DefaultBaseURL, "SLOW")
	waitingURL := royale.PlayerURL(royale.DefaultBaseURL, "WAITING")
	client.Bodies[blockedURL] = `{"name":"slow"}`
	client.Bodies[waitingURL] = `{"name":"waiting"}`
	client.Block = make(chan struct{})

	coordinator := NewFetchCoordinator(client, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = coordinator.Fetch(context.Background(), blockedURL, time.Minute)
	}()
	waitFor(t, "the blocking call", func() bool { return client.InFlight() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := coordinator.Fetch(ctx, waitingURL, time.Minute); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData when canceled while waiting, got %v", err)
	}
	if calls := client.CallsFor(waitingURL); calls != 0 {
		t.Errorf("Expected no network call for the canceled fetch, got %d", calls)
	}

	close(client.Block)
	<-done

	if _, err := coordinator.Fetch(context.Background(), waitingURL, time.Minute); err != nil {
		t.Errorf("Expected the permit to be available again, got %v", err)
	}
}

func TestFetchCoordinator_Metrics(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	badURL := royale.PlayerURL(royale.DefaultBaseURL, "BAD")
	client.Bodies[testURL] = `{"state":"full"}`
	client.Bodies[badURL] = `not json`

	registry := prometheus.NewRegistry()
	metrics := NewFetchMetrics(registry)
	tracker := NewAPICallTracker()
	coordinator := NewFetchCoordinator(client, 6, WithMetrics(metrics), WithTracker(tracker))
	ctx := context.Background()

	_, _ = coordinator.Fetch(ctx, testURL, time.Minute)
	_, _ = coordinator.Fetch(ctx, testURL, time.Minute)
	_, _ = coordinator.Fetch(ctx, badURL, time.Minute)

	if got := testutil.ToFloat64(metrics.CacheHits); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CacheMisses); got != 2 {
		t.Errorf("Expected 2 cache misses, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Requests.WithLabelValues(resultOK)); got != 1 {
		t.Errorf("Expected 1 ok request, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Requests.WithLabelValues(resultParse)); got != 1 {
		t.Errorf("Expected 1 parse failure, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.InFlight); got != 0 {
		t.Errorf("Expected no requests in flight, got %v", got)
	}

	stats := tracker.GetSessionStats()
	if stats.CallsByEndpoint["currentriverrace"] != 1 || stats.CallsByEndpoint["players"] != 1 {
		t.Errorf("Unexpected endpoint breakdown: %v", stats.CallsByEndpoint)
	}
}

func TestFetchCoordinator_CacheStats(t *testing.T) {
	client := mocks.NewMockRoyaleClient()
	otherURL := royale.PlayerURL(royale.DefaultBaseURL, "ABC")
	client.Bodies[testURL] = `{}`
	client.Bodies[otherURL] = `{}`
	clock := newFakeClock()
	coordinator := NewFetchCoordinator(client, 6, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = coordinator.Fetch(ctx, testURL, 30*time.Second)
	_, _ = coordinator.Fetch(ctx, otherURL, time.Hour)
	clock.Advance(time.Minute)

	stats := coordinator.CacheStats()
	if stats.TotalEntries != 2 || stats.ValidEntries != 1 || stats.ExpiredEntries != 1 {
		t.Errorf("Unexpected cache stats: %+v", stats)
	}
}

func TestNewFetchCoordinator_MinimumOnePermit(t *testing.T) {
	if got := NewFetchCoordinator(mocks.NewMockRoyaleClient(), 0).Limit(); got != 1 {
		t.Errorf("Expected limit 1, got %d", got)
	}
}

func TestDeepCopyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("copy equals original", prop.ForAll(
		func(fields map[string]int, items []string) bool {
			tree := buildTree(fields, items)
			return reflect.DeepEqual(DeepCopy(tree), tree)
		},
		gen.MapOf(gen.AlphaString(), gen.Int()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("mutating the copy leaves the original intact", prop.ForAll(
		func(fields map[string]int, items []string) bool {
			original := buildTree(fields, items)
			reference := buildTree(fields, items)

			copied := DeepCopy(original).(map[string]any)
			copied["added"] = true
			nested := copied["nested"].(map[string]any)
			nested["list"] = append(nested["list"].([]any), "extra")
			for key := range nested {
				if key != "list" {
					nested[key] = "changed"
				}
			}

			return reflect.DeepEqual(original, reference)
		},
		gen.MapOf(gen.AlphaString(), gen.Int()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func buildTree(fields map[string]int, items []string) map[string]any {
	nested := map[string]any{}
	for key, value := range fields {
		nested["f_"+key] = float64(value)
	}
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = map[string]any{"name": item}
	}
	nested["list"] = list
	return map[string]any{"nested": nested, "count": float64(len(items))}
}
