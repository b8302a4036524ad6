package processing

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// APICallTracker counts network calls to the game API per endpoint
type APICallTracker struct {
	sessionStart    time.Time
	sessionCalls    int64
	totalCalls      int64
	callsByEndpoint map[string]int64
	mutex           sync.RWMutex
}

// NewAPICallTracker creates a new API call tracker
func NewAPICallTracker() *APICallTracker {
	return &APICallTracker{
		sessionStart:    time.Now(),
		callsByEndpoint: make(map[string]int64),
	}
}

// RecordCall records one network call
func (t *APICallTracker) RecordCall(endpoint string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.sessionCalls++
	t.totalCalls++
	t.callsByEndpoint[endpoint]++
}

// GetSessionStats returns API call statistics for current session
func (t *APICallTracker) GetSessionStats() APICallStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	duration := time.Since(t.sessionStart)

	endpointCopy := make(map[string]int64, len(t.callsByEndpoint))
	for k, v := range t.callsByEndpoint {
		endpointCopy[k] = v
	}

	stats := APICallStats{
		SessionCalls:    t.sessionCalls,
		TotalCalls:      t.totalCalls,
		SessionDuration: duration,
		CallsByEndpoint: endpointCopy,
	}
	if minutes := duration.Minutes(); minutes > 0 {
		stats.CallsPerMinute = float64(t.sessionCalls) / minutes
	}
	return stats
}

// ResetSession resets session counters; totals and the endpoint breakdown are kept
func (t *APICallTracker) ResetSession() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.sessionStart = time.Now()
	t.sessionCalls = 0
}

// LogSessionSummary logs a summary of API usage for the session
func (t *APICallTracker) LogSessionSummary(ctx context.Context) {
	stats := t.GetSessionStats()

	logEvent := log.Info().
		Int64("session_calls", stats.SessionCalls).
		Int64("total_calls", stats.TotalCalls).
		Float64("calls_per_minute", stats.CallsPerMinute).
		Dur("session_duration", stats.SessionDuration)

	for endpoint, count := range stats.CallsByEndpoint {
		logEvent = logEvent.Int64(endpoint+"_calls", count)
	}

	logEvent.Msg("API call session summary")
}

// APICallStats represents API call statistics
type APICallStats struct {
	SessionCalls    int64
	TotalCalls      int64
	SessionDuration time.Duration
	CallsByEndpoint map[string]int64
	CallsPerMinute  float64
}

// EndpointName reduces an API URL to its resource name, dropping tags and query
// ("/v1/clans/%23ABC/currentriverrace" becomes "currentriverrace").
func EndpointName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		segment := segments[i]
		if segment == "" || strings.HasPrefix(segment, "#") {
			continue
		}
		return segment
	}
	return "unknown"
}
