package processing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcome labels
const (
	resultOK        = "ok"
	resultTransport = "transport"
	resultStatus    = "status"
	resultParse     = "parse"
	resultCanceled  = "canceled"
)

// FetchMetrics holds the coordinator's Prometheus collectors. A nil *FetchMetrics records nothing.
type FetchMetrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Requests    *prometheus.CounterVec
	InFlight    prometheus.Gauge
	Duration    prometheus.Histogram
}

// NewFetchMetrics creates the collectors and registers them with reg when it is not nil
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	m := &FetchMetrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clanbot",
			Subsystem: "fetch",
			Name:      "cache_hits_total",
			Help:      "API lookups served from the TTL cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clanbot",
			Subsystem: "fetch",
			Name:      "cache_misses_total",
			Help:      "API lookups that required a network call.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clanbot",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Outbound API requests by outcome.",
		}, []string{"result"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clanbot",
			Subsystem: "fetch",
			Name:      "in_flight_requests",
			Help:      "Outbound API requests currently holding a permit.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clanbot",
			Subsystem: "fetch",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound API requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.CacheHits, m.CacheMisses, m.Requests, m.InFlight, m.Duration)
	}
	return m
}

func (m *FetchMetrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *FetchMetrics) cacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *FetchMetrics) inFlightInc() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *FetchMetrics) inFlightDec() {
	if m != nil {
		m.InFlight.Dec()
	}
}

func (m *FetchMetrics) request(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.Duration.Observe(elapsed.Seconds())
	}
}
