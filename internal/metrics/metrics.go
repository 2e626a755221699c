package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trafficwatch"

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	ItemsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_fetched_total",
		Help:      "Raw candidates returned by fetch adapters.",
	}, []string{"source"})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Failed fetch calls by source.",
	}, []string{"source"})

	ItemsClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_classified_total",
		Help:      "Classified items by priority.",
	}, []string{"priority"})

	ItemsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_dropped_total",
		Help:      "Dropped items by reason.",
	}, []string{"reason"})

	Refinements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refinements_total",
		Help:      "Refinement calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Refinement cache lookups by result.",
	}, []string{"result"})

	ItemsMerged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_merged_total",
		Help:      "New items appended to the persisted store.",
	})

	StoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_items",
		Help:      "Rows in the persisted store after the last write.",
	})

	DigestsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "digests_sent_total",
		Help:      "Digest deliveries by channel and outcome.",
	}, []string{"channel", "outcome"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collect_duration_seconds",
		Help:      "Wall time of collect runs.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ItemsFetched, FetchErrors, ItemsClassified, ItemsDropped,
		Refinements, CacheLookups, ItemsMerged, StoreSize, DigestsSent, RunDuration,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Health is the run status shown on /health.
type Health struct {
	mu sync.RWMutex

	LastRunTime     time.Time
	LastRunDuration time.Duration
	LastRunAdded    int
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool
}

var Global = &Health{IsHealthy: true}

// SetLastRun records a successful run.
func (h *Health) SetLastRun(duration time.Duration, added int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRunTime = time.Now()
	h.LastRunDuration = duration
	h.LastRunAdded = added
	h.IsHealthy = true
}

func (h *Health) SetError(err string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastError = err
	h.LastErrorTime = time.Now()
	h.IsHealthy = false
}

func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.IsHealthy
}

func (h *Health) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"last_run_time":        formatTime(h.LastRunTime),
		"last_run_duration_ms": h.LastRunDuration.Milliseconds(),
		"last_run_added":       h.LastRunAdded,
		"last_error_time":      formatTime(h.LastErrorTime),
		"last_error":           h.LastError,
		"is_healthy":           h.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
