package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reset reasons reported by the context builder.
const (
	ResetDimensionMismatch = "dimension_mismatch"
	ResetCountMismatch     = "count_mismatch"
)

// Metrics holds the Prometheus collectors for one pipeline process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LessonsAdded      prometheus.Counter
	ContextHits       prometheus.Counter
	StoreResets       *prometheus.CounterVec
	EpisodesProcessed *prometheus.CounterVec
	EmbeddingDuration prometheus.Histogram
	IndexEntries      prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LessonsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_lessons_added_total",
			Help: "Lessons appended to the context index and ledger",
		}),
		ContextHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_context_hits_total",
			Help: "Related past lessons returned as context",
		}),
		StoreResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podcast_store_resets_total",
				Help: "Index/ledger pairs reset to empty, by reason",
			},
			[]string{"reason"},
		),
		EpisodesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podcast_episodes_processed_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),
		EmbeddingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "podcast_embedding_duration_seconds",
			Help:    "Latency of embedding provider batch calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		IndexEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "podcast_index_entries",
			Help: "Entries in the context index after the last update",
		}),
	}
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddLessons(n int) {
	if m == nil {
		return
	}
	m.LessonsAdded.Add(float64(n))
}

func (m *Metrics) AddContextHits(n int) {
	if m == nil {
		return
	}
	m.ContextHits.Add(float64(n))
}

func (m *Metrics) RecordReset(reason string) {
	if m == nil {
		return
	}
	m.StoreResets.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordEpisode(status string) {
	if m == nil {
		return
	}
	m.EpisodesProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveEmbedding(d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingDuration.Observe(d.Seconds())
}

func (m *Metrics) SetIndexEntries(n int) {
	if m == nil {
		return
	}
	m.IndexEntries.Set(float64(n))
}

// WriteTextfile writes the current values in the text exposition format,
// for pickup by a node-exporter textfile collector. Empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
