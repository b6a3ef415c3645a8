// Package metrics exposes Prometheus instrumentation for the retrieval
// engine: ingest/watcher activity, search latency and hit counts, and
// graph query counts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the engine registers. A nil *Metrics is
// valid and every method on it is a no-op, so instrumentation can be
// threaded through call sites unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	ingestRuns      *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec
	ingestChunks    prometheus.Counter
	watcherTicks    *prometheus.CounterVec
	watcherChanged  prometheus.Counter
	watcherRemoved  prometheus.Counter
	searchRequests  *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchResults   prometheus.Histogram
	graphQueries    *prometheus.CounterVec
	graphQueryDur   *prometheus.HistogramVec
	catalogSize     prometheus.Gauge
	merkleRecomputes prometheus.Counter
}

// New builds and registers every collector against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ingestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "coordinator",
			Name:      "ingest_runs_total",
			Help:      "Number of completed ingest passes, labeled by outcome.",
		}, []string{"outcome"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "coordinator",
			Name:      "ingest_duration_seconds",
			Help:      "Wall-clock duration of an ingest pass.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "coordinator",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks produced across all ingest passes.",
		}),
		watcherTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "watcher",
			Name:      "ticks_total",
			Help:      "Watcher poll ticks, labeled by outcome.",
		}, []string{"outcome"}),
		watcherChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "watcher",
			Name:      "files_changed_total",
			Help:      "Files detected as new or modified across all ticks.",
		}),
		watcherRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "watcher",
			Name:      "files_removed_total",
			Help:      "Files detected as removed across all ticks.",
		}),
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search DB calls, labeled by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search DB call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "search",
			Name:      "result_count",
			Help:      "Number of chunks returned per search call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		graphQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "graph",
			Name:      "queries_total",
			Help:      "Graph store Run calls, labeled by outcome.",
		}, []string{"outcome"}),
		graphQueryDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "retrieval",
			Subsystem: "graph",
			Name:      "query_duration_seconds",
			Help:      "Graph store query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "retrieval",
			Subsystem: "coordinator",
			Name:      "catalog_chunks",
			Help:      "Current number of chunks in the catalog.",
		}),
		merkleRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retrieval",
			Subsystem: "coordinator",
			Name:      "merkle_recomputes_total",
			Help:      "Number of times the Merkle root was recomputed.",
		}),
	}

	reg.MustRegister(
		m.ingestRuns, m.ingestDuration, m.ingestChunks,
		m.watcherTicks, m.watcherChanged, m.watcherRemoved,
		m.searchRequests, m.searchDuration, m.searchResults,
		m.graphQueries, m.graphQueryDur,
		m.catalogSize, m.merkleRecomputes,
	)
	return m
}

// Registry returns the registry collectors were registered against, for
// wiring into an HTTP /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveIngest(dur time.Duration, chunks int, err error) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.ingestRuns.WithLabelValues(o).Inc()
	m.ingestDuration.WithLabelValues(o).Observe(dur.Seconds())
	if err == nil {
		m.ingestChunks.Add(float64(chunks))
		m.catalogSize.Set(float64(chunks))
	}
}

func (m *Metrics) ObserveWatcherTick(changed, removed int, err error) {
	if m == nil {
		return
	}
	m.watcherTicks.WithLabelValues(outcome(err)).Inc()
	m.watcherChanged.Add(float64(changed))
	m.watcherRemoved.Add(float64(removed))
}

func (m *Metrics) ObserveSearch(dur time.Duration, results int, err error) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.searchRequests.WithLabelValues(o).Inc()
	m.searchDuration.WithLabelValues(o).Observe(dur.Seconds())
	if err == nil {
		m.searchResults.Observe(float64(results))
	}
}

func (m *Metrics) ObserveGraphQuery(dur time.Duration, err error) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.graphQueries.WithLabelValues(o).Inc()
	m.graphQueryDur.WithLabelValues(o).Observe(dur.Seconds())
}

func (m *Metrics) RecordMerkleRecompute() {
	if m == nil {
		return
	}
	m.merkleRecomputes.Inc()
}
