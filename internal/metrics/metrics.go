// Package metrics provides Prometheus metrics for nestdb
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a nestdb process. A single
// instance is typically shared across every datastore opened by the
// process; per-store labels distinguish them on each series.
type Metrics struct {
	// WAL page manager metrics
	WalAppendsTotal   *prometheus.CounterVec
	WalAppendDuration *prometheus.HistogramVec
	WalRolloversTotal *prometheus.CounterVec
	WalFlushesTotal   *prometheus.CounterVec

	// Index metrics
	IndexOpsTotal *prometheus.CounterVec

	// Datastore metrics
	MutationsTotal       *prometheus.CounterVec
	MutationDuration     *prometheus.HistogramVec
	CollectionSize       *prometheus.GaugeVec
	RecoveryRecordsTotal *prometheus.CounterVec

	// Event router metrics
	DispatchTotal *prometheus.CounterVec

	// Page processor metrics
	PageProcessRecordsTotal *prometheus.CounterVec

	// Registry is the private Prometheus registry every metric above was
	// registered against. Callers that want to expose these series (e.g.
	// behind an HTTP handler) scrape this registry rather than the global
	// default one, so that opening many datastores in a single process —
	// or in a test binary — never collides on metric names.
	Registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics against a
// fresh, private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.WalAppendsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_wal_appends_total",
			Help: "Total number of records appended to the WAL, by store and outcome",
		},
		[]string{"store", "status"},
	)

	m.WalAppendDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nestdb_wal_append_duration_seconds",
			Help:    "Duration of WAL append round trips through the page worker",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store"},
	)

	m.WalRolloversTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_wal_page_rollovers_total",
			Help: "Total number of WAL page rollovers",
		},
		[]string{"store"},
	)

	m.WalFlushesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_wal_flushes_total",
			Help: "Total number of page flush cycles (group commits)",
		},
		[]string{"store"},
	)

	m.IndexOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_index_ops_total",
			Help: "Total number of secondary index operations, by index kind and outcome",
		},
		[]string{"store", "index", "status"},
	)

	m.MutationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_mutations_total",
			Help: "Total number of insert/remove mutations against a datastore",
		},
		[]string{"store", "op", "status"},
	)

	m.MutationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nestdb_mutation_duration_seconds",
			Help:    "Duration of insert/remove mutations",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"store", "op"},
	)

	m.CollectionSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nestdb_collection_size",
			Help: "Current number of documents held by a datastore",
		},
		[]string{"store"},
	)

	m.RecoveryRecordsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_recovery_records_total",
			Help: "Total number of WAL records replayed during recovery",
		},
		[]string{"store"},
	)

	m.DispatchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_router_dispatch_total",
			Help: "Total number of event router dispatch attempts, by outcome",
		},
		[]string{"store", "status"},
	)

	m.PageProcessRecordsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestdb_pageproc_records_total",
			Help: "Total number of records rewritten by the WAL page processor",
		},
		[]string{"job", "status"},
	)

	return m
}

// RecordWalAppend records the outcome and latency of a single WAL append.
func (m *Metrics) RecordWalAppend(store string, ok bool, duration time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.WalAppendsTotal.WithLabelValues(store, status).Inc()
	m.WalAppendDuration.WithLabelValues(store).Observe(duration.Seconds())
}

// RecordMutation records the outcome and latency of an insert or remove.
func (m *Metrics) RecordMutation(store, op string, ok bool, duration time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.MutationsTotal.WithLabelValues(store, op, status).Inc()
	m.MutationDuration.WithLabelValues(store, op).Observe(duration.Seconds())
}

// RecordIndexOp records a secondary index operation outcome.
func (m *Metrics) RecordIndexOp(store, index, status string) {
	m.IndexOpsTotal.WithLabelValues(store, index, status).Inc()
}

// RecordDispatch records a router dispatch outcome.
func (m *Metrics) RecordDispatch(store, status string) {
	m.DispatchTotal.WithLabelValues(store, status).Inc()
}

// SetCollectionSize updates the collection size gauge for a store.
func (m *Metrics) SetCollectionSize(store string, size int) {
	m.CollectionSize.WithLabelValues(store).Set(float64(size))
}

// RecordPageProcessRecords records n records rewritten by a pageproc job
// (migration, backup, or vacuum) under the given outcome.
func (m *Metrics) RecordPageProcessRecords(job string, ok bool, n int) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.PageProcessRecordsTotal.WithLabelValues(job, status).Add(float64(n))
}
