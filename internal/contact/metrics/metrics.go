package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for contact resolution.
type Metrics struct {
	ContactsCreated   prometheus.Counter
	SecondariesLinked prometheus.Counter
	PrimariesMerged   prometheus.Counter
	ContactsDeleted   prometheus.Counter
	IdentifyDuration  prometheus.Histogram
	ViewCacheHits     prometheus.Counter
	ViewCacheMisses   prometheus.Counter
}

// New creates and registers all contact metrics.
func New() *Metrics {
	return &Metrics{
		ContactsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_contacts_created_total",
			Help: "Total number of primary contacts created",
		}),
		SecondariesLinked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_secondaries_linked_total",
			Help: "Total number of secondary contacts linked to a primary",
		}),
		PrimariesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_primaries_merged_total",
			Help: "Total number of primaries demoted when two identity groups merged",
		}),
		ContactsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_contacts_deleted_total",
			Help: "Total number of contacts soft-deleted, cascades included",
		}),
		IdentifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactgraph_identify_duration_seconds",
			Help:    "Duration of identify requests including the transaction",
			Buckets: prometheus.DefBuckets,
		}),
		ViewCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_view_cache_hits_total",
			Help: "Consolidation view cache hits",
		}),
		ViewCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactgraph_view_cache_misses_total",
			Help: "Consolidation view cache misses",
		}),
	}
}

func (m *Metrics) IncContactsCreated() {
	if m != nil {
		m.ContactsCreated.Inc()
	}
}

func (m *Metrics) IncSecondariesLinked() {
	if m != nil {
		m.SecondariesLinked.Inc()
	}
}

func (m *Metrics) IncPrimariesMerged() {
	if m != nil {
		m.PrimariesMerged.Inc()
	}
}

func (m *Metrics) IncContactsDeleted() {
	if m != nil {
		m.ContactsDeleted.Inc()
	}
}

func (m *Metrics) ObserveIdentifyDuration(seconds float64) {
	if m != nil {
		m.IdentifyDuration.Observe(seconds)
	}
}

func (m *Metrics) IncViewCacheHit() {
	if m != nil {
		m.ViewCacheHits.Inc()
	}
}

func (m *Metrics) IncViewCacheMiss() {
	if m != nil {
		m.ViewCacheMisses.Inc()
	}
}
