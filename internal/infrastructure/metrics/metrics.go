package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine counters. One instance is shared via DI; the
// registry is injectable so tests never fight over the global default.
type Metrics struct {
	Registry *prometheus.Registry

	SyncedEntities   *prometheus.CounterVec
	SkippedEntities  *prometheus.CounterVec
	SamplesPersisted prometheus.Counter
	SamplesFiltered  prometheus.Counter
	MergesCompleted  prometheus.Counter
	MergesAborted    prometheus.Counter
	UpstreamRequests *prometheus.CounterVec
	RateLimitBlocks  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		SyncedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkfan_sync_entities_total",
			Help: "Entities created or enriched per source.",
		}, []string{"source", "kind"}),
		SkippedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkfan_sync_skipped_total",
			Help: "Malformed upstream records skipped per source.",
		}, []string{"source"}),
		SamplesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkfan_samples_persisted_total",
			Help: "Telemetry samples written after delta filtering.",
		}),
		SamplesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkfan_samples_filtered_total",
			Help: "Telemetry samples dropped as non-deltas.",
		}),
		MergesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkfan_merges_completed_total",
			Help: "Duplicate pairs merged by the ghost sweep.",
		}),
		MergesAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkfan_merges_aborted_total",
			Help: "Merges rolled back by the safety check.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkfan_upstream_requests_total",
			Help: "Upstream HTTP requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		RateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkfan_rate_limit_blocks_total",
			Help: "Calls refused because a provider lock was active.",
		}, []string{"provider"}),
	}

	registry.MustRegister(
		m.SyncedEntities,
		m.SkippedEntities,
		m.SamplesPersisted,
		m.SamplesFiltered,
		m.MergesCompleted,
		m.MergesAborted,
		m.UpstreamRequests,
		m.RateLimitBlocks,
	)

	return m
}
