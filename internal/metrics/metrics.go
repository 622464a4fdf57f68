package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bufsync"

var (
	// Guest -> host copies, labelled by whether a cycle was supplied.
	HostSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "host_syncs_total",
		Help:      "The total number of guest to host buffer synchronizations",
	}, []string{"mode"})

	// Host -> guest copies; "deferred" ones ran from a fence cycle callback.
	GuestSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guest_syncs_total",
		Help:      "The total number of host to guest buffer synchronizations",
	}, []string{"mode"})

	FenceWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fence_waits_total",
		Help:      "The total number of blocking waits on a tracked fence cycle",
	})

	ViewLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_lookups_total",
		Help:      "The total number of buffer view lookups by cache result",
	}, []string{"result"})

	ViewLockRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_lock_retries_total",
		Help:      "The total number of view lock attempts retried after the backing buffer was reassigned",
	}, []string{"op"})

	HostMemoryUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_memory_used_bytes",
		Help:      "Host buffer memory currently allocated in bytes",
	})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of traced buffer operations in seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12), // 1us to ~4s
	}, []string{"op"})
)

// Label values.
const (
	ModeImmediate = "immediate"
	ModeCycle     = "cycle"
	ModeDeferred  = "deferred"

	ResultHit  = "hit"
	ResultMiss = "miss"

	OpLock    = "lock"
	OpTryLock = "try_lock"
)
