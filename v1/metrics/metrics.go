package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EditCounter counts processed edits by outcome.
	EditCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fedit_edits_total",
		Help: "Total number of processed edits by outcome",
	}, []string{"outcome"})
	// EditDuration observes the time spent applying an edit.
	EditDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fedit_edit_duration_seconds",
		Help:    "Latency of edit application",
		Buckets: prometheus.DefBuckets,
	})
	// LockCounter counts lease acquisition attempts by result.
	LockCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fedit_lock_attempts_total",
		Help: "Total number of lease acquisition attempts by result",
	}, []string{"result"})
	// LockHold observes how long leases were held.
	LockHold = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fedit_lock_hold_seconds",
		Help:    "Time leases were held before release",
		Buckets: prometheus.DefBuckets,
	})
	// ReleaseErrorCounter counts releases that failed or found the lease gone.
	ReleaseErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fedit_lock_release_errors_total",
		Help: "Total number of failed lease releases",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterEditMetrics registers the edit and lease metrics on the provided registry.
func RegisterEditMetrics(reg prometheus.Registerer) {
	reg.MustRegister(EditCounter, EditDuration, LockCounter, LockHold, ReleaseErrorCounter)
}
