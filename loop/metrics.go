package loop

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the loop's Prometheus collectors.
type Metrics struct {
	WorkersQueued    prometheus.Counter
	WorkersCompleted prometheus.Counter
	WorkersFailed    prometheus.Counter
	WorkersInFlight  prometheus.Gauge
	ExecuteDuration  prometheus.Histogram
	TasksPanicked    prometheus.Counter
}

// NewMetrics creates the loop collectors and registers them with reg when
// reg is non-nil. Collectors already registered on reg by another loop are
// reused, so every loop on one registry counts into the same series.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkersQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostasync_workers_queued_total",
			Help: "Total number of workers handed to the pool",
		}),
		WorkersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostasync_workers_completed_total",
			Help: "Total number of workers whose completion phase reported success",
		}),
		WorkersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostasync_workers_failed_total",
			Help: "Total number of workers whose completion phase reported an error",
		}),
		WorkersInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostasync_workers_in_flight",
			Help: "Workers queued or executing that have not completed yet",
		}),
		ExecuteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostasync_worker_execute_duration_seconds",
			Help:    "Duration of worker Execute phases in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		TasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostasync_loop_task_panics_total",
			Help: "Total number of loop tasks that panicked",
		}),
	}

	if reg != nil {
		m.WorkersQueued = register(reg, m.WorkersQueued)
		m.WorkersCompleted = register(reg, m.WorkersCompleted)
		m.WorkersFailed = register(reg, m.WorkersFailed)
		m.WorkersInFlight = register(reg, m.WorkersInFlight)
		m.ExecuteDuration = register(reg, m.ExecuteDuration)
		m.TasksPanicked = register(reg, m.TasksPanicked)
	}

	return m
}

// register adds c to reg, or returns the equivalent collector reg already
// holds. Any other registration error panics, like MustRegister.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
