package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SchedulerMetrics tracks background job executions.
type SchedulerMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	schedulerOnce sync.Once
	schedulerInst *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler metrics collector.
func Scheduler() *SchedulerMetrics {
	schedulerOnce.Do(func() {
		schedulerInst = &SchedulerMetrics{
			runs: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cielo",
				Subsystem: "scheduler",
				Name:      "job_runs_total",
				Help:      "Total scheduler job executions.",
			}, []string{"job"}),
			errors: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cielo",
				Subsystem: "scheduler",
				Name:      "job_errors_total",
				Help:      "Total scheduler job failures.",
			}, []string{"job"}),
			duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cielo",
				Subsystem: "scheduler",
				Name:      "job_duration_seconds",
				Help:      "Scheduler job execution time.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
			}, []string{"job"}),
		}
	})
	return schedulerInst
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}
