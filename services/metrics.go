package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "supplement_program"

var (
	EnrollmentsCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "enrollments_created_total",
		Help:      "Total number of enrollments created from approval decisions",
	})

	ComplianceSubmittedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "compliance_submitted_total",
		Help:      "Compliance submissions by reported status",
	}, []string{"status"})

	MilestonesOverdueCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "milestones_marked_overdue_total",
		Help:      "Milestones transitioned from DUE to OVERDUE by the sweep",
	})

	MilestonesCompletedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "milestones_completed_total",
		Help:      "Milestones completed by screening events",
	}, []string{"milestone"})

	SuspensionTransitionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "organization_suspension_transitions_total",
		Help:      "Organization suspension flag flips",
	}, []string{"direction"})

	RemindersCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "compliance_reminders_total",
		Help:      "Compliance reminders handed to a notifier",
	}, []string{"channel", "status"})

	JobRunsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "job_runs_total",
		Help:      "Background job executions by outcome",
	}, []string{"job", "status"})

	JobDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "job_duration_seconds",
		Help:      "Background job duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

// TrackJob returns a func that records the job's duration and outcome.
func TrackJob(job string) func(status string) {
	start := time.Now()
	return func(status string) {
		JobDurationHistogram.With(prometheus.Labels{"job": job}).Observe(time.Since(start).Seconds())
		JobRunsCounter.With(prometheus.Labels{"job": job, "status": status}).Inc()
	}
}
