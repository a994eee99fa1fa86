// Package metrics records lifecycle and selector activity. The Prometheus
// recorder is served on the field bridge's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives lifecycle observations.
type Recorder interface {
	// ObservePhase counts a phase signal delivered to the lifecycle.
	ObservePhase(phase string)
	// ObserveCommit counts a committed selection.
	ObserveCommit(route string, confirmed bool)
	// ObserveTask records a finished route, driver or hook task.
	ObserveTask(kind, name string, duration time.Duration, err error, cancelled bool)
	// ObserveDeviceFault counts a failed display or input operation.
	ObserveDeviceFault(device string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObservePhase(string) {}
func (Nop) ObserveCommit(string, bool) {}
func (Nop) ObserveTask(string, string, time.Duration, error, bool) {}
func (Nop) ObserveDeviceFault(string) {}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	phasesTotal  *prometheus.CounterVec
	commitsTotal *prometheus.CounterVec
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	faultsTotal  *prometheus.CounterVec
}

// NewPrometheus registers the autons collectors on reg. A nil reg falls back
// to the default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Prometheus{
		phasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autons_phase_signals_total",
				Help: "Phase signals delivered to the competition lifecycle",
			},
			[]string{"phase"},
		),
		commitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autons_selection_commits_total",
				Help: "Committed route selections by route and cause",
			},
			[]string{"route", "cause"},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autons_tasks_total",
				Help: "Route, driver and hook tasks by outcome",
			},
			[]string{"kind", "name", "outcome"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autons_task_duration_seconds",
				Help:    "Wall time of route, driver and hook tasks",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60, 120},
			},
			[]string{"kind", "name"},
		),
		faultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autons_device_faults_total",
				Help: "Failed display or input operations during selection",
			},
			[]string{"device"},
		),
	}
}

// ObservePhase implements Recorder.
func (p *Prometheus) ObservePhase(phase string) {
	p.phasesTotal.WithLabelValues(phase).Inc()
}

// ObserveCommit implements Recorder.
func (p *Prometheus) ObserveCommit(route string, confirmed bool) {
	cause := "confirmed"
	if !confirmed {
		cause = "fallback"
	}
	p.commitsTotal.WithLabelValues(route, cause).Inc()
}

// ObserveTask implements Recorder.
func (p *Prometheus) ObserveTask(kind, name string, duration time.Duration, err error, cancelled bool) {
	outcome := "completed"
	switch {
	case cancelled:
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	}
	p.tasksTotal.WithLabelValues(kind, name, outcome).Inc()
	p.taskDuration.WithLabelValues(kind, name).Observe(duration.Seconds())
}

// ObserveDeviceFault implements Recorder.
func (p *Prometheus) ObserveDeviceFault(device string) {
	p.faultsTotal.WithLabelValues(device).Inc()
}
