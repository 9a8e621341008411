// Package metrics records run and step metrics in a Prometheus registry
// that can be written out in the textfile collector format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "persist"

// Recorder receives step and run observations from the engine.
type Recorder interface {
	ObserveStep(duration time.Duration, outletDischarge float64)
	ObserveRun(status string, steps int)
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveStep(time.Duration, float64) {}
func (Nop) ObserveRun(string, int)              {}

// Registry is a Recorder backed by its own Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	steps        prometheus.Counter
	stepDuration prometheus.Histogram
	outlet       prometheus.Gauge
	runs         *prometheus.CounterVec
	runSteps     prometheus.Gauge
}

// NewRegistry registers the run metrics on a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "External time steps solved.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time to solve one external time step.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		outlet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outlet_discharge_cubic_metres_per_second",
			Help:      "Summed outlet reach flow at the end of the last step.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		runSteps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_steps",
			Help:      "External steps solved by the last finished run.",
		}),
	}
	r.registry.MustRegister(r.steps, r.stepDuration, r.outlet, r.runs, r.runSteps)
	return r
}

func (r *Registry) ObserveStep(duration time.Duration, outletDischarge float64) {
	r.steps.Inc()
	r.stepDuration.Observe(duration.Seconds())
	r.outlet.Set(outletDischarge)
}

func (r *Registry) ObserveRun(status string, steps int) {
	r.runs.WithLabelValues(status).Inc()
	r.runSteps.Set(float64(steps))
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile writes the current metric values to path atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
