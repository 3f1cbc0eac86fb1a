// Package metrics exports per-run counters in the node_exporter textfile
// format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/lldpsync/pkg/reconcile"
)

const namespace = "lldpsync"

// Recorder holds the run metrics on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	outcomes    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	applied     *prometheus.CounterVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "port_outcomes_total",
			Help:      "Ports processed, by outcome status.",
		}, []string{"switch", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs, by result.",
		}, []string{"switch", "result"}),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_applied_total",
			Help:      "Configuration commands sent to the switch.",
		}, []string{"switch"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the most recent run.",
		}, []string{"switch"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful run.",
		}, []string{"switch"}),
	}
	r.registry.MustRegister(r.outcomes, r.runs, r.applied, r.duration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Result labels a finished run.
func Result(rep *reconcile.Report, err error) string {
	switch {
	case err != nil && rep != nil && rep.AppliedCommands > 0:
		return "partial"
	case err != nil:
		return "error"
	case rep.NoNeighborData:
		return "no_neighbors"
	case rep.Applied:
		return "applied"
	case rep.HasChanges():
		return "planned"
	default:
		return "in_sync"
	}
}

// Observe records one run.
func (r *Recorder) Observe(rep *reconcile.Report, err error) {
	sw := rep.Switch
	for _, s := range reconcile.Statuses {
		if n := rep.Count(s); n > 0 {
			r.outcomes.WithLabelValues(sw, string(s)).Add(float64(n))
		}
	}
	r.runs.WithLabelValues(sw, Result(rep, err)).Inc()
	if rep.AppliedCommands > 0 {
		r.applied.WithLabelValues(sw).Add(float64(rep.AppliedCommands))
	}
	r.duration.WithLabelValues(sw).Set(rep.Duration().Seconds())
	if err == nil {
		r.lastSuccess.WithLabelValues(sw).Set(float64(rep.FinishedAt.Unix()))
	}
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
