// Package metrics counts reconciliation activity for one snrecon run and
// exports it in the Prometheus text format, for example to a
// node-exporter textfile collector directory.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/engine"
)

const namespace = "snrecon"

// Recorder owns a private registry and the counters registered in it.
type Recorder struct {
	registry *prometheus.Registry

	reconciliations prometheus.Counter
	serials         *prometheus.CounterVec
	changes         *prometheus.CounterVec
	assignments     prometheus.Counter
	audits          *prometheus.CounterVec
	undoFields      prometheus.Counter
}

// NewRecorder creates a Recorder with all counters registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliations computed.",
		}),
		serials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serials_total",
			Help:      "Serials classified by reconciliation, by outcome.",
		}, []string{"outcome"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_changes_total",
			Help:      "Line changes requested from the host, by kind.",
		}, []string{"kind"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serials_assigned_total",
			Help:      "Missing serials placed into line items.",
		}),
		audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Line descriptions audited, by health status.",
		}, []string{"status"}),
		undoFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_restored_fields_total",
			Help:      "Fields written back by undo.",
		}),
	}
	r.registry.MustRegister(r.reconciliations, r.serials, r.changes, r.assignments, r.audits, r.undoFields)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveReconciliation counts one result.
func (r *Recorder) ObserveReconciliation(res *engine.ReconciliationResult) {
	r.reconciliations.Inc()
	r.serials.WithLabelValues("matching").Add(float64(len(res.Matching)))
	r.serials.WithLabelValues("to_remove").Add(float64(len(res.ToRemove)))
	r.serials.WithLabelValues("missing").Add(float64(len(res.Missing)))
	r.serials.WithLabelValues("multiply_used").Add(float64(len(res.MultiplyUsed)))
}

// ObserveChanges counts change requests by kind.
func (r *Recorder) ObserveChanges(changes []engine.LineChange) {
	for _, c := range changes {
		r.changes.WithLabelValues(string(c.Kind)).Inc()
	}
}

// ObserveAssignment counts the serials placed by one commit.
func (r *Recorder) ObserveAssignment(out *engine.AssignmentOutcome) {
	r.assignments.Add(float64(len(out.Assigned)))
	r.ObserveChanges(out.Changes)
}

// ObserveAudit counts one audited line.
func (r *Recorder) ObserveAudit(status description.HealthStatus) {
	r.audits.WithLabelValues(string(status)).Inc()
}

// ObserveUndo counts restored fields.
func (r *Recorder) ObserveUndo(fields int) {
	r.undoFields.Add(float64(fields))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
