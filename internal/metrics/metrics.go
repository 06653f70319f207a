package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks donation lifecycle activity.
type Metrics struct {
	DonationsCreated    *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	AIValidations       *prometheus.CounterVec
	ImageDeleteFailures prometheus.Counter
	RequestConflicts    prometheus.Counter
	DonationsDeleted    prometheus.Counter
}

// New registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medishare_donations_created_total",
			Help: "Total number of donations created",
		}, []string{"item_type"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medishare_donation_status_transitions_total",
			Help: "Donation status changes by operation and target status",
		}, []string{"operation", "from", "to"}),
		AIValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medishare_ai_validations_total",
			Help: "AI validation outcomes at donation creation",
		}, []string{"item_type", "status"}),
		ImageDeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "medishare_image_delete_failures_total",
			Help: "Image deletions that failed while the record was removed",
		}),
		RequestConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "medishare_receiver_request_conflicts_total",
			Help: "Receiver requests that lost to a concurrent request",
		}),
		DonationsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "medishare_donations_deleted_total",
			Help: "Total number of donations deleted",
		}),
	}
}

func (m *Metrics) IncrementCreated(itemType string) {
	if m == nil {
		return
	}
	m.DonationsCreated.WithLabelValues(itemType).Inc()
}

func (m *Metrics) IncrementTransition(operation, from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(operation, from, to).Inc()
}

func (m *Metrics) IncrementAIValidation(itemType, status string) {
	if m == nil {
		return
	}
	m.AIValidations.WithLabelValues(itemType, status).Inc()
}

func (m *Metrics) IncrementImageDeleteFailure() {
	if m == nil {
		return
	}
	m.ImageDeleteFailures.Inc()
}

func (m *Metrics) IncrementRequestConflict() {
	if m == nil {
		return
	}
	m.RequestConflicts.Inc()
}

func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.DonationsDeleted.Inc()
}
