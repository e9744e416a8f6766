package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking and reminder flows. All
// observe methods are nil-safe so callers can run without a registry.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	remindersTotal    *prometheus.CounterVec
	consumptionsTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookwell",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Total booking reservation attempts",
		}, []string{"status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookwell",
			Subsystem: "reminder",
			Name:      "dispatches_total",
			Help:      "Total reminder delivery attempts",
		}, []string{"result"}),
		consumptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookwell",
			Subsystem: "credit",
			Name:      "consumptions_total",
			Help:      "Total package credit consumption attempts",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.remindersTotal, m.consumptionsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveReminder(result string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveCreditConsumption(result string) {
	if m == nil {
		return
	}
	m.consumptionsTotal.WithLabelValues(result).Inc()
}
