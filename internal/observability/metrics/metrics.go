package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling engine.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	redemptionsTotal *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	slotQueryLatency prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Session booking attempts by outcome",
		}, []string{"outcome"}),
		redemptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "scheduling",
			Name:      "token_redemptions_total",
			Help:      "Booking link redemption attempts by result",
		}, []string{"result"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Session status transitions by target state and outcome",
		}, []string{"to", "outcome"}),
		slotQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wellspring",
			Subsystem: "scheduling",
			Name:      "slot_query_latency_seconds",
			Help:      "Latency of available-slot computations",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.redemptionsTotal, m.transitionsTotal, m.slotQueryLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptionsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(to string, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQueryLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotQueryLatency.Observe(seconds)
}
