package metrics

import "github.com/prometheus/client_golang/prometheus"

// CalendarMetrics exposes counters/histograms for the view pipeline.
type CalendarMetrics struct {
	assembleLatency *prometheus.HistogramVec
	fetchFailures   *prometheus.CounterVec
	cacheOutcomes   *prometheus.CounterVec
	staleDiscards   prometheus.Counter
}

func NewCalendarMetrics(reg prometheus.Registerer) *CalendarMetrics {
	m := &CalendarMetrics{
		assembleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telesched",
			Subsystem: "calendar",
			Name:      "assemble_latency_seconds",
			Help:      "Latency of a full fetch+reconcile+assemble pass",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telesched",
			Subsystem: "calendar",
			Name:      "fetch_failures_total",
			Help:      "Failed source fetches by data source",
		}, []string{"source"}),
		cacheOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telesched",
			Subsystem: "calendar",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache hits and misses",
		}, []string{"outcome"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telesched",
			Subsystem: "calendar",
			Name:      "stale_snapshots_discarded_total",
			Help:      "Snapshots dropped because a newer fetch cycle superseded them",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.assembleLatency, m.fetchFailures, m.cacheOutcomes, m.staleDiscards)
	return m
}

func (m *CalendarMetrics) ObserveAssemble(view string, seconds float64) {
	if m == nil {
		return
	}
	m.assembleLatency.WithLabelValues(view).Observe(seconds)
}

func (m *CalendarMetrics) ObserveFetchFailure(source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}

func (m *CalendarMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheOutcomes.WithLabelValues(outcome).Inc()
}

func (m *CalendarMetrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

// BookingMetrics counts booking outcomes.
type BookingMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telesched",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *BookingMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}
