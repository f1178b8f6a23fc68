package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCalendarMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCalendarMetrics(reg)
	m.ObserveAssemble("week", 0.02)
	m.ObserveFetchFailure("appointments")
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveStaleDiscard()
}

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveOutcome("booked")
	m.ObserveOutcome("conflict")
}

func TestMetricsNilSafe(t *testing.T) {
	var cm *CalendarMetrics
	cm.ObserveAssemble("week", 0.1)
	cm.ObserveFetchFailure("rules")
	cm.ObserveCache(true)
	cm.ObserveStaleDiscard()

	var bm *BookingMetrics
	bm.ObserveOutcome("booked")
}
