package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for grid activity. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Shifts             prometheus.Counter
	CellsMoved         prometheus.Counter
	CellsClipped       prometheus.Counter
	AllocationFailures prometheus.Counter
	Commands           *prometheus.CounterVec
	OccupiedCells      prometheus.Gauge
}

// NewMetrics creates the grid collectors and registers them on reg. A nil
// reg leaves the collectors unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Shifts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botgrid",
			Name:      "shifts_total",
			Help:      "Number of translate/rotate transforms applied.",
		}),
		CellsMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botgrid",
			Name:      "cells_moved_total",
			Help:      "Occupied cells relocated inside the grid by transforms.",
		}),
		CellsClipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botgrid",
			Name:      "cells_clipped_total",
			Help:      "Occupied cells dropped because a transform moved them out of bounds.",
		}),
		AllocationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botgrid",
			Name:      "allocation_failures_total",
			Help:      "Grid buffer allocations refused by the allocator.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botgrid",
			Name:      "console_commands_total",
			Help:      "Console commands processed, by verb.",
		}, []string{"verb"}),
		OccupiedCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "botgrid",
			Name:      "occupied_cells",
			Help:      "Occupied cells after the most recent mutation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Shifts, m.CellsMoved, m.CellsClipped, m.AllocationFailures, m.Commands, m.OccupiedCells)
	}
	return m
}

// ObserveShift records one completed transform.
func (m *Metrics) ObserveShift(moved, clipped int) {
	if m == nil {
		return
	}
	m.Shifts.Inc()
	m.CellsMoved.Add(float64(moved))
	m.CellsClipped.Add(float64(clipped))
}

// AllocationFailed records a refused buffer allocation.
func (m *Metrics) AllocationFailed() {
	if m == nil {
		return
	}
	m.AllocationFailures.Inc()
}

// Command records one console command.
func (m *Metrics) Command(verb string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(verb).Inc()
}

// SetOccupied publishes the current occupied cell count.
func (m *Metrics) SetOccupied(n int) {
	if m == nil {
		return
	}
	m.OccupiedCells.Set(float64(n))
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
