package controller

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/rollcall/metrics"
)

const (
	opSignup = "signup"
	opRemove = "remove"
)

// controllerMetrics is nil when no registry was configured; every method
// is a no-op on a nil receiver.
type controllerMetrics struct {
	fetches    metrics.CounterVec
	mutations  metrics.CounterVec
	activityCt metrics.Gauge
}

func newControllerMetrics(registry metrics.Registry) (*controllerMetrics, error) {
	fetches, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_fetches_total",
		Help: "Roster fetches by result",
	}, []string{"result"})
	if err != nil {
		return nil, err
	}

	mutations, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_mutations_total",
		Help: "Signup and removal requests by operation and result",
	}, []string{"op", "result"})
	if err != nil {
		return nil, err
	}

	activityCt, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "roster_activities",
		Help: "Number of activities in the last fetched roster",
	})
	if err != nil {
		return nil, err
	}

	return &controllerMetrics{
		fetches:    fetches,
		mutations:  mutations,
		activityCt: activityCt,
	}, nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *controllerMetrics) fetch(ok bool) {
	if m == nil {
		return
	}
	m.fetches.With(prometheus.Labels{"result": result(ok)}).Inc()
}

func (m *controllerMetrics) mutation(op string, ok bool) {
	if m == nil {
		return
	}
	m.mutations.With(prometheus.Labels{"op": op, "result": result(ok)}).Inc()
}

func (m *controllerMetrics) activities(n int) {
	if m == nil {
		return
	}
	m.activityCt.Set(float64(n))
}
