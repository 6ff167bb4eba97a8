// Package metrics instruments the core's commit and fetch paths.
// Grounded on the teacher's libs/metric.MetricSet labeled-registry
// shape, rewired onto rcrowley/go-metrics — a teacher go.mod dependency
// the teacher's own hand-rolled metric package never actually imports.
package metrics

import (
	"encoding/json"

	gometrics "github.com/rcrowley/go-metrics"
)

// Set is a labeled bundle of go-metrics instruments for one replica
// process. Grounded on libs/metric.MetricSet: in place of its
// SetMetrics/HasMetrics methods, Set holds a gometrics.Registry, which
// already provides
// the same "register once, fetch by label" contract with real
// histogram/EWMA support the teacher's version lacked.
type Set struct {
	registry gometrics.Registry

	CommitHeight     gometrics.Gauge
	CommitLatency    gometrics.Timer
	ProposeCount     gometrics.Counter
	ValidateFailures gometrics.Counter
	RollbackCount    gometrics.Counter
	PersistCount     gometrics.Counter
	FetchOutstanding gometrics.Gauge
	FetchRequests    gometrics.Counter
	FetchDeliveries  gometrics.Counter
}

// NewSet builds a Set registered under its own gometrics.Registry, so
// multiple replicas in one process (as in the fetch/replica test
// harnesses) never collide on instrument names.
func NewSet() *Set {
	r := gometrics.NewRegistry()
	return &Set{
		registry:         r,
		CommitHeight:     gometrics.GetOrRegisterGauge("commit_height", r),
		CommitLatency:    gometrics.GetOrRegisterTimer("commit_latency", r),
		ProposeCount:     gometrics.GetOrRegisterCounter("propose_count", r),
		ValidateFailures: gometrics.GetOrRegisterCounter("validate_failures", r),
		RollbackCount:    gometrics.GetOrRegisterCounter("rollback_count", r),
		PersistCount:     gometrics.GetOrRegisterCounter("persist_count", r),
		FetchOutstanding: gometrics.GetOrRegisterGauge("fetch_outstanding", r),
		FetchRequests:    gometrics.GetOrRegisterCounter("fetch_requests", r),
		FetchDeliveries:  gometrics.GetOrRegisterCounter("fetch_deliveries", r),
	}
}

// JSONString snapshots every instrument's current value, for the same
// ad hoc inspection the teacher's MetricItem.JSONString offered.
func (s *Set) JSONString() string {
	snapshot := make(map[string]interface{})
	s.registry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case gometrics.Gauge:
			snapshot[name] = m.Value()
		case gometrics.Counter:
			snapshot[name] = m.Count()
		case gometrics.Timer:
			snapshot[name] = m.Mean()
		}
	})
	bz, err := json.Marshal(snapshot)
	if err != nil {
		return "{}"
	}
	return string(bz)
}
