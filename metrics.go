package naimatauth

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricCodeRequested MetricID = iota
	MetricCodeDeliveryFailed
	MetricCodeRateLimited
	MetricVerifySuccess
	MetricVerifyFailure
	MetricSignupCreated
	MetricSignupConflict
	MetricRefreshSuccess
	MetricRefreshFailure
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. Counters are cache-line
// padded so hot increments from different goroutines do not false-share.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter, returned by
// [Engine.MetricsSnapshot] and consumed by the OTel exporter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}

// MetricName returns the stable export name for id, or "" for an unknown id.
func MetricName(id MetricID) string {
	switch id {
	case MetricCodeRequested:
		return "auth_code_requested_total"
	case MetricCodeDeliveryFailed:
		return "auth_code_delivery_failed_total"
	case MetricCodeRateLimited:
		return "auth_code_rate_limited_total"
	case MetricVerifySuccess:
		return "auth_verify_success_total"
	case MetricVerifyFailure:
		return "auth_verify_failure_total"
	case MetricSignupCreated:
		return "auth_signup_created_total"
	case MetricSignupConflict:
		return "auth_signup_conflict_total"
	case MetricRefreshSuccess:
		return "auth_refresh_success_total"
	case MetricRefreshFailure:
		return "auth_refresh_failure_total"
	default:
		return ""
	}
}
