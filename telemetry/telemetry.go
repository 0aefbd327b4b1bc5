// Package telemetry provides OpenTelemetry metrics for the auth core:
// counters for login outcomes, refresh rotations, and reuse detections,
// plus a MeterProvider factory with an OTLP exporter for hosts that
// export metrics.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Login results recorded on the authcore.logins counter.
const (
	ResultOK                 = "ok"
	ResultInvalidCredentials = "invalid_credentials"
	ResultLocked             = "locked"
	ResultInactive           = "inactive"
	ResultUnverified         = "unverified"
	ResultReuse              = "reuse"
	ResultInvalid            = "invalid"
)

// Metrics records the core's security counters through an OpenTelemetry
// meter. A nil *Metrics is valid and records nothing, so callers without a
// meter never guard call sites.
type Metrics struct {
	logins          metric.Int64Counter
	refreshes       metric.Int64Counter
	reuseDetected   metric.Int64Counter
	sessionsEvicted metric.Int64Counter
	sessionsSwept   metric.Int64Counter
}

// NewMetrics creates the counter instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.logins, err = meter.Int64Counter("authcore.logins",
		metric.WithDescription("Login attempts by result")); err != nil {
		return nil, err
	}
	if m.refreshes, err = meter.Int64Counter("authcore.refreshes",
		metric.WithDescription("Refresh rotations by result")); err != nil {
		return nil, err
	}
	if m.reuseDetected, err = meter.Int64Counter("authcore.reuse_detected",
		metric.WithDescription("Refresh token reuse detections")); err != nil {
		return nil, err
	}
	if m.sessionsEvicted, err = meter.Int64Counter("authcore.sessions_evicted",
		metric.WithDescription("Sessions evicted by the per-user cap")); err != nil {
		return nil, err
	}
	if m.sessionsSwept, err = meter.Int64Counter("authcore.sessions_swept",
		metric.WithDescription("Expired sessions removed by sweeps")); err != nil {
		return nil, err
	}
	return m, nil
}

// Login records one login attempt with its result.
func (m *Metrics) Login(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Refresh records one refresh attempt with its result.
func (m *Metrics) Refresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// ReuseDetected records one refresh token reuse detection.
func (m *Metrics) ReuseDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.reuseDetected.Add(ctx, 1)
}

// SessionsEvicted records n sessions evicted by the per-user cap.
func (m *Metrics) SessionsEvicted(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsEvicted.Add(ctx, int64(n))
}

// SessionsSwept records n expired sessions removed by a sweep.
func (m *Metrics) SessionsSwept(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSwept.Add(ctx, int64(n))
}
