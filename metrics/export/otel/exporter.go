// Package otel bridges the engine's in-process counters to OpenTelemetry
// observable instruments. The engine never imports OTel; binaries that
// want export wire this package on top.
package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	naimatauth "github.com/amnashah110/naimat-auth"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() naimatauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   naimatauth.MetricID
	help string
}

// counterDefs pins the export order and help text. Instrument names come
// from [naimatauth.MetricName] so engine and exporter cannot drift.
var counterDefs = []counterDef{
	{naimatauth.MetricCodeRequested, "One-time codes issued and delivered."},
	{naimatauth.MetricCodeDeliveryFailed, "Code deliveries that failed at the mail sender."},
	{naimatauth.MetricCodeRateLimited, "Code operations rejected by a throttle window."},
	{naimatauth.MetricVerifySuccess, "Successful code verifications."},
	{naimatauth.MetricVerifyFailure, "Code verifications rejected as invalid."},
	{naimatauth.MetricSignupCreated, "Accounts created through verified signup."},
	{naimatauth.MetricSignupConflict, "Signup verifications rejected because the email already had an account."},
	{naimatauth.MetricRefreshSuccess, "Access tokens minted from a refresh token."},
	{naimatauth.MetricRefreshFailure, "Refresh attempts rejected."},
}

type observedCounter struct {
	id         naimatauth.MetricID
	instrument metric.Int64ObservableCounter
}

type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers observable counters for every engine metric plus
// the audit-drop count. Values are read lazily at collection time from
// the engine's snapshot.
func NewExporter(meter metric.Meter, engine *naimatauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		name := naimatauth.MetricName(def.id)
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"auth_audit_dropped_total",
		metric.WithDescription("Audit events dropped due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
