package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/oaklinehq/workplace"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Tenant resolution metrics
	ResolutionsTotal          metric.Int64Counter
	StaleSelectionsHealed     metric.Int64Counter
	EnterpriseSelectionsTotal metric.Int64Counter

	// Authorization metrics
	AuthzDecisionsTotal metric.Int64Counter

	// Session metrics
	SessionsCreatedTotal metric.Int64Counter
	LoginFailuresTotal   metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.ResolutionsTotal, _ = meter.Int64Counter(
		"workplace.tenant.resolutions.total",
		metric.WithDescription("Total number of tenant context resolutions"),
		metric.WithUnit("{resolution}"),
	)

	m.StaleSelectionsHealed, _ = meter.Int64Counter(
		"workplace.tenant.stale_selections_healed.total",
		metric.WithDescription("Total number of stale session selections discarded by the resolver"),
		metric.WithUnit("{selection}"),
	)

	m.EnterpriseSelectionsTotal, _ = meter.Int64Counter(
		"workplace.tenant.selections.total",
		metric.WithDescription("Total number of explicit enterprise selections"),
		metric.WithUnit("{selection}"),
	)

	m.AuthzDecisionsTotal, _ = meter.Int64Counter(
		"workplace.authz.decisions.total",
		metric.WithDescription("Total number of authorization decisions"),
		metric.WithUnit("{decision}"),
	)

	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"workplace.sessions.created.total",
		metric.WithDescription("Total number of sessions created"),
		metric.WithUnit("{session}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"workplace.logins.failures.total",
		metric.WithDescription("Total number of failed login attempts"),
		metric.WithUnit("{attempt}"),
	)

	return m
}

// RecordResolution counts a tenant resolution by outcome.
func (m *Metrics) RecordResolution(ctx context.Context, outcome string) {
	m.ResolutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordStaleSelectionHealed counts a self-healed stale session selection.
func (m *Metrics) RecordStaleSelectionHealed(ctx context.Context) {
	m.StaleSelectionsHealed.Add(ctx, 1)
}

// RecordSelection counts an explicit enterprise selection.
func (m *Metrics) RecordSelection(ctx context.Context) {
	m.EnterpriseSelectionsTotal.Add(ctx, 1)
}

// RecordAuthzDecision counts an authorization decision by guard and result.
func (m *Metrics) RecordAuthzDecision(ctx context.Context, guard string, allowed bool, reason string) {
	attrs := []attribute.KeyValue{
		attribute.String("guard", guard),
		attribute.Bool("allowed", allowed),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.AuthzDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionCreated counts a session creation.
func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	m.SessionsCreatedTotal.Add(ctx, 1)
}

// RecordLoginFailure counts a failed login attempt.
func (m *Metrics) RecordLoginFailure(ctx context.Context) {
	m.LoginFailuresTotal.Add(ctx, 1)
}
