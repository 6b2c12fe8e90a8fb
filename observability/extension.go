// Package observability provides a metrics extension for levels that records
// level transitions, entitlement reconciliation and flush outcomes through a
// MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
	"github.com/xraph/levels/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnLevelChanged           = (*MetricsExtension)(nil)
	_ plugin.OnEntitlementsReconciled = (*MetricsExtension)(nil)
	_ plugin.OnAccountInvalidated     = (*MetricsExtension)(nil)
	_ plugin.OnXPFlushed              = (*MetricsExtension)(nil)
	_ plugin.OnActivityFlushed        = (*MetricsExtension)(nil)
	_ plugin.OnFlushFailed            = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide metrics.
// Register it as a levels plugin to track level and flush activity.
type MetricsExtension struct {
	factory MetricFactory

	// Level metrics
	LevelUps   Counter
	LevelDowns Counter

	// Entitlement metrics
	EntitlementGrants  Counter
	EntitlementRevokes Counter

	// Cache metrics
	AccountsInvalidated Counter

	// Flush metrics
	XPFlushes            Counter
	XPBatchSize          Histogram
	XPFlushLatency       Histogram
	ActivityFlushes      Counter
	ActivityBatchSize    Histogram
	ActivityFlushLatency Histogram
	FlushFailures        Counter
	RequeuedEntries      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory for a standalone Prometheus registry.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		LevelUps:   factory.Counter("levels.level.ups"),
		LevelDowns: factory.Counter("levels.level.downs"),

		EntitlementGrants:  factory.Counter("levels.entitlement.grants"),
		EntitlementRevokes: factory.Counter("levels.entitlement.revokes"),

		AccountsInvalidated: factory.Counter("levels.account.invalidated"),

		XPFlushes:            factory.Counter("levels.flush.xp.total"),
		XPBatchSize:          factory.Histogram("levels.flush.xp.batch_size"),
		XPFlushLatency:       factory.Histogram("levels.flush.xp.latency_ms"),
		ActivityFlushes:      factory.Counter("levels.flush.activity.total"),
		ActivityBatchSize:    factory.Histogram("levels.flush.activity.batch_size"),
		ActivityFlushLatency: factory.Histogram("levels.flush.activity.latency_ms"),
		FlushFailures:        factory.Counter("levels.flush.failures"),
		RequeuedEntries:      factory.Counter("levels.flush.requeued"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Level hooks
// ──────────────────────────────────────────────────

// OnLevelChanged implements plugin.OnLevelChanged.
func (m *MetricsExtension) OnLevelChanged(_ context.Context, change account.LevelChange) error {
	if change.Up() {
		m.LevelUps.Inc()
	} else {
		m.LevelDowns.Inc()
	}
	return nil
}

// OnEntitlementsReconciled implements plugin.OnEntitlementsReconciled.
// Attempts are counted whether or not the gateway succeeded.
func (m *MetricsExtension) OnEntitlementsReconciled(_ context.Context, _ account.Key, _ int, res entitlement.Resolution) error {
	if res.ToGrant != "" {
		m.EntitlementGrants.Inc()
	}
	if n := len(res.ToRevoke); n > 0 {
		m.EntitlementRevokes.Add(float64(n))
	}
	return nil
}

// OnAccountInvalidated implements plugin.OnAccountInvalidated.
func (m *MetricsExtension) OnAccountInvalidated(_ context.Context, _ account.Key) error {
	m.AccountsInvalidated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Flush hooks
// ──────────────────────────────────────────────────

// OnXPFlushed implements plugin.OnXPFlushed.
func (m *MetricsExtension) OnXPFlushed(_ context.Context, _ id.BatchID, count int, elapsed time.Duration) error {
	m.XPFlushes.Inc()
	m.XPBatchSize.Observe(float64(count))
	m.XPFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnActivityFlushed implements plugin.OnActivityFlushed.
func (m *MetricsExtension) OnActivityFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.ActivityFlushes.Inc()
	m.ActivityBatchSize.Observe(float64(count))
	m.ActivityFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnFlushFailed implements plugin.OnFlushFailed.
func (m *MetricsExtension) OnFlushFailed(_ context.Context, _ string, count int, _ error) error {
	m.FlushFailures.Inc()
	m.RequeuedEntries.Add(float64(count))
	return nil
}
