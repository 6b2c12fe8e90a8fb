package levels

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/plugin"
)

// Notifier is told about level changes, for example to post a level-up
// message. Failures are logged and ignored.
type Notifier interface {
	OnLevelChanged(ctx context.Context, scope, subject string, newLevel int) error
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, scope, subject string, newLevel int) error

// OnLevelChanged implements Notifier.
func (f NotifierFunc) OnLevelChanged(ctx context.Context, scope, subject string, newLevel int) error {
	return f(ctx, scope, subject, newLevel)
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			return
		}
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurve sets the level curve.
func WithCurve(c curve.Curve) Option {
	return func(e *Engine) {
		e.curve = c
	}
}

// WithNotifier sets the level-change notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithEntitlements enables entitlement reconciliation on level changes.
// A nil rule source reads rules from the store.
func WithEntitlements(rules entitlement.RuleSource, gateway entitlement.Gateway) Option {
	return func(e *Engine) {
		e.rules = rules
		e.gateway = gateway
	}
}

// WithFlushIntervals sets how often XP and activity are flushed.
func WithFlushIntervals(xp, activity time.Duration) Option {
	return func(e *Engine) {
		if xp > 0 {
			e.xpFlushInterval = xp
		}
		if activity > 0 {
			e.activityFlushInterval = activity
		}
	}
}

// WithFlushTimeout bounds each bulk merge call.
func WithFlushTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.flushTimeout = d
		}
	}
}

// WithBucketInterval sets the activity bucket width.
func WithBucketInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.bucketInterval = d
		}
	}
}

// WithClock replaces time.Now for accumulation timestamps and periods.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithoutMigrate skips store migration on Start.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}
