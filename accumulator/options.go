package accumulator

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/curve"
)

// DefaultBucketInterval is the width of an activity bucket.
const DefaultBucketInterval = 5 * time.Minute

// LevelHook receives level transitions produced by AddDelta. It runs on the
// caller's goroutine after the accumulator lock is released. Panics are
// recovered and logged.
type LevelHook interface {
	LevelChanged(ctx context.Context, change account.LevelChange)
}

// LevelHookFunc adapts a function to a LevelHook.
type LevelHookFunc func(ctx context.Context, change account.LevelChange)

// LevelChanged implements LevelHook.
func (f LevelHookFunc) LevelChanged(ctx context.Context, change account.LevelChange) {
	f(ctx, change)
}

// Option configures an XP accumulator.
type Option func(*XP)

// WithCurve sets the level curve. Invalid curves are ignored.
func WithCurve(c curve.Curve) Option {
	return func(x *XP) {
		if c.Validate() == nil {
			x.curve = c
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(x *XP) {
		if now != nil {
			x.now = now
		}
	}
}

// WithBucketInterval sets the activity bucket width.
func WithBucketInterval(d time.Duration) Option {
	return func(x *XP) {
		if d > 0 {
			x.bucketInterval = d
		}
	}
}

// WithLevelHook sets the receiver of level changes.
func WithLevelHook(h LevelHook) Option {
	return func(x *XP) {
		x.hook = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *XP) {
		if logger != nil {
			x.logger = logger
		}
	}
}
