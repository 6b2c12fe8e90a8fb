package extension

import (
	"time"

	"github.com/xraph/levels"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/plugin"
	"github.com/xraph/levels/store"
)

// Option configures the levels Forge extension.
type Option func(*Extension)

// WithStore sets the store for the levels engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLevelsOption passes a levels.Option through to the underlying engine.
func WithLevelsOption(opt levels.Option) Option {
	return func(e *Extension) {
		e.levelsOpts = append(e.levelsOpts, opt)
	}
}

// WithPlugin registers a levels plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.levelsOpts = append(e.levelsOpts, levels.WithPlugin(p))
	}
}

// WithNotifier sets the level-change notifier.
func WithNotifier(n levels.Notifier) Option {
	return func(e *Extension) {
		e.levelsOpts = append(e.levelsOpts, levels.WithNotifier(n))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithFlushIntervals sets the XP and activity flush intervals.
func WithFlushIntervals(xp, activity time.Duration) Option {
	return func(e *Extension) {
		e.config.XPFlushInterval = xp
		e.config.ActivityFlushInterval = activity
	}
}

// WithFlushTimeout bounds each bulk merge.
func WithFlushTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.FlushTimeout = d }
}

// WithBucketInterval sets the activity bucket width.
func WithBucketInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.BucketInterval = d }
}

// WithCurve sets the level curve.
func WithCurve(c curve.Curve) Option {
	return func(e *Extension) { e.config.Curve = c }
}
