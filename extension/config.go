package extension

import (
	"time"

	"github.com/xraph/levels/curve"
)

// Config holds the levels extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.levels" or "levels" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// XPFlushInterval is how often cached XP is merged into the store
	// (default: 5m).
	XPFlushInterval time.Duration `json:"xp_flush_interval" mapstructure:"xp_flush_interval" yaml:"xp_flush_interval"`

	// ActivityFlushInterval is how often monthly counters are merged into
	// the store (default: 5m).
	ActivityFlushInterval time.Duration `json:"activity_flush_interval" mapstructure:"activity_flush_interval" yaml:"activity_flush_interval"`

	// FlushTimeout bounds each bulk merge (default: 30s).
	FlushTimeout time.Duration `json:"flush_timeout" mapstructure:"flush_timeout" yaml:"flush_timeout"`

	// BucketInterval is the width of the per-account activity bucket
	// (default: 5m).
	BucketInterval time.Duration `json:"bucket_interval" mapstructure:"bucket_interval" yaml:"bucket_interval"`

	// Curve holds the level curve coefficients. A zero curve means the
	// default (A=50, B=50).
	Curve curve.Curve `json:"curve" mapstructure:"curve" yaml:"curve"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		XPFlushInterval:       5 * time.Minute,
		ActivityFlushInterval: 5 * time.Minute,
		FlushTimeout:          30 * time.Second,
		BucketInterval:        5 * time.Minute,
		Curve:                 curve.Default(),
	}
}
