// Package extension provides the Forge extension adapter for levels.
//
// It implements the forge.Extension interface to integrate the levels
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.levels" or "levels" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/levels"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/store"
	"github.com/xraph/levels/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "levels"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Write-behind XP and activity accumulation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the levels engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *levels.Engine
	store      store.Store
	levelsOpts []levels.Option
}

// New creates a new levels Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *levels.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// builds the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	eng, err := levels.New(e.store, e.buildLevelsOpts()...)
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*levels.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("levels: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension]. Cached state is flushed before the
// store is closed.
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("levels: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLevelsOpts constructs levels.Option values from the resolved config.
// Pass-through options are applied last and win.
func (e *Extension) buildLevelsOpts() []levels.Option {
	opts := make([]levels.Option, 0, len(e.levelsOpts)+5)

	opts = append(opts,
		levels.WithFlushIntervals(e.config.XPFlushInterval, e.config.ActivityFlushInterval),
		levels.WithFlushTimeout(e.config.FlushTimeout),
		levels.WithBucketInterval(e.config.BucketInterval),
		levels.WithCurve(e.config.Curve),
	)
	if e.config.DisableMigrate {
		opts = append(opts, levels.WithoutMigrate())
	}

	return append(opts, e.levelsOpts...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("levels: configuration is required but not found in config files; " +
				"ensure 'extensions.levels' or 'levels' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("levels: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("xp_flush_interval", e.config.XPFlushInterval),
		forge.F("activity_flush_interval", e.config.ActivityFlushInterval),
		forge.F("flush_timeout", e.config.FlushTimeout),
		forge.F("bucket_interval", e.config.BucketInterval),
		forge.F("curve_a", e.config.Curve.A),
		forge.F("curve_b", e.config.Curve.B),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.levels", "levels"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("levels: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("levels: failed to bind config",
			forge.F("key", key),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults. A curve that
// fails validation is replaced by the default.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.XPFlushInterval <= 0 {
		cfg.XPFlushInterval = defaults.XPFlushInterval
	}
	if cfg.ActivityFlushInterval <= 0 {
		cfg.ActivityFlushInterval = defaults.ActivityFlushInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaults.FlushTimeout
	}
	if cfg.BucketInterval <= 0 {
		cfg.BucketInterval = defaults.BucketInterval
	}
	if cfg.Curve == (curve.Curve{}) || cfg.Curve.Validate() != nil {
		cfg.Curve = defaults.Curve
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.XPFlushInterval == 0 {
		yamlConfig.XPFlushInterval = programmaticConfig.XPFlushInterval
	}
	if yamlConfig.ActivityFlushInterval == 0 {
		yamlConfig.ActivityFlushInterval = programmaticConfig.ActivityFlushInterval
	}
	if yamlConfig.FlushTimeout == 0 {
		yamlConfig.FlushTimeout = programmaticConfig.FlushTimeout
	}
	if yamlConfig.BucketInterval == 0 {
		yamlConfig.BucketInterval = programmaticConfig.BucketInterval
	}
	if yamlConfig.Curve == (curve.Curve{}) {
		yamlConfig.Curve = programmaticConfig.Curve
	}

	return mergeWithDefaults(yamlConfig)
}
