package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onLevelChanged           []OnLevelChanged
	onEntitlementsReconciled []OnEntitlementsReconciled
	onAccountInvalidated     []OnAccountInvalidated
	onXPFlushed              []OnXPFlushed
	onActivityFlushed        []OnActivityFlushed
	onFlushFailed            []OnFlushFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnLevelChanged); ok {
		r.onLevelChanged = append(r.onLevelChanged, v)
	}
	if v, ok := p.(OnEntitlementsReconciled); ok {
		r.onEntitlementsReconciled = append(r.onEntitlementsReconciled, v)
	}
	if v, ok := p.(OnAccountInvalidated); ok {
		r.onAccountInvalidated = append(r.onAccountInvalidated, v)
	}
	if v, ok := p.(OnXPFlushed); ok {
		r.onXPFlushed = append(r.onXPFlushed, v)
	}
	if v, ok := p.(OnActivityFlushed); ok {
		r.onActivityFlushed = append(r.onActivityFlushed, v)
	}
	if v, ok := p.(OnFlushFailed); ok {
		r.onFlushFailed = append(r.onFlushFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnLevelChanged", reflect.TypeFor[OnLevelChanged]()},
	{"OnEntitlementsReconciled", reflect.TypeFor[OnEntitlementsReconciled]()},
	{"OnAccountInvalidated", reflect.TypeFor[OnAccountInvalidated]()},
	{"OnXPFlushed", reflect.TypeFor[OnXPFlushed]()},
	{"OnActivityFlushed", reflect.TypeFor[OnActivityFlushed]()},
	{"OnFlushFailed", reflect.TypeFor[OnFlushFailed]()},
}

// implementedInterfaces returns the hook interfaces implemented by p.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitLevelChanged emits a level change event.
func (r *Registry) EmitLevelChanged(ctx context.Context, change account.LevelChange) {
	r.mu.RLock()
	plugins := r.onLevelChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnLevelChanged", p.Name(), func() error {
			return p.OnLevelChanged(ctx, change)
		})
	}
}

// EmitEntitlementsReconciled emits an entitlement reconciliation event.
func (r *Registry) EmitEntitlementsReconciled(ctx context.Context, key account.Key, level int, res entitlement.Resolution) {
	r.mu.RLock()
	plugins := r.onEntitlementsReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnEntitlementsReconciled", p.Name(), func() error {
			return p.OnEntitlementsReconciled(ctx, key, level, res)
		})
	}
}

// EmitAccountInvalidated emits an account invalidation event.
func (r *Registry) EmitAccountInvalidated(ctx context.Context, key account.Key) {
	r.mu.RLock()
	plugins := r.onAccountInvalidated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnAccountInvalidated", p.Name(), func() error {
			return p.OnAccountInvalidated(ctx, key)
		})
	}
}

// EmitXPFlushed emits an XP flushed event.
func (r *Registry) EmitXPFlushed(ctx context.Context, batchID id.BatchID, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onXPFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnXPFlushed", p.Name(), func() error {
			return p.OnXPFlushed(ctx, batchID, count, elapsed)
		})
	}
}

// EmitActivityFlushed emits an activity flushed event.
func (r *Registry) EmitActivityFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onActivityFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnActivityFlushed", p.Name(), func() error {
			return p.OnActivityFlushed(ctx, count, elapsed)
		})
	}
}

// EmitFlushFailed emits a flush failure event.
func (r *Registry) EmitFlushFailed(ctx context.Context, kind string, count int, flushErr error) {
	r.mu.RLock()
	plugins := r.onFlushFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnFlushFailed", p.Name(), func() error {
			return p.OnFlushFailed(ctx, kind, count, flushErr)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block accumulation or flushing.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
