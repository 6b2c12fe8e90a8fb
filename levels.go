package levels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/accumulator"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/plugin"
	"github.com/xraph/levels/store"
)

// Default flush settings.
const (
	DefaultXPFlushInterval       = 5 * time.Minute
	DefaultActivityFlushInterval = 5 * time.Minute
	DefaultFlushTimeout          = 30 * time.Second
)

// Engine accumulates XP and activity in memory and flushes them to the
// store in the background.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	curve          curve.Curve
	now            func() time.Time
	bucketInterval time.Duration
	notifier       Notifier
	rules          entitlement.RuleSource
	gateway        entitlement.Gateway

	xp       *accumulator.XP
	activity *accumulator.Activity

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	stateMu sync.Mutex
	started bool
	stopped bool

	xpFlushMu       sync.Mutex
	activityFlushMu sync.Mutex

	// Entitlement reconciliation runs one at a time per account.
	reconcileMu    sync.Mutex
	reconcileLocks map[account.Key]*keyLock

	// Configuration
	xpFlushInterval       time.Duration
	activityFlushInterval time.Duration
	flushTimeout          time.Duration
	skipMigrate           bool
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, ValidationError{Field: "store", Message: "must not be nil"}
	}

	e := &Engine{
		store:                 s,
		plugins:               plugin.NewRegistry(),
		logger:                slog.Default(),
		curve:                 curve.Default(),
		now:                   time.Now,
		bucketInterval:        accumulator.DefaultBucketInterval,
		stopChan:              make(chan struct{}),
		reconcileLocks:        make(map[account.Key]*keyLock),
		xpFlushInterval:       DefaultXPFlushInterval,
		activityFlushInterval: DefaultActivityFlushInterval,
		flushTimeout:          DefaultFlushTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.curve.Validate(); err != nil {
		return nil, err
	}
	if e.gateway != nil && e.rules == nil {
		e.rules = s
	}

	e.xp = accumulator.NewXP(s,
		accumulator.WithCurve(e.curve),
		accumulator.WithClock(e.now),
		accumulator.WithBucketInterval(e.bucketInterval),
		accumulator.WithLevelHook(accumulator.LevelHookFunc(e.onLevelChanged)),
		accumulator.WithLogger(e.logger),
	)
	e.activity = accumulator.NewActivity()

	return e, nil
}

// Start migrates the store and begins the flush workers.
func (e *Engine) Start(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	if e.started {
		return ErrAlreadyStarted
	}

	// Migrate database
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	e.wg.Add(2)
	go e.flushWorker(ctx, e.xpFlushInterval, e.FlushXP)
	go e.flushWorker(ctx, e.activityFlushInterval, e.FlushActivity)
	e.started = true

	e.logger.Info("levels engine started",
		"xp_flush_interval", e.xpFlushInterval,
		"activity_flush_interval", e.activityFlushInterval,
		"flush_timeout", e.flushTimeout,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop halts the workers, flushes everything still cached and closes the
// store. Adds after Stop return ErrEngineStopped.
func (e *Engine) Stop() error {
	e.stateMu.Lock()
	if e.stopped {
		e.stateMu.Unlock()
		return nil
	}
	e.stopped = true
	e.stateMu.Unlock()

	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()

	// Final flush
	var errs MultiError
	errs.Add(e.FlushXP(ctx))
	errs.Add(e.FlushActivity(ctx))

	e.plugins.EmitShutdown(ctx)

	errs.Add(e.store.Close())
	e.logger.Info("levels engine stopped")

	return errs.ErrorOrNil()
}

// Curve returns the level curve in use.
func (e *Engine) Curve() curve.Curve { return e.curve }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// ──────────────────────────────────────────────────
// Accumulation
// ──────────────────────────────────────────────────

// AddXP credits amount XP of the given kind. Negative amounts are
// corrections and may lower the level. Level changes are applied before it
// returns; notifier, entitlement and plugin failures never reach the caller.
func (e *Engine) AddXP(ctx context.Context, scope, subject string, amount int64, kind account.Kind) error {
	key, err := e.accountKey(scope, subject)
	if err != nil {
		return err
	}
	return e.xp.AddDelta(ctx, key, amount, kind)
}

// AddMessage counts one message towards the current month.
func (e *Engine) AddMessage(scope, subject string) error {
	key, err := e.activityKey(scope, subject)
	if err != nil {
		return err
	}
	e.activity.AddMessage(key)
	return nil
}

// AddVoiceMinutes credits voice minutes to the current month. Non-positive
// amounts credit the default tick of half a minute.
func (e *Engine) AddVoiceMinutes(scope, subject string, minutes float64) error {
	key, err := e.activityKey(scope, subject)
	if err != nil {
		return err
	}
	e.activity.AddVoiceMinutes(key, minutes)
	return nil
}

// ──────────────────────────────────────────────────
// Reads and admin
// ──────────────────────────────────────────────────

// ReadCurrent returns the level and XP into that level, including XP that
// has not been flushed yet.
func (e *Engine) ReadCurrent(ctx context.Context, scope, subject string) (account.Standing, error) {
	key := account.Key{Scope: scope, Subject: subject}
	if !key.Valid() {
		return account.Standing{}, ErrInvalidInput
	}
	return e.xp.ReadCurrent(ctx, key)
}

// Progress returns a display breakdown of the current standing.
func (e *Engine) Progress(ctx context.Context, scope, subject string) (curve.Progress, error) {
	s, err := e.ReadCurrent(ctx, scope, subject)
	if err != nil {
		return curve.Progress{}, err
	}
	return e.curve.ProgressFor(e.curve.Total(s.Level, s.XP)), nil
}

// MonthlyActivity returns the persisted counters of a month plus those not
// flushed yet.
func (e *Engine) MonthlyActivity(ctx context.Context, scope, subject string, period activity.Period) (*activity.Record, error) {
	if scope == "" || subject == "" || period == "" {
		return nil, ErrInvalidInput
	}
	key := activity.Key{Scope: scope, Subject: subject, Period: period}

	rec, err := e.store.GetActivity(ctx, key)
	if errors.Is(err, activity.ErrNotFound) {
		rec, err = &activity.Record{Key: key}, nil
	}
	if err != nil {
		return nil, err
	}

	pending := e.activity.Peek(key)
	rec.Messages += pending.Messages
	rec.VoiceMinutes += pending.VoiceMinutes
	return rec, nil
}

// Invalidate drops the cached account so the next access reloads it. Admin
// flows call it after writing an account directly to the store.
func (e *Engine) Invalidate(ctx context.Context, scope, subject string) error {
	key := account.Key{Scope: scope, Subject: subject}
	if !key.Valid() {
		return ErrInvalidInput
	}

	e.xp.Invalidate(key)
	e.plugins.EmitAccountInvalidated(ctx, key)

	e.logger.Debug("account invalidated", "scope", scope, "subject", subject)
	return nil
}

// ──────────────────────────────────────────────────
// Level changes
// ──────────────────────────────────────────────────

// onLevelChanged runs after the accumulator lock is released. Every step is
// best-effort.
func (e *Engine) onLevelChanged(ctx context.Context, change account.LevelChange) {
	key := change.Key

	e.logger.Debug("level changed",
		"scope", key.Scope,
		"subject", key.Subject,
		"from", change.From,
		"to", change.To,
	)

	if e.notifier != nil {
		e.bestEffort("notify level change", key, func() error {
			return e.notifier.OnLevelChanged(ctx, key.Scope, key.Subject, change.To)
		})
	}

	e.plugins.EmitLevelChanged(ctx, change)

	if e.gateway != nil {
		e.reconcile(ctx, key, change.To)
	}
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lockAccount serializes reconciliation for key and returns the unlock
// function.
func (e *Engine) lockAccount(key account.Key) func() {
	e.reconcileMu.Lock()
	l, ok := e.reconcileLocks[key]
	if !ok {
		l = &keyLock{}
		e.reconcileLocks[key] = l
	}
	l.refs++
	e.reconcileMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.reconcileMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.reconcileLocks, key)
		}
		e.reconcileMu.Unlock()
	}
}

// reconcile grants the best entitlement for the account's current level and
// revokes the others. changedTo is used only when the current level cannot
// be read. A reconcile that was overtaken by a later level change resolves
// against the newer level, so the last one to run always leaves the right
// entitlement in place.
func (e *Engine) reconcile(ctx context.Context, key account.Key, changedTo int) {
	unlock := e.lockAccount(key)
	defer unlock()

	var rules []entitlement.Rule
	e.bestEffort("list entitlement rules", key, func() error {
		var err error
		rules, err = e.rules.ListRules(ctx, key.Scope)
		return err
	})
	if len(rules) == 0 {
		return
	}

	var held []string
	ok := e.bestEffort("read held entitlements", key, func() error {
		var err error
		held, err = e.gateway.Held(ctx, key.Scope, key.Subject, entitlement.IDs(rules))
		return err
	})
	if !ok {
		return
	}

	level := changedTo
	if s, err := e.xp.ReadCurrent(ctx, key); err == nil {
		level = s.Level
	} else {
		e.logger.Warn("read level for reconcile failed",
			"scope", key.Scope,
			"subject", key.Subject,
			"error", err,
		)
	}

	res := entitlement.Resolve(level, rules, held)
	if res.ToGrant != "" {
		e.bestEffort("grant entitlement", key, func() error {
			return e.gateway.Grant(ctx, key.Scope, key.Subject, res.ToGrant)
		})
	}
	for _, revoke := range res.ToRevoke {
		e.bestEffort("revoke entitlement", key, func() error {
			return e.gateway.Revoke(ctx, key.Scope, key.Subject, revoke)
		})
	}

	e.plugins.EmitEntitlementsReconciled(ctx, key, level, res)
}

// bestEffort runs fn, logging errors and panics instead of returning them.
// It reports whether fn succeeded.
func (e *Engine) bestEffort(op string, key account.Key, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn(op+" panicked",
				"scope", key.Scope,
				"subject", key.Subject,
				"panic", r,
			)
			ok = false
		}
	}()

	if err := fn(); err != nil {
		e.logger.Warn(op+" failed",
			"scope", key.Scope,
			"subject", key.Subject,
			"error", err,
		)
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) checkRunning() error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	return nil
}

func (e *Engine) accountKey(scope, subject string) (account.Key, error) {
	key := account.Key{Scope: scope, Subject: subject}
	if !key.Valid() {
		return key, ErrInvalidInput
	}
	return key, e.checkRunning()
}

func (e *Engine) activityKey(scope, subject string) (activity.Key, error) {
	if scope == "" || subject == "" {
		return activity.Key{}, ErrInvalidInput
	}
	key := activity.Key{Scope: scope, Subject: subject, Period: activity.PeriodOf(e.now())}
	return key, e.checkRunning()
}
