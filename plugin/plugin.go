// Package plugin provides an extensible plugin system for the levels engine.
// Plugins hook into level transitions, entitlement reconciliation and the
// flush lifecycle.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// Flush kinds reported to OnFlushFailed.
const (
	FlushXP       = "xp"
	FlushActivity = "activity"
)

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Level hooks
// ──────────────────────────────────────────────────

// OnLevelChanged is called once per accepted delta that changed a level.
type OnLevelChanged interface {
	Plugin
	OnLevelChanged(ctx context.Context, change account.LevelChange) error
}

// OnEntitlementsReconciled is called after grants and revokes for a level
// change have been attempted.
type OnEntitlementsReconciled interface {
	Plugin
	OnEntitlementsReconciled(ctx context.Context, key account.Key, level int, res entitlement.Resolution) error
}

// OnAccountInvalidated is called when a cached account is dropped.
type OnAccountInvalidated interface {
	Plugin
	OnAccountInvalidated(ctx context.Context, key account.Key) error
}

// ──────────────────────────────────────────────────
// Flush hooks
// ──────────────────────────────────────────────────

// OnXPFlushed is called after an XP batch was persisted.
type OnXPFlushed interface {
	Plugin
	OnXPFlushed(ctx context.Context, batchID id.BatchID, count int, elapsed time.Duration) error
}

// OnActivityFlushed is called after activity counters were persisted.
type OnActivityFlushed interface {
	Plugin
	OnActivityFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// OnFlushFailed is called when a flush failed and its entries were requeued.
type OnFlushFailed interface {
	Plugin
	OnFlushFailed(ctx context.Context, kind string, count int, err error) error
}
