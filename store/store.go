package store

import (
	"context"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
)

// Store is the unified persistence gateway for the levels engine.
// Methods are declared explicitly rather than embedding the per-domain
// interfaces so every backend lists its full surface in one place.
type Store interface {
	// Account methods
	LoadAccount(ctx context.Context, key account.Key) (*account.Record, error)
	BulkMergeXP(ctx context.Context, records []*account.Record) error

	// Activity methods
	BulkMergeActivity(ctx context.Context, records []*activity.Record) error
	GetActivity(ctx context.Context, key activity.Key) (*activity.Record, error)

	// Entitlement rule methods
	ListRules(ctx context.Context, scope string) ([]entitlement.Rule, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ account.Store          = (Store)(nil)
	_ activity.Store         = (Store)(nil)
	_ entitlement.RuleSource = (Store)(nil)
)
