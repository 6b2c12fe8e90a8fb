package account

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Loader when no record exists for a key.
var ErrNotFound = errors.New("levels: account not found")

// Loader reads the durable state of one account.
type Loader interface {
	LoadAccount(ctx context.Context, key Key) (*Record, error)
}

// Store persists accounts. BulkMergeXP must overwrite level and XP, keep the
// newer of the stored and incoming timestamps, and create missing records.
type Store interface {
	Loader
	BulkMergeXP(ctx context.Context, records []*Record) error
}

// LoaderFunc adapts a plain function to a Loader.
type LoaderFunc func(ctx context.Context, key Key) (*Record, error)

// LoadAccount implements Loader.
func (f LoaderFunc) LoadAccount(ctx context.Context, key Key) (*Record, error) {
	return f(ctx, key)
}
