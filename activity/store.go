package activity

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetActivity when no counters exist for a key.
var ErrNotFound = errors.New("levels: activity not found")

// Store persists monthly counters. BulkMergeActivity adds the incoming
// counters to the stored ones and creates missing records.
type Store interface {
	BulkMergeActivity(ctx context.Context, records []*Record) error
	GetActivity(ctx context.Context, key Key) (*Record, error)
}
