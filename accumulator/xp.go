// Package accumulator holds the in-memory write-behind caches: per-account XP
// with synchronous level resolution, and additive monthly activity counters.
package accumulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/id"
)

// ErrInvalidKind is returned by AddDelta for an unknown activity kind.
var ErrInvalidKind = errors.New("levels: invalid activity kind")

// XP caches accounts and accumulates XP deltas between flushes.
//
// A single mutex guards the entry map, the in-flight snapshots and the load
// placeholders. The only I/O is the lazy first load of an uncached key, which
// runs outside the lock and at most once per key at a time.
type XP struct {
	loader         account.Loader
	curve          curve.Curve
	now            func() time.Time
	bucketInterval time.Duration
	hook           LevelHook
	logger         *slog.Logger

	mu       sync.Mutex
	entries  map[account.Key]*entry
	loading  map[account.Key]*loadCall
	inflight map[account.Key]*inflight
}

type entry struct {
	rec     account.Record
	pending int64
	dirty   bool
}

// current returns the XP into the level including pending XP.
func (e *entry) current() int64 { return e.rec.XP + e.pending }

type loadCall struct {
	done        chan struct{}
	err         error
	invalidated bool
}

// inflight is the last drained snapshot of a key whose flush has not been
// acknowledged. Storage may not reflect it yet.
type inflight struct {
	batch id.BatchID
	rec   account.Record
}

// NewXP creates an XP accumulator reading uncached accounts from loader.
func NewXP(loader account.Loader, opts ...Option) *XP {
	x := &XP{
		loader:         loader,
		curve:          curve.Default(),
		now:            time.Now,
		bucketInterval: DefaultBucketInterval,
		logger:         slog.Default(),
		entries:        make(map[account.Key]*entry),
		loading:        make(map[account.Key]*loadCall),
		inflight:       make(map[account.Key]*inflight),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Curve returns the level curve in use.
func (x *XP) Curve() curve.Curve { return x.curve }

// AddDelta adds amount XP of the given kind to key. Level-ups and level-downs
// are resolved before it returns; the level hook then runs once if the level
// changed. A zero amount does nothing. The only error source is the lazy load.
func (x *XP) AddDelta(ctx context.Context, key account.Key, amount int64, kind account.Kind) error {
	switch kind {
	case account.KindMessage, account.KindVoice, account.KindManual:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if amount == 0 {
		return nil
	}

	e, err := x.lockEntry(ctx, key)
	if err != nil {
		return err
	}
	change, changed := x.apply(e, key, amount, kind, x.now())
	x.mu.Unlock()

	if changed {
		x.notify(ctx, change)
	}
	return nil
}

// ReadCurrent returns the level and XP into the level of key, including XP
// not flushed yet. An uncached key is loaded and cached without creating
// pending state.
func (x *XP) ReadCurrent(ctx context.Context, key account.Key) (account.Standing, error) {
	e, err := x.lockEntry(ctx, key)
	if err != nil {
		return account.Standing{}, err
	}
	defer x.mu.Unlock()

	return account.Standing{Level: e.rec.Level, XP: e.current()}, nil
}

// Invalidate forgets everything cached for key: the live entry, an in-flight
// snapshot and any load in progress. The next access reloads from storage.
func (x *XP) Invalidate(key account.Key) {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.entries, key)
	delete(x.inflight, key)
	if call, ok := x.loading[key]; ok {
		call.invalidated = true
		delete(x.loading, key)
	}
}

// Len returns the number of cached accounts.
func (x *XP) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

// Drain empties the cache and returns a batch holding every account changed
// since it was cached. Unchanged entries are dropped. It returns nil when
// nothing changed. The records stay in flight until Ack or Requeue.
func (x *XP) Drain() *Batch {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.entries) == 0 {
		return nil
	}

	now := x.now()
	batch := &Batch{ID: id.NewBatchID()}
	for key, e := range x.entries {
		if !e.dirty {
			continue
		}
		rec := e.rec
		rec.XP = e.current()
		rec.UpdatedAt = now

		x.inflight[key] = &inflight{batch: batch.ID, rec: rec}
		out := rec
		batch.Records = append(batch.Records, &out)
	}
	x.entries = make(map[account.Key]*entry)

	if len(batch.Records) == 0 {
		return nil
	}
	sort.Slice(batch.Records, func(i, j int) bool {
		return batch.Records[i].Key.String() < batch.Records[j].Key.String()
	})
	return batch
}

// Ack marks a batch as persisted.
func (x *XP) Ack(b *Batch) {
	if b.Len() == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, rec := range b.Records {
		if f, ok := x.inflight[rec.Key]; ok && f.batch == b.ID {
			delete(x.inflight, rec.Key)
		}
	}
}

// Requeue returns the records of a batch whose flush failed to the cache.
// A key touched during the flush already carries the drained state, so only
// keys without a live entry are reinstated. Keys invalidated or re-drained
// since are skipped.
func (x *XP) Requeue(b *Batch) {
	if b.Len() == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, rec := range b.Records {
		f, ok := x.inflight[rec.Key]
		if !ok || f.batch != b.ID {
			continue
		}
		delete(x.inflight, rec.Key)

		if e, ok := x.entries[rec.Key]; ok {
			e.dirty = true
			continue
		}
		x.entries[rec.Key] = &entry{rec: f.rec, dirty: true}
	}
}

// lockEntry returns the entry for key with x.mu held. On error the lock is
// not held.
func (x *XP) lockEntry(ctx context.Context, key account.Key) (*entry, error) {
	for {
		x.mu.Lock()
		if e, ok := x.entries[key]; ok {
			return e, nil
		}
		if f, ok := x.inflight[key]; ok {
			e := &entry{rec: f.rec}
			x.entries[key] = e
			return e, nil
		}
		if call, ok := x.loading[key]; ok {
			x.mu.Unlock()
			select {
			case <-call.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if call.err != nil && !call.invalidated {
				// The leader's own cancellation says nothing about the key.
				if isContextErr(call.err) && ctx.Err() == nil {
					continue
				}
				return nil, call.err
			}
			continue
		}

		call := &loadCall{done: make(chan struct{})}
		x.loading[key] = call
		x.mu.Unlock()

		rec, err := x.load(ctx, key)

		x.mu.Lock()
		if x.loading[key] == call {
			delete(x.loading, key)
		}
		call.err = err
		close(call.done)

		if call.invalidated {
			x.mu.Unlock()
			continue
		}
		if err != nil {
			x.mu.Unlock()
			return nil, err
		}

		e := &entry{rec: *rec}
		x.entries[key] = e
		return e, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (x *XP) load(ctx context.Context, key account.Key) (*account.Record, error) {
	rec, err := x.loader.LoadAccount(ctx, key)
	if errors.Is(err, account.ErrNotFound) {
		return account.NewRecord(key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", key, err)
	}
	if rec == nil {
		return account.NewRecord(key), nil
	}

	rec.Key = key
	if rec.Level < 1 {
		rec.Level = 1
	}
	if rec.XP < 0 {
		rec.XP = 0
	}
	return rec, nil
}

// apply mutates e under x.mu. It reports the level change, if any.
func (x *XP) apply(e *entry, key account.Key, amount int64, kind account.Kind, now time.Time) (account.LevelChange, bool) {
	e.dirty = true

	if kind != account.KindManual {
		e.rec.Bucket.Start = now.Truncate(x.bucketInterval)
		e.rec.LastActivityAt = now
		switch kind {
		case account.KindMessage:
			e.rec.Bucket.Messages++
			e.rec.LastMessageAt = now
		case account.KindVoice:
			e.rec.Bucket.VoiceUnits++
		}
	}

	e.pending += amount

	from := e.rec.Level
	level := from
	cur := e.current()
	for cur >= x.curve.ForLevelUp(level) {
		cur -= x.curve.ForLevelUp(level)
		level++
	}
	for cur < 0 && level > 1 {
		level--
		cur += x.curve.ForLevelUp(level)
	}
	if cur < 0 {
		cur = 0
	}

	if level != from || cur != e.current() {
		e.rec.Level = level
		e.rec.XP = cur
		e.pending = 0
	}
	if level == from {
		return account.LevelChange{}, false
	}

	return account.LevelChange{
		ID:   id.NewLevelChangeID(),
		Key:  key,
		From: from,
		To:   level,
		At:   now,
	}, true
}

func (x *XP) notify(ctx context.Context, change account.LevelChange) {
	if x.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			x.logger.Warn("level hook panicked",
				"scope", change.Key.Scope,
				"subject", change.Key.Subject,
				"panic", r,
			)
		}
	}()
	x.hook.LevelChanged(ctx, change)
}
