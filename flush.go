package levels

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/levels/plugin"
)

// flushWorker runs flush on every tick until Stop. The final flush is done
// by Stop itself.
func (e *Engine) flushWorker(ctx context.Context, interval time.Duration, flush func(context.Context) error) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return

		case <-ticker.C:
			_ = flush(ctx) //nolint:errcheck // failures are logged and requeued by flush
		}
	}
}

// FlushXP drains the XP accumulator and merges the batch into the store.
// On failure the batch is requeued and the error is returned wrapped in
// ErrFlushFailed. At most one XP flush runs at a time.
func (e *Engine) FlushXP(ctx context.Context) error {
	e.xpFlushMu.Lock()
	defer e.xpFlushMu.Unlock()

	batch := e.xp.Drain()
	if batch.Len() == 0 {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	flushCtx, cancel := context.WithTimeout(ctx, e.flushTimeout)
	err := e.store.BulkMergeXP(flushCtx, batch.Records)
	cancel()

	if err != nil {
		e.xp.Requeue(batch)
		e.logger.Error("failed to flush xp batch",
			"batch_id", batch.ID.String(),
			"batch_size", batch.Len(),
			"error", err,
		)
		e.plugins.EmitFlushFailed(ctx, plugin.FlushXP, batch.Len(), err)
		return fmt.Errorf("%w: xp batch %s: %w", ErrFlushFailed, batch.ID, err)
	}

	e.xp.Ack(batch)

	elapsed := time.Since(start)
	e.plugins.EmitXPFlushed(ctx, batch.ID, batch.Len(), elapsed)

	e.logger.Debug("flushed xp batch",
		"batch_id", batch.ID.String(),
		"batch_size", batch.Len(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

// FlushActivity drains the activity accumulator and adds the counters to
// the store. On failure the counters are requeued; if the store applied part
// of the batch before failing, those counters are counted twice.
func (e *Engine) FlushActivity(ctx context.Context) error {
	e.activityFlushMu.Lock()
	defer e.activityFlushMu.Unlock()

	records := e.activity.Drain()
	if len(records) == 0 {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	flushCtx, cancel := context.WithTimeout(ctx, e.flushTimeout)
	err := e.store.BulkMergeActivity(flushCtx, records)
	cancel()

	if err != nil {
		e.activity.Requeue(records)
		e.logger.Error("failed to flush activity batch",
			"batch_size", len(records),
			"error", err,
		)
		e.plugins.EmitFlushFailed(ctx, plugin.FlushActivity, len(records), err)
		return fmt.Errorf("%w: activity: %w", ErrFlushFailed, err)
	}

	elapsed := time.Since(start)
	e.plugins.EmitActivityFlushed(ctx, len(records), elapsed)

	e.logger.Debug("flushed activity batch",
		"batch_size", len(records),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}
