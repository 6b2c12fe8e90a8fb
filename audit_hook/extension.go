// Package audithook bridges levels events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
	"github.com/xraph/levels/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnLevelChanged           = (*Extension)(nil)
	_ plugin.OnEntitlementsReconciled = (*Extension)(nil)
	_ plugin.OnAccountInvalidated     = (*Extension)(nil)
	_ plugin.OnFlushFailed            = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         id.AuditEventID `json:"id"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	Category   string          `json:"category"`
	ResourceID string          `json:"resource_id,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Outcome    string          `json:"outcome"`
	Severity   string          `json:"severity"`
	Reason     string          `json:"reason,omitempty"`
	At         time.Time       `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges levels events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Level hooks
// ──────────────────────────────────────────────────

// OnLevelChanged implements plugin.OnLevelChanged.
func (e *Extension) OnLevelChanged(ctx context.Context, change account.LevelChange) error {
	action := ActionLevelUp
	if !change.Up() {
		action = ActionLevelDown
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAccount, change.Key.String(), CategoryProgression, nil,
		"change_id", change.ID.String(),
		"scope", change.Key.Scope,
		"subject", change.Key.Subject,
		"from", change.From,
		"to", change.To,
	)
}

// OnEntitlementsReconciled implements plugin.OnEntitlementsReconciled.
// Empty resolutions are not recorded.
func (e *Extension) OnEntitlementsReconciled(ctx context.Context, key account.Key, level int, res entitlement.Resolution) error {
	if res.Empty() {
		return nil
	}
	return e.record(ctx, ActionEntitlementsReconciled, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, key.String(), CategoryAccess, nil,
		"level", level,
		"granted", res.ToGrant,
		"revoked", res.ToRevoke,
	)
}

// OnAccountInvalidated implements plugin.OnAccountInvalidated.
func (e *Extension) OnAccountInvalidated(ctx context.Context, key account.Key) error {
	return e.record(ctx, ActionAccountInvalidated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, key.String(), CategoryAdmin, nil,
		"scope", key.Scope,
		"subject", key.Subject,
	)
}

// ──────────────────────────────────────────────────
// Flush hooks
// ──────────────────────────────────────────────────

// OnFlushFailed implements plugin.OnFlushFailed.
func (e *Extension) OnFlushFailed(ctx context.Context, kind string, count int, err error) error {
	return e.record(ctx, ActionFlushFailed, SeverityError, OutcomeFailure,
		ResourceFlush, kind, CategoryPersistence, err,
		"kind", kind,
		"requeued", count,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		At:         time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
