package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*AuditEvent
	err    error
}

func (r *memRecorder) Record(_ context.Context, evt *AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

var testKey = account.Key{Scope: "guild", Subject: "alice"}

func TestLevelChangedActions(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     string
	}{
		{"up", 1, 3, ActionLevelUp},
		{"down", 3, 2, ActionLevelDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			e := New(rec)
			change := account.LevelChange{ID: id.NewLevelChangeID(), Key: testKey, From: tt.from, To: tt.to}
			if err := e.OnLevelChanged(context.Background(), change); err != nil {
				t.Fatal(err)
			}
			if len(rec.events) != 1 {
				t.Fatalf("events = %d, want 1", len(rec.events))
			}
			evt := rec.events[0]
			if evt.Action != tt.want || evt.ResourceID != "guild:alice" || evt.Metadata["to"] != tt.to {
				t.Errorf("event = %+v", evt)
			}
			if evt.ID.Prefix() != id.PrefixAuditEvent {
				t.Errorf("event id prefix = %q", evt.ID.Prefix())
			}
		})
	}
}

func TestEmptyResolutionNotRecorded(t *testing.T) {
	rec := &memRecorder{}
	e := New(rec)
	ctx := context.Background()

	must(t, e.OnEntitlementsReconciled(ctx, testKey, 4, entitlement.Resolution{}))
	must(t, e.OnEntitlementsReconciled(ctx, testKey, 12, entitlement.Resolution{ToGrant: "B"}))

	if len(rec.events) != 1 || rec.events[0].Metadata["granted"] != "B" {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestFlushFailedCarriesReason(t *testing.T) {
	rec := &memRecorder{}
	e := New(rec)
	if err := e.OnFlushFailed(context.Background(), "xp", 7, errors.New("connection reset")); err != nil {
		t.Fatal(err)
	}
	evt := rec.events[0]
	if evt.Outcome != OutcomeFailure || evt.Reason != "connection reset" || evt.Metadata["requeued"] != 7 {
		t.Errorf("event = %+v", evt)
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	change := account.LevelChange{Key: testKey, From: 1, To: 2}

	rec := &memRecorder{}
	e := New(rec, WithDisabledActions(ActionLevelUp))
	must(t, e.OnLevelChanged(ctx, change))
	must(t, e.OnAccountInvalidated(ctx, testKey))
	if len(rec.events) != 1 || rec.events[0].Action != ActionAccountInvalidated {
		t.Errorf("disabled filter events = %+v", rec.events)
	}

	rec = &memRecorder{}
	e = New(rec, WithEnabledActions(ActionLevelUp))
	must(t, e.OnLevelChanged(ctx, change))
	must(t, e.OnAccountInvalidated(ctx, testKey))
	if len(rec.events) != 1 || rec.events[0].Action != ActionLevelUp {
		t.Errorf("enabled filter events = %+v", rec.events)
	}
}

func TestRecorderFailureSwallowed(t *testing.T) {
	rec := &memRecorder{err: errors.New("audit store down")}
	e := New(rec, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := e.OnAccountInvalidated(context.Background(), testKey); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
