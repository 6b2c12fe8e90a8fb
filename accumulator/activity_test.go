package accumulator

import (
	"sync"
	"testing"

	"github.com/xraph/levels/activity"
)

var march = activity.Key{Scope: "guild", Subject: "alice", Period: "2025-03"}

func TestActivityAdd(t *testing.T) {
	a := NewActivity()
	a.AddMessage(march)
	a.AddMessage(march)
	a.AddVoiceMinutes(march, 0)
	a.AddVoiceMinutes(march, 2)

	got := a.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d records, want 1", len(got))
	}
	if got[0].Messages != 2 || got[0].VoiceMinutes != 2.5 {
		t.Errorf("record = %+v, want 2 messages 2.5 minutes", got[0])
	}
}

func TestActivityDrainTwice(t *testing.T) {
	a := NewActivity()
	a.AddMessage(march)

	if got := a.Drain(); len(got) != 1 {
		t.Fatalf("first drain = %d records", len(got))
	}
	if got := a.Drain(); len(got) != 0 {
		t.Errorf("second drain = %v, want empty", got)
	}
}

func TestActivityRequeueAfterFailure(t *testing.T) {
	a := NewActivity()
	a.AddMessage(march)
	a.AddMessage(march)

	failed := a.Drain()
	a.Requeue(failed)

	got := a.Drain()
	if len(got) != 1 || got[0].Messages != 2 {
		t.Errorf("after requeue = %+v, want 2 messages", got)
	}
}

func TestActivityRequeueMergesNewer(t *testing.T) {
	a := NewActivity()
	a.AddMessage(march)

	failed := a.Drain()
	a.AddMessage(march)
	a.AddVoiceMinutes(march, 1)
	a.Requeue(failed)

	got := a.Drain()
	if len(got) != 1 || got[0].Messages != 2 || got[0].VoiceMinutes != 1 {
		t.Errorf("after requeue = %+v", got)
	}
}

func TestActivityPeriodsAreSeparate(t *testing.T) {
	a := NewActivity()
	april := march
	april.Period = "2025-04"

	a.AddMessage(march)
	a.AddMessage(april)

	got := a.Drain()
	if len(got) != 2 || got[0].Key != march || got[1].Key != april {
		t.Errorf("drained %+v", got)
	}
}

func TestActivityConcurrentAdds(t *testing.T) {
	a := NewActivity()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AddMessage(march)
		}()
	}
	wg.Wait()

	if got := a.Drain(); got[0].Messages != 50 {
		t.Errorf("messages = %d, want 50", got[0].Messages)
	}
}

func TestActivityPeek(t *testing.T) {
	a := NewActivity()
	if got := a.Peek(march); got.Messages != 0 || got.Key != march {
		t.Errorf("Peek on empty = %+v", got)
	}

	a.AddMessage(march)
	if got := a.Peek(march); got.Messages != 1 {
		t.Errorf("Peek = %+v, want 1 message", got)
	}
	if a.Len() != 1 {
		t.Errorf("Peek changed the cache")
	}
}
