package accumulator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/curve"
)

var alice = account.Key{Scope: "guild", Subject: "alice"}

// fakeLoader serves records from a map and counts calls.
type fakeLoader struct {
	mu      sync.Mutex
	records map[account.Key]account.Record
	calls   atomic.Int32
	err     error
	gate    chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{records: make(map[account.Key]account.Record)}
}

func (f *fakeLoader) LoadAccount(ctx context.Context, key account.Key) (*account.Record, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeLoader) put(rec account.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.Key] = rec
}

type hookRecorder struct {
	mu      sync.Mutex
	changes []account.LevelChange
}

func (h *hookRecorder) LevelChanged(_ context.Context, c account.LevelChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, c)
}

func (h *hookRecorder) all() []account.LevelChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]account.LevelChange(nil), h.changes...)
}

func mustRead(t *testing.T, x *XP, key account.Key) account.Standing {
	t.Helper()
	s, err := x.ReadCurrent(context.Background(), key)
	if err != nil {
		t.Fatalf("ReadCurrent: %v", err)
	}
	return s
}

func mustAdd(t *testing.T, x *XP, key account.Key, amount int64, kind account.Kind) {
	t.Helper()
	if err := x.AddDelta(context.Background(), key, amount, kind); err != nil {
		t.Fatalf("AddDelta(%d): %v", amount, err)
	}
}

func TestAddDeltaAccumulates(t *testing.T) {
	split := NewXP(newFakeLoader())
	mustAdd(t, split, alice, 5, account.KindMessage)
	mustAdd(t, split, alice, 5, account.KindMessage)
	mustAdd(t, split, alice, 10, account.KindMessage)

	whole := NewXP(newFakeLoader())
	mustAdd(t, whole, alice, 20, account.KindMessage)

	a, b := mustRead(t, split, alice), mustRead(t, whole, alice)
	if a != b || a.XP != 20 || a.Level != 1 {
		t.Errorf("split = %+v, whole = %+v, want level 1 xp 20", a, b)
	}
}

func TestMultiLevelJump(t *testing.T) {
	hook := &hookRecorder{}
	x := NewXP(newFakeLoader(), WithLevelHook(hook))

	mustAdd(t, x, alice, curve.ForLevelUp(1)+curve.ForLevelUp(2)+1, account.KindManual)

	got := mustRead(t, x, alice)
	if got.Level != 3 || got.XP != 1 {
		t.Errorf("got %+v, want level 3 xp 1", got)
	}

	changes := hook.all()
	if len(changes) != 1 {
		t.Fatalf("hook called %d times, want 1", len(changes))
	}
	if changes[0].From != 1 || changes[0].To != 3 || !changes[0].Up() {
		t.Errorf("change = %+v", changes[0])
	}
	if changes[0].ID.IsNil() {
		t.Error("level change has no id")
	}
}

func TestFirstLevelUpFromAbsentAccount(t *testing.T) {
	hook := &hookRecorder{}
	x := NewXP(newFakeLoader(), WithLevelHook(hook))

	mustAdd(t, x, alice, curve.ForLevelUp(1), account.KindMessage)

	if got := mustRead(t, x, alice); got.Level != 2 || got.XP != 0 {
		t.Errorf("got %+v, want level 2 xp 0", got)
	}
	if changes := hook.all(); len(changes) != 1 || changes[0].To != 2 {
		t.Errorf("changes = %+v, want one change to level 2", changes)
	}
}

func TestLevelDownFloor(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 4, XP: 30})
	hook := &hookRecorder{}
	x := NewXP(loader, WithLevelHook(hook))

	for range 5 {
		mustAdd(t, x, alice, -1_000_000, account.KindManual)
		got := mustRead(t, x, alice)
		if got.Level < 1 || got.XP < 0 {
			t.Fatalf("got %+v, level or xp below floor", got)
		}
	}

	if got := mustRead(t, x, alice); got.Level != 1 || got.XP != 0 {
		t.Errorf("got %+v, want level 1 xp 0", got)
	}
	if changes := hook.all(); len(changes) != 1 || changes[0].To != 1 || changes[0].Up() {
		t.Errorf("changes = %+v, want one level-down", changes)
	}
}

func TestLevelDownKeepsRemainder(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 3, XP: 10})
	x := NewXP(loader)

	// Level 3 -> 2 adds back ForLevelUp(2) = 300.
	mustAdd(t, x, alice, -20, account.KindManual)

	if got := mustRead(t, x, alice); got.Level != 2 || got.XP != 290 {
		t.Errorf("got %+v, want level 2 xp 290", got)
	}
}

func TestZeroAmountIsNoop(t *testing.T) {
	loader := newFakeLoader()
	x := NewXP(loader)

	mustAdd(t, x, alice, 0, account.KindMessage)

	if x.Len() != 0 {
		t.Errorf("Len = %d, want 0", x.Len())
	}
	if n := loader.calls.Load(); n != 0 {
		t.Errorf("loader called %d times, want 0", n)
	}
}

func TestInvalidKind(t *testing.T) {
	x := NewXP(newFakeLoader())
	err := x.AddDelta(context.Background(), alice, 5, account.Kind("emoji"))
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("err = %v, want ErrInvalidKind", err)
	}
}

func TestLoadErrorPropagates(t *testing.T) {
	loader := newFakeLoader()
	loader.err = errors.New("connection refused")
	x := NewXP(loader)

	if err := x.AddDelta(context.Background(), alice, 5, account.KindMessage); err == nil {
		t.Fatal("expected load error")
	}
	if _, err := x.ReadCurrent(context.Background(), alice); err == nil {
		t.Fatal("expected load error from ReadCurrent")
	}
	if x.Len() != 0 {
		t.Errorf("failed load cached an entry")
	}
}

func TestReadCurrentUncached(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 7, XP: 42})
	x := NewXP(loader)

	if got := mustRead(t, x, alice); got.Level != 7 || got.XP != 42 {
		t.Errorf("got %+v, want level 7 xp 42", got)
	}
	mustAdd(t, x, alice, 1, account.KindMessage)
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if b := x.Drain(); b.Len() != 1 || b.Records[0].XP != 43 {
		t.Errorf("drained %+v", b)
	}
}

func TestBucketAndTimestamps(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	x := NewXP(newFakeLoader(), WithClock(func() time.Time { return now }))

	mustAdd(t, x, alice, 5, account.KindMessage)
	mustAdd(t, x, alice, 3, account.KindVoice)
	now = now.Add(10 * time.Minute)
	mustAdd(t, x, alice, 3, account.KindVoice)
	mustAdd(t, x, alice, 100, account.KindManual)

	b := x.Drain()
	if b.Len() != 1 {
		t.Fatalf("drained %d records, want 1", b.Len())
	}
	rec := b.Records[0]

	wantStart := time.Date(2025, 3, 14, 9, 35, 0, 0, time.UTC)
	if !rec.Bucket.Start.Equal(wantStart) {
		t.Errorf("bucket start = %v, want %v", rec.Bucket.Start, wantStart)
	}
	if rec.Bucket.Messages != 1 || rec.Bucket.VoiceUnits != 2 {
		t.Errorf("bucket = %+v, want 1 message 2 voice units", rec.Bucket)
	}
	if !rec.LastMessageAt.Equal(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)) {
		t.Errorf("last message at = %v", rec.LastMessageAt)
	}
	if !rec.LastActivityAt.Equal(now) {
		t.Errorf("last activity at = %v, want %v", rec.LastActivityAt, now)
	}
	if rec.XP != 111 {
		t.Errorf("xp = %d, want 111", rec.XP)
	}
}

func TestDrainTwice(t *testing.T) {
	x := NewXP(newFakeLoader())
	mustAdd(t, x, alice, 5, account.KindMessage)
	mustAdd(t, x, account.Key{Scope: "guild", Subject: "bob"}, 5, account.KindMessage)

	if b := x.Drain(); b.Len() != 2 {
		t.Fatalf("first drain = %d records, want 2", b.Len())
	}
	if b := x.Drain(); b != nil {
		t.Errorf("second drain = %+v, want nil", b)
	}
}

func TestDrainSkipsReadOnlyEntries(t *testing.T) {
	x := NewXP(newFakeLoader())
	mustRead(t, x, alice)

	if b := x.Drain(); b != nil {
		t.Errorf("drain = %+v, want nil", b)
	}
	if x.Len() != 0 {
		t.Errorf("Len = %d after drain", x.Len())
	}
}

func TestRequeueRestoresBatch(t *testing.T) {
	loader := newFakeLoader()
	x := NewXP(loader)
	mustAdd(t, x, alice, 40, account.KindMessage)

	b := x.Drain()
	x.Requeue(b)

	if got := mustRead(t, x, alice); got.XP != 40 {
		t.Errorf("xp = %d, want 40", got.XP)
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	again := x.Drain()
	if again.Len() != 1 || again.Records[0].XP != 40 {
		t.Errorf("re-drained %+v", again)
	}
}

func TestInFlightSeeding(t *testing.T) {
	loader := newFakeLoader()
	x := NewXP(loader)
	mustAdd(t, x, alice, 40, account.KindMessage)

	b := x.Drain()

	// Storage has not seen the batch yet; the new entry must start from it.
	mustAdd(t, x, alice, 2, account.KindMessage)
	if got := mustRead(t, x, alice); got.XP != 42 {
		t.Errorf("xp = %d, want 42", got.XP)
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}

	t.Run("ack", func(t *testing.T) {
		x.Ack(b)
		next := x.Drain()
		if next.Len() != 1 || next.Records[0].XP != 42 {
			t.Errorf("next batch = %+v, want xp 42", next)
		}
		x.Ack(next)
	})
}

func TestRequeueAfterSeedingDoesNotDoubleApply(t *testing.T) {
	x := NewXP(newFakeLoader())
	mustAdd(t, x, alice, 40, account.KindMessage)

	b := x.Drain()
	mustAdd(t, x, alice, 2, account.KindMessage)
	x.Requeue(b)

	if got := mustRead(t, x, alice); got.XP != 42 {
		t.Errorf("xp = %d, want 42", got.XP)
	}
	next := x.Drain()
	if next.Len() != 1 || next.Records[0].XP != 42 || next.Records[0].Bucket.Messages != 2 {
		t.Errorf("next batch = %+v", next)
	}
}

func TestInvalidateDuringFlush(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 5, XP: 7})
	x := NewXP(loader)
	mustAdd(t, x, alice, 40, account.KindMessage)

	b := x.Drain()
	x.Invalidate(alice)
	x.Requeue(b)

	if got := mustRead(t, x, alice); got.Level != 5 || got.XP != 7 {
		t.Errorf("got %+v, want stored level 5 xp 7", got)
	}
	if x.Drain() != nil {
		t.Error("requeue resurrected an invalidated record")
	}
}

func TestInvalidateReloads(t *testing.T) {
	loader := newFakeLoader()
	x := NewXP(loader)
	mustAdd(t, x, alice, 5, account.KindMessage)

	loader.put(account.Record{Key: alice, Level: 9, XP: 1})
	x.Invalidate(alice)

	if got := mustRead(t, x, alice); got.Level != 9 || got.XP != 1 {
		t.Errorf("got %+v, want level 9 xp 1", got)
	}
}

func TestConcurrentFirstTouchLoadsOnce(t *testing.T) {
	loader := newFakeLoader()
	loader.gate = make(chan struct{})
	x := NewXP(loader)

	const workers = 16
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := x.AddDelta(context.Background(), alice, 1, account.KindMessage); err != nil {
				t.Errorf("AddDelta: %v", err)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if got := mustRead(t, x, alice); got.XP != workers {
		t.Errorf("xp = %d, want %d", got.XP, workers)
	}
}

func TestInvalidateDuringLoad(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 2, XP: 0})
	loader.gate = make(chan struct{})
	x := NewXP(loader)

	done := make(chan account.Standing)
	go func() {
		s, _ := x.ReadCurrent(context.Background(), alice) //nolint:errcheck // checked via standing
		done <- s
	}()

	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	loader.put(account.Record{Key: alice, Level: 6, XP: 3})
	x.Invalidate(alice)
	close(loader.gate)

	if got := <-done; got.Level != 6 || got.XP != 3 {
		t.Errorf("got %+v, want reloaded level 6 xp 3", got)
	}
	if n := loader.calls.Load(); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestWaiterHonorsContext(t *testing.T) {
	loader := newFakeLoader()
	loader.gate = make(chan struct{})
	defer close(loader.gate)
	x := NewXP(loader)

	go x.ReadCurrent(context.Background(), alice) //nolint:errcheck // leader blocks on the gate
	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := x.ReadCurrent(ctx, alice); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestWaiterRetriesAfterLeaderCancel(t *testing.T) {
	loader := newFakeLoader()
	loader.put(account.Record{Key: alice, Level: 4, XP: 9})
	loader.gate = make(chan struct{})
	x := NewXP(loader)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := x.ReadCurrent(leaderCtx, alice)
		leaderErr <- err
	}()
	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		s   account.Standing
		err error
	}
	waiter := make(chan result, 1)
	go func() {
		s, err := x.ReadCurrent(context.Background(), alice)
		waiter <- result{s, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("leader err = %v, want canceled", err)
	}
	close(loader.gate)

	got := <-waiter
	if got.err != nil {
		t.Fatalf("waiter err = %v, want nil", got.err)
	}
	if got.s.Level != 4 || got.s.XP != 9 {
		t.Errorf("waiter standing = %+v, want level 4 xp 9", got.s)
	}
}

func TestWaiterGetsLoaderFailure(t *testing.T) {
	loader := newFakeLoader()
	loader.err = errors.New("store down")
	loader.gate = make(chan struct{})
	x := NewXP(loader)

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := x.ReadCurrent(context.Background(), alice)
			errs <- err
		}()
	}
	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(loader.gate)

	for range 2 {
		if err := <-errs; err == nil || isContextErr(err) {
			t.Errorf("err = %v, want store failure", err)
		}
	}
}

// TestDrainBoundaryUnderConcurrentAdds races writers against a flusher that
// alternates between persisting and failing. Every accepted delta must end
// up persisted exactly once.
func TestDrainBoundaryUnderConcurrentAdds(t *testing.T) {
	loader := newFakeLoader()
	x := NewXP(loader)

	const (
		workers   = 8
		perWorker = 250
		delta     = 7
	)

	stop := make(chan struct{})
	flusherDone := make(chan struct{})
	flushOnce := func(persist bool) bool {
		b := x.Drain()
		if b == nil {
			return false
		}
		if !persist {
			x.Requeue(b)
			return true
		}
		for _, rec := range b.Records {
			loader.put(*rec)
		}
		x.Ack(b)
		return true
	}

	go func() {
		defer close(flusherDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			flushOnce(i%3 != 0)
			time.Sleep(50 * time.Microsecond)
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				if err := x.AddDelta(context.Background(), alice, delta, account.KindMessage); err != nil {
					t.Errorf("AddDelta: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-flusherDone

	for flushOnce(true) {
	}

	loader.mu.Lock()
	rec := loader.records[alice]
	loader.mu.Unlock()

	want := int64(workers * perWorker * delta)
	if got := curve.Default().Total(rec.Level, rec.XP); got != want {
		t.Errorf("persisted total = %d (level %d xp %d), want %d", got, rec.Level, rec.XP, want)
	}
	if got := mustRead(t, x, alice); got.Level != rec.Level || got.XP != rec.XP {
		t.Errorf("cached %+v, persisted level %d xp %d", got, rec.Level, rec.XP)
	}
}

func TestHookPanicIsContained(t *testing.T) {
	x := NewXP(newFakeLoader(), WithLevelHook(LevelHookFunc(func(context.Context, account.LevelChange) {
		panic("boom")
	})))

	mustAdd(t, x, alice, curve.ForLevelUp(1), account.KindMessage)
	if got := mustRead(t, x, alice); got.Level != 2 {
		t.Errorf("level = %d, want 2", got.Level)
	}
}

func TestCustomCurve(t *testing.T) {
	c := curve.Curve{A: 0, B: 10}
	x := NewXP(newFakeLoader(), WithCurve(c), WithCurve(curve.Curve{A: -1}))

	mustAdd(t, x, alice, 25, account.KindManual)
	if got := mustRead(t, x, alice); got.Level != 3 || got.XP != 5 {
		t.Errorf("got %+v, want level 3 xp 5", got)
	}
}
