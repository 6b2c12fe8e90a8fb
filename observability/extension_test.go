package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/id"
)

type fakeMetric struct {
	mu       sync.Mutex
	total    float64
	observed []float64
}

func (f *fakeMetric) Inc() { f.Add(1) }

func (f *fakeMetric) Add(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total += v
}

func (f *fakeMetric) Observe(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, v)
}

type fakeFactory map[string]*fakeMetric

func (f fakeFactory) get(name string) *fakeMetric {
	if m, ok := f[name]; ok {
		return m
	}
	m := &fakeMetric{}
	f[name] = m
	return m
}

func (f fakeFactory) Counter(name string) Counter     { return f.get(name) }
func (f fakeFactory) Histogram(name string) Histogram { return f.get(name) }

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestMetricsExtension(t *testing.T) {
	ctx := context.Background()
	f := fakeFactory{}
	m := NewMetricsExtension(f)
	key := account.Key{Scope: "guild", Subject: "alice"}

	must(t, m.OnLevelChanged(ctx, account.LevelChange{Key: key, From: 1, To: 3}))
	must(t, m.OnLevelChanged(ctx, account.LevelChange{Key: key, From: 3, To: 2}))
	must(t, m.OnEntitlementsReconciled(ctx, key, 3, entitlement.Resolution{ToGrant: "B", ToRevoke: []string{"A", "Z"}}))
	must(t, m.OnXPFlushed(ctx, id.NewBatchID(), 12, 40*time.Millisecond))
	must(t, m.OnFlushFailed(ctx, "activity", 5, errors.New("down")))

	tests := []struct {
		name string
		want float64
	}{
		{"levels.level.ups", 1},
		{"levels.level.downs", 1},
		{"levels.entitlement.grants", 1},
		{"levels.entitlement.revokes", 2},
		{"levels.flush.xp.total", 1},
		{"levels.flush.failures", 1},
		{"levels.flush.requeued", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f[tt.name].total; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if got := f["levels.flush.xp.batch_size"].observed; len(got) != 1 || got[0] != 12 {
		t.Errorf("batch size observations = %v", got)
	}
	if got := f["levels.flush.xp.latency_ms"].observed; len(got) != 1 || got[0] != 40 {
		t.Errorf("latency observations = %v", got)
	}
}

func TestPrometheusFactory(t *testing.T) {
	f := NewPrometheusFactory(nil)
	m := NewMetricsExtension(f)
	m.LevelUps.Inc()
	m.LevelUps.Add(2)

	if f.Counter("levels.level.ups") != m.LevelUps {
		t.Error("same name returned a different collector")
	}

	families, err := f.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "levels_level_ups" {
			continue
		}
		found = true
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 3 {
			t.Errorf("levels_level_ups = %v, want 3", got)
		}
	}
	if !found {
		t.Error("levels_level_ups not registered")
	}
}
