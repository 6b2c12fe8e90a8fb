package extension

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/levels"
	"github.com/xraph/levels/curve"
	"github.com/xraph/levels/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{"empty", Config{}, DefaultConfig()},
		{
			name: "keeps set values",
			in:   Config{XPFlushInterval: time.Minute, Curve: curve.Curve{A: 10, B: 20}},
			want: Config{
				XPFlushInterval:       time.Minute,
				ActivityFlushInterval: 5 * time.Minute,
				FlushTimeout:          30 * time.Second,
				BucketInterval:        5 * time.Minute,
				Curve:                 curve.Curve{A: 10, B: 20},
			},
		},
		{"invalid curve", Config{Curve: curve.Curve{A: -1, B: 5}}, DefaultConfig()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeWithDefaults(tt.in); got != tt.want {
				t.Errorf("mergeWithDefaults = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{XPFlushInterval: time.Minute}
	prog := Config{
		XPFlushInterval: time.Hour,
		FlushTimeout:    5 * time.Second,
		DisableMigrate:  true,
		Curve:           curve.Curve{A: 0, B: 100},
	}

	got := mergeConfigurations(yaml, prog)

	if got.XPFlushInterval != time.Minute {
		t.Errorf("XPFlushInterval = %v, file value should win", got.XPFlushInterval)
	}
	if got.FlushTimeout != 5*time.Second {
		t.Errorf("FlushTimeout = %v, programmatic value should fill the gap", got.FlushTimeout)
	}
	if !got.DisableMigrate {
		t.Error("DisableMigrate lost")
	}
	if got.Curve != (curve.Curve{A: 0, B: 100}) {
		t.Errorf("Curve = %+v", got.Curve)
	}
	if got.ActivityFlushInterval != DefaultConfig().ActivityFlushInterval {
		t.Errorf("ActivityFlushInterval = %v, want default", got.ActivityFlushInterval)
	}
}

func TestBuildLevelsOpts(t *testing.T) {
	e := New(
		WithCurve(curve.Curve{A: 0, B: 100}),
		WithDisableMigrate(),
	)
	e.config = mergeWithDefaults(e.config)

	eng, err := levels.New(memory.New(), e.buildLevelsOpts()...)
	if err != nil {
		t.Fatal(err)
	}
	if got := eng.Curve(); got != (curve.Curve{A: 0, B: 100}) {
		t.Errorf("curve = %+v", got)
	}
	if got := eng.Curve().ForLevelUp(1); got != 100 {
		t.Errorf("ForLevelUp(1) = %d, want 100", got)
	}
}

func TestStartBeforeRegister(t *testing.T) {
	e := New()
	if e.Engine() != nil {
		t.Fatal("engine set before Register")
	}
	if err := e.Start(context.Background()); err == nil {
		t.Error("Start before Register succeeded")
	}
	if err := e.Health(context.Background()); err == nil {
		t.Error("Health before Register succeeded")
	}
}
