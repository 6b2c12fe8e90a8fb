package activity

import (
	"testing"
	"time"
)

func TestPeriodOf(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	tests := []struct {
		name string
		in   time.Time
		want Period
	}{
		{"mid month", time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC), "2026-10"},
		{"first instant", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-01"},
		{"local zone rolls back", time.Date(2026, 11, 1, 5, 0, 0, 0, loc), "2026-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeriodOf(tt.in); got != tt.want {
				t.Errorf("PeriodOf = %q, want %q", got, tt.want)
			}
		})
	}
}
