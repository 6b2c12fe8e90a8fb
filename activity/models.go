// Package activity defines monthly activity counters.
package activity

import (
	"time"

	"github.com/xraph/levels/id"
)

// Period is a calendar month in "YYYY-MM" form.
type Period string

// PeriodOf returns the UTC calendar month containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format("2006-01"))
}

// Key identifies the counters of one subject for one period.
type Key struct {
	Scope   string `json:"scope"`
	Subject string `json:"subject"`
	Period  Period `json:"period"`
}

// String returns "scope:subject:period".
func (k Key) String() string { return k.Scope + ":" + k.Subject + ":" + string(k.Period) }

// ID returns the storage id of the key. Unlike String it is unambiguous
// when a part contains ':'.
func (k Key) ID() string { return id.Compose(k.Scope, k.Subject, string(k.Period)) }

// Record holds additive counters. Stores add them to what is already
// persisted; they never overwrite.
type Record struct {
	Key          Key     `json:"key"`
	Messages     int64   `json:"messages"`
	VoiceMinutes float64 `json:"voice_minutes"`
}
