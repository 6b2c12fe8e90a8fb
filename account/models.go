// Package account defines the per-subject XP account held by the write-behind
// cache and the persistence contract for it.
package account

import (
	"time"

	"github.com/xraph/levels/id"
)

// Key identifies one accumulation slot.
type Key struct {
	Scope   string `json:"scope"`
	Subject string `json:"subject"`
}

// String returns "scope:subject".
func (k Key) String() string { return k.Scope + ":" + k.Subject }

// ID returns the storage id of the key. Unlike String it is unambiguous
// when the scope or subject contains ':'.
func (k Key) ID() string { return id.Compose(k.Scope, k.Subject) }

// Valid reports whether both parts of the key are set.
func (k Key) Valid() bool { return k.Scope != "" && k.Subject != "" }

// Kind is the activity that produced an XP delta.
type Kind string

const (
	// KindMessage is one chat message.
	KindMessage Kind = "message"
	// KindVoice is one voice-presence tick.
	KindVoice Kind = "voice"
	// KindManual is an administrative correction. It moves XP but does not
	// count as activity.
	KindManual Kind = "manual"
)

// Bucket counts activity since Start, which is aligned to the bucket
// interval.
type Bucket struct {
	Start      time.Time `json:"start"`
	Messages   int64     `json:"messages"`
	VoiceUnits int64     `json:"voice_units"`
}

// Record is the persisted shape of an account and the snapshot handed to the
// flush path. XP is the XP earned within Level, not a cumulative total.
type Record struct {
	Key            Key       `json:"key"`
	Level          int       `json:"level"`
	XP             int64     `json:"xp"`
	Bucket         Bucket    `json:"bucket"`
	LastMessageAt  time.Time `json:"last_message_at,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// NewRecord returns the state of an account that has never been stored.
func NewRecord(key Key) *Record {
	return &Record{Key: key, Level: 1}
}

// Standing is the blended read view: persisted plus not-yet-flushed state.
type Standing struct {
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// LevelChange describes one synchronous level transition. It is produced at
// most once per accepted delta, however many thresholds were crossed.
type LevelChange struct {
	ID   id.LevelChangeID `json:"id"`
	Key  Key              `json:"key"`
	From int              `json:"from"`
	To   int              `json:"to"`
	At   time.Time        `json:"at"`
}

// Up reports whether the change is a level-up.
func (c LevelChange) Up() bool { return c.To > c.From }
