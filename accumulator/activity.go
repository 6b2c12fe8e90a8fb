package accumulator

import (
	"sort"
	"sync"

	"github.com/xraph/levels/activity"
)

// DefaultVoiceMinutes is credited per voice tick when no amount is given.
const DefaultVoiceMinutes = 0.5

// Activity batches monthly message and voice-minute counters. It has no
// level logic and no side effects.
type Activity struct {
	mu      sync.Mutex
	entries map[activity.Key]*activity.Record
}

// NewActivity creates an empty activity accumulator.
func NewActivity() *Activity {
	return &Activity{entries: make(map[activity.Key]*activity.Record)}
}

// AddMessage counts one message.
func (a *Activity) AddMessage(key activity.Key) {
	a.add(key, 1, 0)
}

// AddVoiceMinutes credits voice minutes. Non-positive amounts credit
// DefaultVoiceMinutes.
func (a *Activity) AddVoiceMinutes(key activity.Key, minutes float64) {
	if minutes <= 0 {
		minutes = DefaultVoiceMinutes
	}
	a.add(key, 0, minutes)
}

// Len returns the number of cached records.
func (a *Activity) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Peek returns the unflushed counters of key.
func (a *Activity) Peek(key activity.Key) activity.Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.entries[key]; ok {
		return *r
	}
	return activity.Record{Key: key}
}

// Drain empties the cache and returns its records ordered by key.
func (a *Activity) Drain() []*activity.Record {
	a.mu.Lock()
	if len(a.entries) == 0 {
		a.mu.Unlock()
		return nil
	}
	drained := a.entries
	a.entries = make(map[activity.Key]*activity.Record)
	a.mu.Unlock()

	out := make([]*activity.Record, 0, len(drained))
	for _, r := range drained {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Requeue adds the counters of records whose flush failed back into the
// cache, summing them with anything recorded since the drain.
func (a *Activity) Requeue(records []*activity.Record) {
	for _, r := range records {
		if r == nil {
			continue
		}
		a.add(r.Key, r.Messages, r.VoiceMinutes)
	}
}

func (a *Activity) add(key activity.Key, messages int64, minutes float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.entries[key]
	if !ok {
		r = &activity.Record{Key: key}
		a.entries[key] = r
	}
	r.Messages += messages
	r.VoiceMinutes += minutes
}
