// Package memory provides an in-process store for tests and single-node
// development. Merge semantics match the database backends.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/levels"
	"github.com/xraph/levels/account"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/entitlement"
	"github.com/xraph/levels/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts map[account.Key]account.Record

	// Monthly activity storage
	activity map[activity.Key]activity.Record

	// Entitlement rules by scope
	rules map[string][]entitlement.Rule

	closed bool
}

func New() *Store {
	return &Store{
		accounts: make(map[account.Key]account.Record),
		activity: make(map[activity.Key]activity.Record),
		rules:    make(map[string][]entitlement.Rule),
	}
}

// Account Store implementation
func (s *Store) LoadAccount(_ context.Context, key account.Key) (*account.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, levels.ErrStoreClosed
	}
	if rec, ok := s.accounts[key]; ok {
		return &rec, nil
	}
	return nil, account.ErrNotFound
}

func (s *Store) BulkMergeXP(_ context.Context, records []*account.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return levels.ErrStoreClosed
	}
	for _, in := range records {
		cur, ok := s.accounts[in.Key]
		if !ok {
			s.accounts[in.Key] = *in
			continue
		}

		merged := *in
		if cur.LastMessageAt.After(merged.LastMessageAt) {
			merged.LastMessageAt = cur.LastMessageAt
		}
		if cur.LastActivityAt.After(merged.LastActivityAt) {
			merged.LastActivityAt = cur.LastActivityAt
		}
		s.accounts[in.Key] = merged
	}
	return nil
}

// PutAccount overwrites an account. Admin overrides use it before calling
// Engine.Invalidate.
func (s *Store) PutAccount(_ context.Context, rec *account.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return levels.ErrStoreClosed
	}
	s.accounts[rec.Key] = *rec
	return nil
}

// Activity Store implementation
func (s *Store) BulkMergeActivity(_ context.Context, records []*activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return levels.ErrStoreClosed
	}
	for _, in := range records {
		cur := s.activity[in.Key]
		cur.Key = in.Key
		cur.Messages += in.Messages
		cur.VoiceMinutes += in.VoiceMinutes
		s.activity[in.Key] = cur
	}
	return nil
}

func (s *Store) GetActivity(_ context.Context, key activity.Key) (*activity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, levels.ErrStoreClosed
	}
	if rec, ok := s.activity[key]; ok {
		return &rec, nil
	}
	return nil, activity.ErrNotFound
}

// Entitlement rule implementation
func (s *Store) ListRules(_ context.Context, scope string) ([]entitlement.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, levels.ErrStoreClosed
	}
	rules := s.rules[scope]
	out := make([]entitlement.Rule, len(rules))
	copy(out, rules)
	return out, nil
}

// PutRule adds or replaces the rule for a level threshold in scope.
func (s *Store) PutRule(_ context.Context, scope string, rule entitlement.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.rules[scope]
	for i, r := range rules {
		if r.Level == rule.Level {
			rules[i] = rule
			return nil
		}
	}
	s.rules[scope] = entitlement.Normalize(append(rules, rule))
	return nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return levels.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
