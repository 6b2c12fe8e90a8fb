package entitlement

import (
	"context"
	"sync"
)

// Gateway applies entitlements on the external platform. Calls are best
// effort: the engine logs failures and never rolls back the level change
// that caused them.
type Gateway interface {
	// Held returns which of ids the subject currently holds.
	Held(ctx context.Context, scope, subject string, ids []string) ([]string, error)
	Grant(ctx context.Context, scope, subject, entitlementID string) error
	Revoke(ctx context.Context, scope, subject, entitlementID string) error
}

// RuleSource provides the rule set of a scope. Rules are read-only here.
type RuleSource interface {
	ListRules(ctx context.Context, scope string) ([]Rule, error)
}

// StaticRules is an in-process RuleSource keyed by scope.
type StaticRules struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

// NewStaticRules creates a StaticRules seeded with rules.
func NewStaticRules(rules map[string][]Rule) *StaticRules {
	s := &StaticRules{rules: make(map[string][]Rule, len(rules))}
	for scope, rs := range rules {
		s.rules[scope] = Normalize(rs)
	}
	return s
}

// Set replaces the rules of scope.
func (s *StaticRules) Set(scope string, rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[scope] = Normalize(rules)
}

// ListRules implements RuleSource.
func (s *StaticRules) ListRules(_ context.Context, scope string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := s.rules[scope]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out, nil
}
