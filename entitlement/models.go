// Package entitlement decides which level reward a subject should hold.
package entitlement

// Rule grants EntitlementID to subjects at or above Level.
type Rule struct {
	Level         int    `json:"level"`
	EntitlementID string `json:"entitlement_id"`
}

// Resolution is the outcome of Resolve. Best is empty when no rule
// qualifies.
type Resolution struct {
	Best     string   `json:"best,omitempty"`
	ToGrant  string   `json:"to_grant,omitempty"`
	ToRevoke []string `json:"to_revoke,omitempty"`
}

// Empty reports whether the resolution requires no grant or revoke.
func (r Resolution) Empty() bool {
	return r.ToGrant == "" && len(r.ToRevoke) == 0
}
