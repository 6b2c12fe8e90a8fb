package entitlement

import (
	"slices"
	"sort"
)

// Resolve picks the single best entitlement for level and computes what must
// change given the ruled entitlements the subject currently holds. Rules may
// be unordered; when two rules share a threshold the first one wins.
// Held ids that no rule mentions are ignored.
func Resolve(level int, rules []Rule, held []string) Resolution {
	ordered := Normalize(rules)

	var res Resolution
	for _, r := range ordered {
		if r.Level > level {
			break
		}
		res.Best = r.EntitlementID
	}

	// Rules dropped as duplicate thresholds still count as ruled, so their
	// entitlements are revoked when held.
	ruled := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.EntitlementID != "" {
			ruled[r.EntitlementID] = true
		}
	}

	holdsBest := false
	seen := make(map[string]bool, len(held))
	for _, h := range held {
		if !ruled[h] || seen[h] {
			continue
		}
		seen[h] = true
		if h == res.Best {
			holdsBest = true
			continue
		}
		res.ToRevoke = append(res.ToRevoke, h)
	}
	sort.Strings(res.ToRevoke)

	if res.Best != "" && !holdsBest {
		res.ToGrant = res.Best
	}
	return res
}

// Normalize returns rules sorted by ascending level with duplicate
// thresholds and empty ids removed. The input is not modified.
func Normalize(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.EntitlementID == "" {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return slices.CompactFunc(out, func(a, b Rule) bool { return a.Level == b.Level })
}

// IDs returns the entitlement ids referenced by rules.
func IDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.EntitlementID != "" && !slices.Contains(ids, r.EntitlementID) {
			ids = append(ids, r.EntitlementID)
		}
	}
	return ids
}
