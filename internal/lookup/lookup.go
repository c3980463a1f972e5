// Package lookup implements index structures that we use to improve matching
// speed in the engines.
package lookup

import "github.com/AdguardTeam/advtblock/rules"

// Table is a common interface for all lookup tables.
type Table interface {
	// TryAdd attempts to add the rule to the lookup table.  It returns
	// true/false depending on whether the rule is eligible for this lookup
	// table.
	TryAdd(f *rules.NetworkRule, storageIdx int64) (ok bool)

	// MatchAll finds all matching rules from this lookup table.
	MatchAll(r *rules.Request) (result []*rules.NetworkRule)
}

// ruleIn returns true if rule is already in result.  result is expected to be
// short, so a linear scan is fine.
func ruleIn(rule *rules.NetworkRule, result []*rules.NetworkRule) (ok bool) {
	for _, r := range result {
		if r == rule {
			return true
		}
	}

	return false
}
