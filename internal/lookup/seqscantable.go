package lookup

import (
	"github.com/AdguardTeam/advtblock/rules"
)

// SeqScanTable is basically just a list of network rules that are scanned
// sequentially.  Here we put the rules that are not eligible for other tables.
type SeqScanTable struct {
	rules []*rules.NetworkRule
}

// type check
var _ Table = (*SeqScanTable)(nil)

// TryAdd implements the [Table] interface for *SeqScanTable.  It never adds
// the same rule text twice.
func (s *SeqScanTable) TryAdd(f *rules.NetworkRule, _ int64) (ok bool) {
	if containsRule(s.rules, f) {
		return false
	}

	s.rules = append(s.rules, f)

	return true
}

// MatchAll implements the [Table] interface for *SeqScanTable.
func (s *SeqScanTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	for _, rule := range s.rules {
		if rule.Match(r) {
			result = append(result, rule)
		}
	}

	return result
}

// Len returns the number of rules in the table.
func (s *SeqScanTable) Len() (n int) {
	return len(s.rules)
}

// containsRule is a helper function that checks if the specified rule is
// already in the array.
func containsRule(rules []*rules.NetworkRule, r *rules.NetworkRule) (ok bool) {
	for _, rule := range rules {
		if rule.RuleText == r.RuleText {
			return true
		}
	}

	return false
}
