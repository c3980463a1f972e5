package advtblock

import (
	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/internal/lookup"
	"github.com/AdguardTeam/advtblock/rules"
)

// NetworkEngineConfig is the configuration structure for a *NetworkEngine.
type NetworkEngineConfig struct {
	// Storage is the storage with the rules.  Only the network rules from it
	// are used.  It must not be nil.
	Storage *filterlist.RuleStorage

	// ImportantExceptionWinsTies, if true, makes an important exception
	// allow a request when its specificity equals the one of the most
	// specific matching important blocking rule.  By default blocking wins
	// such ties.
	ImportantExceptionWinsTies bool
}

// NetworkEngine is the engine that supports quick search over network rules.
// It is immutable after creation and safe for concurrent use.
type NetworkEngine struct {
	// ruleStorage is a storage for the network rules.  We try to avoid keeping
	// rules.NetworkRule structs in the lookup tables, so instead of that we
	// use their indexes and retrieve them from the storage when it's needed.
	ruleStorage *filterlist.RuleStorage

	// lookupTables is the array of lookup tables which we need to speed up
	// the matching speed.  Note, that the order of lookup tables is very
	// important, we'll try to add rules to the faster table first.  If it's
	// not eligible for that lookup table, we'll then proceed to a slower one.
	lookupTables []lookup.Table

	// RulesCount is the count of rules added to the engine.
	RulesCount int

	// BadfilteredCount is the count of rules disabled by $badfilter rules,
	// including the $badfilter rules themselves.
	BadfilteredCount int

	// importantExceptionWinsTies is the tie-break of important rules, see
	// [NetworkEngineConfig].
	importantExceptionWinsTies bool
}

// NewNetworkEngine builds an instance of the network engine.  It scans the
// storage and adds all network rules found there to the internal lookup
// tables, except for the $badfilter rules and the rules they disable.  c must
// not be nil.
func NewNetworkEngine(c *NetworkEngineConfig) (engine *NetworkEngine) {
	s := c.Storage
	engine = &NetworkEngine{
		ruleStorage: s,
		lookupTables: []lookup.Table{
			lookup.NewShortcutsTable(s),
			lookup.NewDomainsTable(s),
			&lookup.SeqScanTable{},
		},
		importantExceptionWinsTies: c.ImportantExceptionWinsTies,
	}

	badfilters := collectBadfilters(s)
	s.Range(func(idx int64, r rules.Rule) (cont bool) {
		nr, ok := r.(*rules.NetworkRule)
		if !ok {
			return true
		}

		if nr.IsBadfilter() || badfilters.negates(nr) {
			engine.BadfilteredCount++

			return true
		}

		engine.addRule(nr, idx)

		return true
	})

	return engine
}

// badfilterIndex groups the $badfilter rules by their patterns.
type badfilterIndex map[string][]*rules.NetworkRule

// collectBadfilters returns all $badfilter rules of s.
func collectBadfilters(s *filterlist.RuleStorage) (idx badfilterIndex) {
	idx = badfilterIndex{}
	s.Range(func(_ int64, r rules.Rule) (cont bool) {
		if nr, ok := r.(*rules.NetworkRule); ok && nr.IsBadfilter() {
			idx[nr.Pattern()] = append(idx[nr.Pattern()], nr)
		}

		return true
	})

	return idx
}

// negates returns true if any of the $badfilter rules disables nr.
func (idx badfilterIndex) negates(nr *rules.NetworkRule) (ok bool) {
	for _, b := range idx[nr.Pattern()] {
		if b.NegatesBadfilter(nr) {
			return true
		}
	}

	return false
}

// addRule adds rule to the network engine.
func (n *NetworkEngine) addRule(f *rules.NetworkRule, storageIdx int64) {
	for _, table := range n.lookupTables {
		if table.TryAdd(f, storageIdx) {
			n.RulesCount++

			return
		}
	}
}

// Match searches over all filtering rules loaded to the engine.  rule is the
// rule that defined the result: the blocking rule if blocked is true, or the
// exception that unblocked the request.  rule is nil if no blocking rule
// matched.
func (n *NetworkEngine) Match(r *rules.Request) (rule *rules.NetworkRule, blocked bool) {
	return n.decide(n.MatchAll(r))
}

// MatchAll finds all rules matching the specified request regardless of the
// rule types.  It will find both allowlist and blocklist rules.
func (n *NetworkEngine) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	for _, table := range n.lookupTables {
		result = append(result, table.MatchAll(r)...)
	}

	return result
}

// decide chooses the result from the matching rules:
//
//   - if no blocking rule matched, the request is allowed;
//   - if important blocking rules matched, the request is blocked unless an
//     important exception is more specific than all of them;
//   - otherwise any matching exception allows the request.
func (n *NetworkEngine) decide(matched []*rules.NetworkRule) (rule *rules.NetworkRule, blocked bool) {
	var basic, important, allow, importantAllow *rules.NetworkRule
	for _, f := range matched {
		switch {
		case f.Whitelist && f.IsImportant():
			importantAllow = moreSpecific(importantAllow, f)
		case f.Whitelist:
			allow = moreSpecific(allow, f)
		case f.IsImportant():
			important = moreSpecific(important, f)
		default:
			basic = moreSpecific(basic, f)
		}
	}

	switch {
	case important != nil:
		if importantAllow != nil && n.exceptionWins(importantAllow, important) {
			return importantAllow, false
		}

		return important, true
	case basic == nil:
		return nil, false
	case importantAllow != nil:
		return importantAllow, false
	case allow != nil:
		return allow, false
	default:
		return basic, true
	}
}

// exceptionWins returns true if the important exception allow overrides the
// important blocking rule block.
func (n *NetworkEngine) exceptionWins(allow, block *rules.NetworkRule) (ok bool) {
	a, b := allow.Specificity(), block.Specificity()
	if a == b {
		return n.importantExceptionWinsTies
	}

	return a > b
}

// moreSpecific returns the rule with the greater specificity, or cur on ties,
// so that the first matching rule is kept.
func moreSpecific(cur, f *rules.NetworkRule) (res *rules.NetworkRule) {
	if cur == nil || f.Specificity() > cur.Specificity() {
		return f
	}

	return cur
}
