package lookup

import (
	"math"
	"strings"

	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/internal/fasthash"
	"github.com/AdguardTeam/advtblock/rules"
)

// shortcutLength is the length of the shortcut window used as the key of the
// shortcuts table.
const shortcutLength = 5

// ShortcutsTable is a table that relies on the rule "shortcuts" to quickly
// find matching rules.  Here's how it works:
//
//  1. The rule parser extracts the longest literal part of the pattern, the
//     "shortcut".
//  2. Every window of shortcutLength bytes of the shortcut is a candidate key,
//     the least used one according to the histogram is chosen and the rule is
//     put into the bucket of its hash.
//  3. When a request is matched, every window of shortcutLength bytes of the
//     lower-cased URL is hashed and the rules from the corresponding buckets
//     are checked.
//
// Note that only the rules with a shortcut are eligible for this table.
type ShortcutsTable struct {
	// ruleStorage is the storage for the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// shortcutsLookupTable maps the hash of the shortcut window to the list
	// of the rules' storage indexes.
	shortcutsLookupTable map[uint32][]int64

	// shortcutsHistogram helps us choose the best window for the shortcuts
	// lookup table.
	shortcutsHistogram map[uint32]int
}

// type check
var _ Table = (*ShortcutsTable)(nil)

// NewShortcutsTable creates a new instance of the ShortcutsTable.
func NewShortcutsTable(rs *filterlist.RuleStorage) (s *ShortcutsTable) {
	return &ShortcutsTable{
		ruleStorage:          rs,
		shortcutsLookupTable: map[uint32][]int64{},
		shortcutsHistogram:   map[uint32]int{},
	}
}

// TryAdd implements the [Table] interface for *ShortcutsTable.
func (s *ShortcutsTable) TryAdd(f *rules.NetworkRule, storageIdx int64) (ok bool) {
	shortcut := f.Shortcut
	if len(shortcut) < shortcutLength || isAnyURLShortcut(shortcut) {
		return false
	}

	var shortcutHash uint32
	minCount := math.MaxInt
	for i := 0; i <= len(shortcut)-shortcutLength; i++ {
		hash := fasthash.Between(shortcut, i, i+shortcutLength)
		count := s.shortcutsHistogram[hash]
		if count < minCount {
			minCount = count
			shortcutHash = hash
		}
	}

	s.shortcutsHistogram[shortcutHash] = minCount + 1
	s.shortcutsLookupTable[shortcutHash] = append(s.shortcutsLookupTable[shortcutHash], storageIdx)

	return true
}

// MatchAll implements the [Table] interface for *ShortcutsTable.
func (s *ShortcutsTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	url := r.URLLowerCase
	for i := 0; i <= len(url)-shortcutLength; i++ {
		hash := fasthash.Between(url, i, i+shortcutLength)
		matchingRules, ok := s.shortcutsLookupTable[hash]
		if !ok {
			continue
		}

		for _, ruleIdx := range matchingRules {
			rule := s.ruleStorage.RetrieveNetworkRule(ruleIdx)

			// The same rule is found again when the URL has a repeating
			// pattern.
			if rule == nil || ruleIn(rule, result) || !rule.Match(r) {
				continue
			}

			result = append(result, rule)
		}
	}

	return result
}

// isAnyURLShortcut checks if the shortcut potentially matches too many URLs.
// Such rules are better put into another type of lookup table.
func isAnyURLShortcut(shortcut string) (ok bool) {
	switch l := len(shortcut); {
	case
		l < len("ws://")+1 && strings.HasPrefix(shortcut, "ws:"),
		l < len("wss://")+1 && strings.HasPrefix(shortcut, "wss:"),
		l < len("|wss://")+1 && strings.HasPrefix(shortcut, "|ws"),
		l < len("https://")+1 && strings.HasPrefix(shortcut, "http"),
		l < len("|https://")+1 && strings.HasPrefix(shortcut, "|http"):
		return true
	default:
		return false
	}
}
