package filterlist

import (
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// Stats are the parsing statistics of a rule storage.
type Stats struct {
	// Total is the number of non-empty lines that are not comments.
	Total int

	// Network is the number of network rules.
	Network int

	// Cosmetic is the number of cosmetic rules, including the $generichide
	// and $elemhide directives.
	Cosmetic int

	// Malformed is the number of lines that could not be parsed.
	Malformed int
}

// Config is the configuration structure for a *RuleStorage.
type Config struct {
	// Logger is used for logging the storage operations.  It must not be
	// nil.
	Logger *slog.Logger

	// Lists are the rule lists of the storage.  IDs of the lists must be
	// unique.
	Lists []RuleList
}

// RuleStorage is an abstraction that combines several rule lists.  It parses
// all the lists once, when it's created, and allows retrieving rules by their
// storage indexes afterwards.
//
// Rule index is an int64 value that actually consists of two int32 values: one
// is the position of the rule list, and the second is the index of the rule
// inside of that list.  See [RuleStorageScanner].
//
// RuleStorage is immutable after creation and safe for concurrent use.
type RuleStorage struct {
	logger *slog.Logger

	// rules maps the storage indexes to the parsed rules.
	rules map[int64]rules.Rule

	// indexes are the storage indexes in registration order.
	indexes []int64

	// lists is an array of rules lists which can be accessed using this
	// RuleStorage.
	lists []RuleList

	// stats are the parsing statistics.
	stats Stats
}

// NewRuleStorage creates a new instance of the RuleStorage, validates the list
// of rules specified, and parses them.  c must not be nil.
func NewRuleStorage(c *Config) (s *RuleStorage, err error) {
	ids := make(map[int]struct{}, len(c.Lists))
	for i, list := range c.Lists {
		id := list.GetID()
		if _, ok := ids[id]; ok {
			return nil, fmt.Errorf("list at index %d: duplicate list id: %d", i, id)
		}

		ids[id] = struct{}{}
	}

	s = &RuleStorage{
		logger: c.Logger,
		rules:  map[int64]rules.Rule{},
		lists:  c.Lists,
	}

	s.load()

	s.logger.Debug(
		"rule storage loaded",
		"lists", len(s.lists),
		"network", s.stats.Network,
		"cosmetic", s.stats.Cosmetic,
		"malformed", s.stats.Malformed,
	)

	return s, nil
}

// load scans all the lists and fills the rules and the statistics.
func (s *RuleStorage) load() {
	scanners := make([]*RuleScanner, 0, len(s.lists))
	for _, list := range s.lists {
		scanners = append(scanners, list.NewScanner(s.logger))
	}

	sc := &RuleStorageScanner{
		Scanners: scanners,
	}

	for sc.Scan() {
		r, idx := sc.Rule()
		s.rules[idx] = r
		s.indexes = append(s.indexes, idx)

		switch r.(type) {
		case *rules.NetworkRule:
			s.stats.Network++
		case *rules.CosmeticRule:
			s.stats.Cosmetic++
		}
	}

	s.stats.Malformed = sc.Malformed()
	s.stats.Total = len(s.indexes) + s.stats.Malformed
}

// Stats returns the parsing statistics of the storage.
func (s *RuleStorage) Stats() (st Stats) {
	return s.stats
}

// Range calls f for each rule of the storage in the order the rules were
// registered.  It stops if f returns false.
func (s *RuleStorage) Range(f func(storageIdx int64, r rules.Rule) (cont bool)) {
	for _, idx := range s.indexes {
		if !f(idx, s.rules[idx]) {
			return
		}
	}
}

// RetrieveRule looks for the filtering rule in this storage.  storageIdx is the
// lookup index that you can get from the rule storage scanner.
func (s *RuleStorage) RetrieveRule(storageIdx int64) (r rules.Rule, err error) {
	r, ok := s.rules[storageIdx]
	if ok {
		return r, nil
	}

	listPos, ruleIdx := storageIdxToRuleListIdx(storageIdx)
	if listPos < 0 || listPos >= len(s.lists) {
		return nil, fmt.Errorf("list at position %d does not exist", listPos)
	}

	return nil, fmt.Errorf("list %d: rule %d: %w", s.lists[listPos].GetID(), ruleIdx, ErrRuleRetrieval)
}

// RetrieveNetworkRule is a helper method that retrieves a network rule from the
// storage.  It returns a pointer to the rule or nil in any other case (not
// found or error).
func (s *RuleStorage) RetrieveNetworkRule(idx int64) (nr *rules.NetworkRule) {
	r, err := s.RetrieveRule(idx)
	if err != nil {
		s.logger.Error("cannot retrieve network rule", "idx", idx, slogutil.KeyError, err)

		return nil
	}

	nr, _ = r.(*rules.NetworkRule)

	return nr
}
