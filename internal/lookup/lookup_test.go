package lookup_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/internal/lookup"
	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Common domains for tests.
const (
	testDomain      = "domain.example"
	testDomainNoMod = "nomod.domain.example"
	testDomainSub   = "sub.domain.example"
)

// Common rules for tests.
const (
	testRule                = "||" + testDomain + "^"
	testRuleNoDomain        = "||" + testDomainNoMod + "^"
	testRuleNoShortcutsTiny = "||tiny^"
	testRuleNoShortcutsURL  = "|ws://^"
	testRuleWithDomain      = "||" + testDomainSub + "^$domain=" + testDomain
)

// Common text rules for tests.
const (
	testRuleText                = testRule + "\n"
	testRuleTextNoDomain        = testRuleNoDomain + "\n"
	testRuleTextNoShortcutsTiny = testRuleNoShortcutsTiny + "\n"
	testRuleTextNoShortcutsURL  = testRuleNoShortcutsURL + "\n"
	testRuleTextWithDomain      = testRuleWithDomain + "\n"

	testRuleTextAll = testRuleText +
		testRuleTextNoDomain +
		testRuleTextNoShortcutsTiny +
		testRuleTextNoShortcutsURL +
		testRuleTextWithDomain
)

// Common URL strings for tests.
const (
	testURLStrNoDomain      = "https://" + testDomainNoMod + "/"
	testURLStrNoMatch       = "https://no-match.example/"
	testURLStrWithDomain    = "https://" + testDomain + "/"
	testURLStrWithSubdomain = "https://" + testDomainSub + "/"
)

// Common constants of the large generated list for benchmarks.
const (
	testListSize = 20_000

	testRuleLargeDomain   = "||tracker.example/pixel^$domain=site9999.example"
	testURLStrLargeDomain = "https://tracker.example/pixel?id=1"
	testURLStrLargeSource = "https://www.site9999.example/"
)

// largeListData is a generated list resembling a real-world filter list.
var largeListData = newLargeList(testListSize)

// newLargeList returns a rule list text with n blocking rules of different
// kinds.
func newLargeList(n int) (text string) {
	b := &strings.Builder{}
	for i := range n {
		switch i % 4 {
		case 0:
			_, _ = fmt.Fprintf(b, "||ads%d.example^\n", i)
		case 1:
			_, _ = fmt.Fprintf(b, "/banner%d/*$image,third-party\n", i)
		case 2:
			_, _ = fmt.Fprintf(b, "||tracker.example/pixel^$domain=site%d.example\n", i+1)
		default:
			_, _ = fmt.Fprintf(b, "@@||cdn%d.example/allowed/$script\n", i)
		}
	}

	return b.String()
}

// newStorage is a helper that creates a rule storage for tests with the given
// rule text.
func newStorage(tb testing.TB, text string) (s *filterlist.RuleStorage) {
	tb.Helper()

	s, err := filterlist.NewRuleStorage(&filterlist.Config{
		Logger: slogutil.NewDiscardLogger(),
		Lists: []filterlist.RuleList{&filterlist.StringRuleList{
			RulesText: text,
		}},
	})
	require.NoError(tb, err)

	return s
}

// assertMatch is a helper for matching a single rule in the table or, if
// wantRuleText is empty, that no rules are returned.
func assertMatch(
	tb testing.TB,
	tbl lookup.Table,
	r *rules.Request,
	wantRuleText string,
) {
	tb.Helper()

	gotRules := tbl.MatchAll(r)

	if wantRuleText == "" {
		assert.Empty(tb, gotRules)

		return
	}

	require.Len(tb, gotRules, 1)

	assert.Equal(tb, wantRuleText, gotRules[0].RuleText)
}

// assertRuleIsAdded is a helper to assert if a single rule has been added to
// tbl.
func assertRuleIsAdded(
	tb testing.TB,
	tbl lookup.Table,
	s *filterlist.RuleStorage,
	want assert.BoolAssertionFunc,
) {
	tb.Helper()

	var num int
	s.Range(func(idx int64, r rules.Rule) (cont bool) {
		num++
		want(tb, tbl.TryAdd(r.(*rules.NetworkRule), idx))

		return true
	})

	assert.Equal(tb, 1, num)
}

// loadTable is a helper that loads rules from s to tbl.
func loadTable(tb testing.TB, tbl lookup.Table, s *filterlist.RuleStorage) {
	tb.Helper()

	s.Range(func(idx int64, r rules.Rule) (cont bool) {
		if nr, ok := r.(*rules.NetworkRule); ok {
			_ = tbl.TryAdd(nr, idx)
		}

		return true
	})
}

// containsRuleText returns true if one of rs has the text want.
func containsRuleText(rs []*rules.NetworkRule, want string) (ok bool) {
	for _, r := range rs {
		if r.RuleText == want {
			return true
		}
	}

	return false
}
