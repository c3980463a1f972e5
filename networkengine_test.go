package advtblock_test

import (
	"strings"
	"testing"

	"github.com/AdguardTeam/advtblock"
	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is the common logger for tests.
var testLogger = slogutil.NewDiscardLogger()

// newTestRuleStorage is a helper that creates a rule storage with a single
// list of rulesText.
func newTestRuleStorage(tb testing.TB, listID int, rulesText string) (s *filterlist.RuleStorage) {
	tb.Helper()

	s, err := filterlist.NewRuleStorage(&filterlist.Config{
		Logger: testLogger,
		Lists: []filterlist.RuleList{&filterlist.StringRuleList{
			ID:        listID,
			RulesText: rulesText,
		}},
	})
	require.NoError(tb, err)

	return s
}

// newTestNetworkEngine is a helper that creates a network engine from the rule
// lines.
func newTestNetworkEngine(tb testing.TB, winsTies bool, lines ...string) (e *advtblock.NetworkEngine) {
	tb.Helper()

	return advtblock.NewNetworkEngine(&advtblock.NetworkEngineConfig{
		Storage:                    newTestRuleStorage(tb, 1, strings.Join(lines, "\n")),
		ImportantExceptionWinsTies: winsTies,
	})
}

// assertNetworkMatch is a helper that checks the result of matching r.
// wantRule is the text of the rule defining the result, or empty if no rule
// should.
func assertNetworkMatch(
	tb testing.TB,
	e *advtblock.NetworkEngine,
	r *rules.Request,
	wantRule string,
	wantBlocked bool,
) {
	tb.Helper()

	rule, blocked := e.Match(r)
	assert.Equal(tb, wantBlocked, blocked)

	if wantRule == "" {
		assert.Nil(tb, rule)

		return
	}

	require.NotNil(tb, rule)
	assert.Equal(tb, wantRule, rule.Text())
}

func TestNetworkEngine_Match_empty(t *testing.T) {
	e := newTestNetworkEngine(t, false)
	assert.Zero(t, e.RulesCount)

	r := rules.NewRequest("http://example.org/", "", rules.TypeOther)
	assertNetworkMatch(t, e, r, "", false)
}

func TestNetworkEngine_Match_whitelist(t *testing.T) {
	const (
		r1 = "||example.org^$script"
		r2 = "@@http://example.org^"
	)

	e := newTestNetworkEngine(t, false, r1, r2)
	assert.Equal(t, 2, e.RulesCount)

	r := rules.NewRequest("http://example.org/", "", rules.TypeScript)
	assertNetworkMatch(t, e, r, r2, false)

	r = rules.NewRequest("https://example.org/", "", rules.TypeScript)
	assertNetworkMatch(t, e, r, r1, true)

	r = rules.NewRequest("https://example.org/", "", rules.TypeImage)
	assertNetworkMatch(t, e, r, "", false)
}

func TestNetworkEngine_Match_important(t *testing.T) {
	const (
		r1 = "||test2.example.org^$important"
		r2 = "@@||example.org^"
		r3 = "||test1.example.org^"
	)

	e := newTestNetworkEngine(t, false, r1, r2, r3)

	testCases := []struct {
		name        string
		url         string
		wantRule    string
		wantBlocked bool
	}{{
		name:        "only_exception",
		url:         "http://example.org/",
		wantRule:    "",
		wantBlocked: false,
	}, {
		name:        "exception_wins",
		url:         "http://test1.example.org/",
		wantRule:    r2,
		wantBlocked: false,
	}, {
		name:        "important_wins",
		url:         "http://test2.example.org/",
		wantRule:    r1,
		wantBlocked: true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := rules.NewRequest(tc.url, "", rules.TypeOther)
			assertNetworkMatch(t, e, r, tc.wantRule, tc.wantBlocked)
		})
	}
}

func TestNetworkEngine_Match_importantException(t *testing.T) {
	const (
		reqURL = "https://ads.example/banner.png"
		srcURL = "https://news.example/"

		block          = "||ads.example^"
		blockImportant = "||ads.example^$important"
		blockSpecific  = "||ads.example^$important,domain=news.example"

		allowImportant = "@@||ads.example^$important"
		allowSpecific  = "@@||ads.example^$important,domain=news.example"
		allowTyped     = "@@||ads.example^$important,domain=news.example,image"
		allowBasic     = "@@||ads.example^$domain=news.example,image"
	)

	testCases := []struct {
		name        string
		wantRule    string
		lines       []string
		winsTies    bool
		wantBlocked bool
	}{{
		name:        "more_specific_exception",
		wantRule:    allowSpecific,
		lines:       []string{blockImportant, allowSpecific},
		winsTies:    false,
		wantBlocked: false,
	}, {
		name:        "tie_blocks",
		wantRule:    blockImportant,
		lines:       []string{blockImportant, allowImportant},
		winsTies:    false,
		wantBlocked: true,
	}, {
		name:        "tie_configured",
		wantRule:    allowImportant,
		lines:       []string{blockImportant, allowImportant},
		winsTies:    true,
		wantBlocked: false,
	}, {
		name:        "specific_tie_blocks",
		wantRule:    blockSpecific,
		lines:       []string{blockSpecific, allowSpecific},
		winsTies:    false,
		wantBlocked: true,
	}, {
		name:        "more_specific_block",
		wantRule:    blockSpecific,
		lines:       []string{blockSpecific, allowImportant},
		winsTies:    true,
		wantBlocked: true,
	}, {
		name:        "typed_exception",
		wantRule:    allowTyped,
		lines:       []string{blockSpecific, allowTyped},
		winsTies:    false,
		wantBlocked: false,
	}, {
		name:        "basic_exception_loses",
		wantRule:    blockImportant,
		lines:       []string{blockImportant, allowBasic},
		winsTies:    true,
		wantBlocked: true,
	}, {
		name:        "important_exception_over_basic",
		wantRule:    allowImportant,
		lines:       []string{block, allowImportant},
		winsTies:    false,
		wantBlocked: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestNetworkEngine(t, tc.winsTies, tc.lines...)
			r := rules.NewRequest(reqURL, srcURL, rules.TypeImage)
			assertNetworkMatch(t, e, r, tc.wantRule, tc.wantBlocked)
		})
	}
}

func TestNetworkEngine_badfilter(t *testing.T) {
	testCases := []struct {
		name            string
		lines           []string
		wantRulesCount  int
		wantBadfiltered int
		wantBlocked     bool
	}{{
		name:            "negated",
		lines:           []string{"||ads.example^", "||ads.example^$badfilter"},
		wantRulesCount:  0,
		wantBadfiltered: 2,
		wantBlocked:     false,
	}, {
		name:            "negated_before",
		lines:           []string{"||ads.example^$image,badfilter", "||ads.example^$image"},
		wantRulesCount:  0,
		wantBadfiltered: 2,
		wantBlocked:     false,
	}, {
		name:            "different_options",
		lines:           []string{"||ads.example^$image", "||ads.example^$badfilter"},
		wantRulesCount:  1,
		wantBadfiltered: 1,
		wantBlocked:     true,
	}, {
		name:            "different_domains",
		lines:           []string{"||ads.example^$domain=news.example", "||ads.example^$domain=blog.example,badfilter"},
		wantRulesCount:  1,
		wantBadfiltered: 1,
		wantBlocked:     true,
	}, {
		name:            "exception",
		lines:           []string{"||ads.example^", "@@||ads.example^", "@@||ads.example^$badfilter"},
		wantRulesCount:  1,
		wantBadfiltered: 2,
		wantBlocked:     true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestNetworkEngine(t, false, tc.lines...)
			assert.Equal(t, tc.wantRulesCount, e.RulesCount)
			assert.Equal(t, tc.wantBadfiltered, e.BadfilteredCount)

			r := rules.NewRequest("https://ads.example/banner.png", "https://news.example/", rules.TypeImage)
			_, blocked := e.Match(r)
			assert.Equal(t, tc.wantBlocked, blocked)
		})
	}
}

func TestNetworkEngine_Match_sourceRule(t *testing.T) {
	const ruleText = "|https://$image,media,script,third-party," +
		"domain=~feedback.video.example|video.example|tube.example"

	e := newTestNetworkEngine(t, false, ruleText)

	const reqURL = "https://ci.media-cdn.example/videos/201809/25/184777011/original/(m=ecuKGgaaaa)4.jpg"

	testCases := []struct {
		name        string
		sourceURL   string
		wantBlocked bool
	}{{
		name:        "permitted",
		sourceURL:   "https://www.video.example/view_video.php?viewkey=ph5be89d11de4b0",
		wantBlocked: true,
	}, {
		name:        "restricted",
		sourceURL:   "https://feedback.video.example/",
		wantBlocked: false,
	}, {
		name:        "other_domain",
		sourceURL:   "https://news.example/",
		wantBlocked: false,
	}, {
		name:        "no_source",
		sourceURL:   "",
		wantBlocked: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := rules.NewRequest(reqURL, tc.sourceURL, rules.TypeImage)
			_, blocked := e.Match(r)
			assert.Equal(t, tc.wantBlocked, blocked)
		})
	}
}

func TestNetworkEngine_Match_simplePattern(t *testing.T) {
	e := newTestNetworkEngine(t, false, "_prebid_")

	r := rules.NewRequest(
		"https://ap.bidder.example/rtb/bid?src=prebid_prebid_1.35.0",
		"https://www.news.example/",
		rules.TypeXmlhttprequest,
	)
	assertNetworkMatch(t, e, r, "_prebid_", true)
}

func TestNetworkEngine_Match_malformedURL(t *testing.T) {
	e := newTestNetworkEngine(
		t,
		false,
		"-advertisement-icon.",
		"||ads.example^",
		"/banner/*$domain=news.example",
		"/tracker/*$third-party",
	)

	testCases := []struct {
		name        string
		url         string
		sourceURL   string
		wantBlocked bool
	}{{
		name:        "pattern_only",
		url:         "no-scheme/-advertisement-icon.",
		sourceURL:   "",
		wantBlocked: true,
	}, {
		name:        "no_host_domain_anchor",
		url:         "ads.example/script.js",
		sourceURL:   "",
		wantBlocked: false,
	}, {
		name:        "garbage",
		url:         "kek",
		sourceURL:   "kek",
		wantBlocked: false,
	}, {
		name:        "no_source_domain",
		url:         "https://cdn.example/banner/1.png",
		sourceURL:   "kek",
		wantBlocked: false,
	}, {
		name:        "no_source_party",
		url:         "https://cdn.example/tracker/1.gif",
		sourceURL:   "",
		wantBlocked: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := rules.NewRequest(tc.url, tc.sourceURL, rules.TypeOther)
			_, blocked := e.Match(r)
			assert.Equal(t, tc.wantBlocked, blocked)
		})
	}
}

func TestNetworkEngine_MatchAll(t *testing.T) {
	e := newTestNetworkEngine(
		t,
		false,
		"||ads.example^",
		"/banner/*$domain=news.example",
		"|https://",
		"@@||ads.example/banner/",
	)

	r := rules.NewRequest("https://ads.example/banner/1.png", "https://news.example/", rules.TypeImage)

	var texts []string
	for _, f := range e.MatchAll(r) {
		texts = append(texts, f.Text())
	}

	assert.ElementsMatch(t, []string{
		"||ads.example^",
		"/banner/*$domain=news.example",
		"|https://",
		"@@||ads.example/banner/",
	}, texts)
}
