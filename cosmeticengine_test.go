package advtblock_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/AdguardTeam/advtblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCosmeticEngine is a helper that creates a cosmetic engine from the
// rule lines.
func newTestCosmeticEngine(tb testing.TB, lines ...string) (e *advtblock.CosmeticEngine) {
	tb.Helper()

	return advtblock.NewCosmeticEngine(newTestRuleStorage(tb, 1, strings.Join(lines, "\n")))
}

func TestCosmeticEngine_Match_elementHiding(t *testing.T) {
	e := newTestCosmeticEngine(
		t,
		"##.generic",
		"example.org##.specific",
		"~sub.example.org,example.org##.not-on-sub",
		"~example.org##.not-on-example",
		"example.org,example.net##.specific",
		"example.*##.wildcard",
		"example.org#?#.extended:has(> .ad)",
		"||example.org^$image",
	)
	assert.Equal(t, 7, e.RulesCount)

	testCases := []struct {
		name string
		url  string
		want []string
	}{{
		name: "domain",
		url:  "https://example.org/page",
		want: []string{".generic", ".specific", ".not-on-sub", ".wildcard", ".extended:has(> .ad)"},
	}, {
		name: "subdomain",
		url:  "https://www.example.org/page",
		want: []string{".generic", ".specific", ".not-on-sub", ".wildcard", ".extended:has(> .ad)"},
	}, {
		name: "restricted_subdomain",
		url:  "https://sub.example.org/",
		want: []string{".generic", ".specific", ".wildcard", ".extended:has(> .ad)"},
	}, {
		name: "other_domain",
		url:  "https://example.net/",
		want: []string{".generic", ".not-on-example", ".specific", ".wildcard"},
	}, {
		name: "wildcard_tld",
		url:  "https://example.co.uk/",
		want: []string{".generic", ".not-on-example", ".wildcard"},
	}, {
		name: "unrelated",
		url:  "https://news.test/",
		want: []string{".generic", ".not-on-example"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Match(tc.url)
			require.NotNil(t, res)

			assert.ElementsMatch(t, tc.want, res.HideSelectors)
			assert.Empty(t, res.Exceptions)
			assert.Empty(t, res.InjectedScript)
			assert.False(t, res.GenericHide)
		})
	}
}

func TestCosmeticEngine_Match_exceptions(t *testing.T) {
	e := newTestCosmeticEngine(
		t,
		"##.ad",
		"##.banner",
		"example.org##.banner",
		"news.example##.sidebar",
		"example.org#@#.ad",
		"sub.example.org#@#.banner",
		"#@#.sidebar",
	)

	testCases := []struct {
		name           string
		url            string
		wantSelectors  []string
		wantExceptions []string
	}{{
		name:           "generic_excepted",
		url:            "https://example.org/",
		wantSelectors:  []string{".banner"},
		wantExceptions: []string{".ad", ".sidebar"},
	}, {
		name:           "specific_excepted",
		url:            "https://sub.example.org/",
		wantSelectors:  []string{},
		wantExceptions: []string{".ad", ".banner", ".sidebar"},
	}, {
		name:           "generic_exception",
		url:            "https://news.example/",
		wantSelectors:  []string{".ad", ".banner"},
		wantExceptions: []string{".sidebar"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Match(tc.url)

			assert.ElementsMatch(t, tc.wantSelectors, res.HideSelectors)
			assert.Equal(t, tc.wantExceptions, res.Exceptions)

			for _, exc := range res.Exceptions {
				assert.NotContains(t, res.HideSelectors, exc)
			}
		})
	}
}

func TestCosmeticEngine_Match_directives(t *testing.T) {
	e := newTestCosmeticEngine(
		t,
		"##.generic",
		"example.org##.specific",
		"example.net##.specific",
		"example.org##+js(set-constant, x, 1)",
		"@@||example.org^$generichide",
		"@@||example.net^$elemhide",
		"@@||example.com/no-generic/*$generichide",
		"@@$generichide,domain=example.info",
	)

	testCases := []struct {
		name            string
		url             string
		wantSelectors   []string
		wantScript      string
		wantGenericHide bool
	}{{
		name:            "generichide",
		url:             "https://www.example.org/",
		wantSelectors:   []string{".specific"},
		wantScript:      "+js(set-constant, x, 1)",
		wantGenericHide: true,
	}, {
		name:            "elemhide",
		url:             "https://example.net/",
		wantSelectors:   []string{},
		wantScript:      "",
		wantGenericHide: true,
	}, {
		name:            "url_pattern",
		url:             "https://example.com/no-generic/page",
		wantSelectors:   []string{},
		wantScript:      "",
		wantGenericHide: true,
	}, {
		name:            "url_pattern_mismatch",
		url:             "https://example.com/other/page",
		wantSelectors:   []string{".generic"},
		wantScript:      "",
		wantGenericHide: false,
	}, {
		name:            "domain_option",
		url:             "https://example.info/",
		wantSelectors:   []string{},
		wantScript:      "",
		wantGenericHide: true,
	}, {
		name:            "no_directive",
		url:             "https://news.test/",
		wantSelectors:   []string{".generic"},
		wantScript:      "",
		wantGenericHide: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Match(tc.url)

			assert.ElementsMatch(t, tc.wantSelectors, res.HideSelectors)
			assert.Equal(t, tc.wantScript, res.InjectedScript)
			assert.Equal(t, tc.wantGenericHide, res.GenericHide)
		})
	}
}

func TestCosmeticEngine_Match_scripts(t *testing.T) {
	e := newTestCosmeticEngine(
		t,
		"example.org##+js(first)",
		"##+js(second)",
		"example.org#%#window.third = 1;",
		"example.org,example.net##+js(first)",
		"example.net#@#+js(second)",
		"example.com#@#+js()",
		"example.org#@%#window.fourth = 1;",
		"example.org#%#window.fourth = 1;",
	)

	testCases := []struct {
		name       string
		url        string
		wantScript string
	}{{
		name:       "ordered",
		url:        "https://example.org/",
		wantScript: "+js(first)\n+js(second)\nwindow.third = 1;",
	}, {
		name:       "excepted",
		url:        "https://example.net/",
		wantScript: "+js(first)",
	}, {
		name:       "all_disabled",
		url:        "https://www.example.com/",
		wantScript: "",
	}, {
		name:       "generic",
		url:        "https://news.test/",
		wantScript: "+js(second)",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Match(tc.url)
			assert.Equal(t, tc.wantScript, res.InjectedScript)
			assert.Empty(t, res.HideSelectors)
		})
	}
}

func TestCosmeticEngine_Match_noHostname(t *testing.T) {
	e := newTestCosmeticEngine(t, "##.generic", "example.org##.specific")

	for _, u := range []string{"", "kek", "about:blank", "example.org/path"} {
		res := e.Match(u)
		require.NotNil(t, res)

		assert.Empty(t, res.HideSelectors)
		assert.Empty(t, res.Exceptions)
		assert.Empty(t, res.InjectedScript)
		assert.False(t, res.GenericHide)

		data, err := json.Marshal(res)
		require.NoError(t, err)

		assert.JSONEq(t, `{
			"hide_selectors": [],
			"injected_script": "",
			"exceptions": [],
			"generichide": false
		}`, string(data))
	}
}

func TestCosmeticEngine_Match_deduplicated(t *testing.T) {
	e := newTestCosmeticEngine(
		t,
		"example.org##.ad",
		"##.ad",
		"org##.ad",
		"example.org,sub.example.org##.ad",
	)

	res := e.Match("https://sub.example.org/")
	assert.Equal(t, []string{".ad"}, res.HideSelectors)
}
