package rules

import (
	"strings"
)

// CosmeticRuleType is the enumeration of different cosmetic rules.
type CosmeticRuleType uint8

// CosmeticRuleType enumeration
const (
	// CosmeticElementHiding is an element hiding rule, for example
	// "example.org##.banner".
	CosmeticElementHiding CosmeticRuleType = iota

	// CosmeticJS is a scriptlet or a script injection rule, for example
	// "example.org##+js(nowebrtc)" or "example.org#%#window.x = 1;".
	CosmeticJS

	// CosmeticGenericHide is the "@@||example.org^$generichide" directive
	// disabling generic element hiding on the matched pages.
	CosmeticGenericHide

	// CosmeticElemHide is the "@@||example.org^$elemhide" directive
	// disabling all element hiding on the matched pages.
	CosmeticElemHide
)

// String implements the [fmt.Stringer] interface for CosmeticRuleType.
func (t CosmeticRuleType) String() (s string) {
	switch t {
	case CosmeticElementHiding:
		return "element_hiding"
	case CosmeticJS:
		return "js"
	case CosmeticGenericHide:
		return "generichide"
	case CosmeticElemHide:
		return "elemhide"
	default:
		return "unknown"
	}
}

// scriptletPrefix is the prefix of uBlock Origin scriptlets in the content of
// element hiding rules.
const scriptletPrefix = "+js("

// emptyScriptlet is the content of a scriptlet exception disabling all
// scriptlets.
const emptyScriptlet = scriptletPrefix + ")"

// cosmeticMarker describes a cosmetic rule marker, like "##" or "#@%#".
type cosmeticMarker struct {
	// text is the marker itself.
	text string

	// typ is the type of rules this marker starts.
	typ CosmeticRuleType

	// whitelist is true for the exception markers.
	whitelist bool

	// extendedCSS is true for the extended CSS markers.
	extendedCSS bool

	// unsupported is true for the markers of the rules the engine can't
	// apply.
	unsupported bool
}

// cosmeticMarkers is the list of known cosmetic markers.  Longer markers go
// first, so that the prefix matching picks the longest one.
var cosmeticMarkers = []cosmeticMarker{{
	text:        "#@?$#",
	unsupported: true,
}, {
	text:        "#@$?#",
	unsupported: true,
}, {
	text:        "#@?#",
	typ:         CosmeticElementHiding,
	whitelist:   true,
	extendedCSS: true,
}, {
	text:        "#?$#",
	unsupported: true,
}, {
	text:        "#$?#",
	unsupported: true,
}, {
	text:        "#@$#",
	unsupported: true,
}, {
	text:      "#@%#",
	typ:       CosmeticJS,
	whitelist: true,
}, {
	text:      "#@#",
	typ:       CosmeticElementHiding,
	whitelist: true,
}, {
	text:        "#?#",
	typ:         CosmeticElementHiding,
	extendedCSS: true,
}, {
	text:        "#$#",
	unsupported: true,
}, {
	text: "#%#",
	typ:  CosmeticJS,
}, {
	text: "##",
	typ:  CosmeticElementHiding,
}}

// findCosmeticMarker looks for a cosmetic rule marker in the rule text and
// returns its index.  Since domains can't contain "#", the marker must start
// at the first "#" of the rule.
func findCosmeticMarker(ruleText string) (idx int, m cosmeticMarker, ok bool) {
	idx = strings.IndexByte(ruleText, '#')
	if idx == -1 {
		return -1, m, false
	}

	rest := ruleText[idx:]
	for _, m = range cosmeticMarkers {
		if strings.HasPrefix(rest, m.text) {
			return idx, m, true
		}
	}

	return -1, cosmeticMarker{}, false
}

// isCosmetic checks if this is a cosmetic filtering rule.
func isCosmetic(line string) (ok bool) {
	_, _, ok = findCosmeticMarker(line)

	return ok
}

// CosmeticRule represents a cosmetic rule: element hiding, scriptlet, or one
// of the directives disabling element hiding on a page.
type CosmeticRule struct {
	// urlRule is the network rule a directive was created from.  The page URL
	// must match it.  It is nil for the rules with a cosmetic marker.
	urlRule *NetworkRule

	// RuleText is the original rule text.
	RuleText string

	// Content is the selector for element hiding rules and the script or
	// scriptlet for JS rules, stored exactly as in the rule.
	Content string

	// permittedDomains is the sorted list of domains this rule is allowed on.
	permittedDomains []string

	// restrictedDomains is the sorted list of domains this rule is disabled
	// on.
	restrictedDomains []string

	// FilterListID is the filter list identifier.
	FilterListID int

	// Type is the type of the rule.
	Type CosmeticRuleType

	// Whitelist is true if this is an exception rule.
	Whitelist bool

	// ExtendedCSS is true if the rule uses the extended CSS syntax.  Such
	// selectors are not interpreted and treated like any other selector.
	ExtendedCSS bool
}

// type check
var _ Rule = (*CosmeticRule)(nil)

// NewCosmeticRule parses the rule text and creates a cosmetic rule.
func NewCosmeticRule(ruleText string, filterListID int) (r *CosmeticRule, err error) {
	idx, m, ok := findCosmeticMarker(ruleText)
	if !ok {
		return nil, newRuleSyntaxError(ruleText, "not a cosmetic rule")
	} else if m.unsupported {
		return nil, ErrUnsupportedRule
	}

	r = &CosmeticRule{
		RuleText:     ruleText,
		FilterListID: filterListID,
		Type:         m.typ,
		Whitelist:    m.whitelist,
		ExtendedCSS:  m.extendedCSS,
		Content:      strings.TrimSpace(ruleText[idx+len(m.text):]),
	}

	if domains := ruleText[:idx]; domains != "" {
		r.permittedDomains, r.restrictedDomains, err = loadDomains(domains, ",")
		if err != nil {
			return nil, newRuleSyntaxError(ruleText, "%s", err)
		}
	}

	err = r.validateContent(m)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return nil, err
	}

	return r, nil
}

// validateContent checks the content of the rule and detects uBlock Origin
// scriptlets.
func (f *CosmeticRule) validateContent(m cosmeticMarker) (err error) {
	switch {
	case f.Content == "":
		return newRuleSyntaxError(f.RuleText, "empty rule content")
	case f.Type == CosmeticJS:
		return nil
	case m.text == "##" && strings.HasPrefix(f.Content, "^"),
		m.text == "#@#" && strings.HasPrefix(f.Content, "^"):
		// HTML filtering rules.
		return ErrUnsupportedRule
	case strings.HasPrefix(f.Content, scriptletPrefix) && !m.extendedCSS:
		if !strings.HasSuffix(f.Content, ")") {
			return newRuleSyntaxError(f.RuleText, "unclosed scriptlet")
		}

		f.Type = CosmeticJS

		return nil
	case strings.ContainsAny(f.Content, "{}"):
		return newRuleSyntaxError(f.RuleText, "style declarations in the selector")
	default:
		return nil
	}
}

// newDirectiveRule converts an exception network rule with $generichide or
// $elemhide modifiers to a cosmetic directive.
func newDirectiveRule(nr *NetworkRule) (r *CosmeticRule, err error) {
	r = &CosmeticRule{
		urlRule:           nr,
		RuleText:          nr.RuleText,
		FilterListID:      nr.FilterListID,
		Type:              CosmeticGenericHide,
		Whitelist:         true,
		permittedDomains:  nr.permittedDomains,
		restrictedDomains: nr.restrictedDomains,
	}

	if nr.IsOptionEnabled(OptionElemhide) {
		r.Type = CosmeticElemHide
	}

	if len(r.permittedDomains) == 0 {
		if h := hostnameFromPattern(nr.pattern); h != "" {
			r.permittedDomains = []string{h}
		}
	}

	return r, nil
}

// Text implements the [Rule] interface for *CosmeticRule.
func (f *CosmeticRule) Text() (s string) {
	return f.RuleText
}

// GetFilterListID implements the [Rule] interface for *CosmeticRule.
func (f *CosmeticRule) GetFilterListID() (id int) {
	return f.FilterListID
}

// String implements the [fmt.Stringer] interface for *CosmeticRule.
func (f *CosmeticRule) String() (s string) {
	return f.RuleText
}

// GetPermittedDomains returns the sorted domains this rule is allowed on.
func (f *CosmeticRule) GetPermittedDomains() (domains []string) {
	return f.permittedDomains
}

// GetRestrictedDomains returns the sorted domains this rule is disabled on.
func (f *CosmeticRule) GetRestrictedDomains() (domains []string) {
	return f.restrictedDomains
}

// IsGeneric returns true if the rule is considered "generic".  "Generic"
// means that the rule is not restricted to a limited set of domains.  Please
// note that it might be forbidden on some domains, though.
func (f *CosmeticRule) IsGeneric() (ok bool) {
	return len(f.permittedDomains) == 0
}

// IsDirective returns true if the rule is a $generichide or a $elemhide
// directive.
func (f *CosmeticRule) IsDirective() (ok bool) {
	return f.Type == CosmeticGenericHide || f.Type == CosmeticElemHide
}

// DisablesAllScripts returns true if the rule is the "#@#+js()" exception
// disabling all scriptlets on the matched pages.
func (f *CosmeticRule) DisablesAllScripts() (ok bool) {
	return f.Whitelist && f.Type == CosmeticJS && f.Content == emptyScriptlet
}

// Match returns true if this rule can be used on the specified hostname.
func (f *CosmeticRule) Match(hostname string) (ok bool) {
	return matchDomains(hostname, f.permittedDomains, f.restrictedDomains)
}

// MatchRequest returns true if this rule can be used on the page the request
// is made for.  Directives additionally require the page URL to match their
// pattern.
func (f *CosmeticRule) MatchRequest(r *Request) (ok bool) {
	if !f.Match(r.Hostname) {
		return false
	}

	return f.urlRule == nil || f.urlRule.Match(r)
}
