package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	maskWhiteList    = "@@"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// ErrTooWideRule is returned if the rule matches all urls but has no domain
// restrictions.
const ErrTooWideRule errors.Error = "the rule is too wide, add domain restrictions or make it more specific"

// NetworkRuleOption is the enumeration of various rule options.  In order to
// save memory, we store some options as a flag.
type NetworkRuleOption uint64

// NetworkRuleOption enumeration
const (
	OptionThirdParty NetworkRuleOption = 1 << iota // $third-party modifier
	OptionMatchCase                                // $match-case modifier
	OptionImportant                                // $important modifier
	OptionBadfilter                                // $badfilter modifier

	// Whitelist rules modifiers.  Each of them disables a part of the
	// cosmetic filtering on the matched pages.

	OptionElemhide    // $elemhide modifier
	OptionGenerichide // $generichide modifier

	// Whitelist-only options
	OptionWhitelistOnly = OptionElemhide | OptionGenerichide
)

// NetworkRule is a basic filtering rule.
// https://adblockplus.org/filter-cheatsheet
type NetworkRule struct {
	// matcher is the compiled pattern.
	matcher *matcher

	// RuleText is the original rule text.
	RuleText string

	// Shortcut is the longest lower-cased substring of the rule pattern with
	// no special characters.  It is empty if there is no such substring
	// longer than one character.
	Shortcut string

	// pattern is the basic rule pattern.
	pattern string

	// permittedDomains is the sorted list of permitted domains from the
	// $domain modifier.
	permittedDomains []string

	// restrictedDomains is the sorted list of restricted domains from the
	// $domain modifier.
	restrictedDomains []string

	// FilterListID is the filter list identifier.
	FilterListID int

	enabledOptions  NetworkRuleOption // Flag with all enabled rule options
	disabledOptions NetworkRuleOption // Flag with all disabled rule options

	permittedRequestTypes  RequestType // Flag with all permitted request types. 0 means ALL.
	restrictedRequestTypes RequestType // Flag with all restricted request types. 0 means NONE.

	// Whitelist is true if this is an exception rule.
	Whitelist bool
}

// type check
var _ Rule = (*NetworkRule)(nil)

// NewNetworkRule parses the rule text and returns a filter rule.
func NewNetworkRule(ruleText string, filterListID int) (r *NetworkRule, err error) {
	pattern, options, whitelist, err := parseRuleText(ruleText)
	if err != nil {
		return nil, err
	}

	r = &NetworkRule{
		RuleText:     ruleText,
		Whitelist:    whitelist,
		FilterListID: filterListID,
		pattern:      pattern,
	}

	err = r.loadOptions(options)
	if err != nil {
		return nil, newRuleSyntaxError(ruleText, "%s", err)
	}

	// example.org/* -> example.org^
	if strings.HasSuffix(r.pattern, "/*") {
		r.pattern = r.pattern[:len(r.pattern)-len("/*")] + maskSeparator
	}

	if isTooWide(pattern) && len(r.permittedDomains) == 0 {
		// The rule matches too much and does not have any domain
		// restrictions, so we should not allow it.
		return nil, ErrTooWideRule
	}

	isRegex := isRegexPattern(r.pattern)
	if !isRegex && strings.ContainsAny(r.pattern, " \t") {
		return nil, newRuleSyntaxError(ruleText, "whitespace in the pattern")
	}

	r.matcher, err = newMatcher(r.pattern, r.IsOptionEnabled(OptionMatchCase))
	if err != nil {
		return nil, newRuleSyntaxError(ruleText, "%s", err)
	}

	r.loadShortcut(isRegex)

	return r, nil
}

// isTooWide returns true if pattern matches all or almost all URLs.
func isTooWide(pattern string) (ok bool) {
	switch pattern {
	case "", maskPipe, maskDomainStart, maskAnyCharacter:
		return true
	default:
		return len(pattern) < 3
	}
}

// Text implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) Text() (s string) {
	return f.RuleText
}

// GetFilterListID implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) GetFilterListID() (id int) {
	return f.FilterListID
}

// String implements the [fmt.Stringer] interface for *NetworkRule.
func (f *NetworkRule) String() (s string) {
	return f.RuleText
}

// Match checks if this filtering rule matches the specified request.
func (f *NetworkRule) Match(r *Request) (ok bool) {
	switch {
	case
		!f.matchShortcut(r),
		!f.matchThirdParty(r),
		!f.matchRequestType(r.RequestType),
		!matchDomains(r.SourceHostname, f.permittedDomains, f.restrictedDomains),
		!f.matcher.match(r):
		return false
	}

	return true
}

// IsOptionEnabled returns true if the specified option is enabled.
func (f *NetworkRule) IsOptionEnabled(option NetworkRuleOption) (ok bool) {
	return (f.enabledOptions & option) == option
}

// IsOptionDisabled returns true if the specified option is disabled.
func (f *NetworkRule) IsOptionDisabled(option NetworkRuleOption) (ok bool) {
	return (f.disabledOptions & option) == option
}

// GetPermittedDomains returns the sorted domains this rule is allowed on.
func (f *NetworkRule) GetPermittedDomains() (domains []string) {
	return f.permittedDomains
}

// GetRestrictedDomains returns the sorted domains this rule is disabled on.
func (f *NetworkRule) GetRestrictedDomains() (domains []string) {
	return f.restrictedDomains
}

// Pattern returns the normalized pattern of the rule, with its anchors and
// wildcards.
func (f *NetworkRule) Pattern() (p string) {
	return f.pattern
}

// IsGeneric returns true if the rule is considered "generic".  "Generic"
// means that the rule is not restricted to a limited set of domains.  Please
// note that it might be forbidden on some domains, though.
func (f *NetworkRule) IsGeneric() (ok bool) {
	return len(f.permittedDomains) == 0
}

// IsImportant returns true if the rule has the $important modifier.
func (f *NetworkRule) IsImportant() (ok bool) {
	return f.IsOptionEnabled(OptionImportant)
}

// IsBadfilter returns true if the rule has the $badfilter modifier.
func (f *NetworkRule) IsBadfilter() (ok bool) {
	return f.IsOptionEnabled(OptionBadfilter)
}

// Specificity returns the number of constraints of the rule.  A rule gets a
// point for an anchored pattern, two points for permitted domains or one for
// restricted domains only, and a point for each of the request type, party,
// and case restrictions.
func (f *NetworkRule) Specificity() (n int) {
	if f.matcher.isAnchored() {
		n++
	}

	if len(f.permittedDomains) > 0 {
		n += 2
	} else if len(f.restrictedDomains) > 0 {
		n++
	}

	if f.permittedRequestTypes != 0 || f.restrictedRequestTypes != 0 {
		n++
	}

	if f.IsOptionEnabled(OptionThirdParty) || f.IsOptionDisabled(OptionThirdParty) {
		n++
	}

	if f.IsOptionEnabled(OptionMatchCase) {
		n++
	}

	return n
}

// NegatesBadfilter only makes sense when the "f" rule has a `badfilter`
// modifier.  It returns true if the "f" rule negates the specified "r" rule.
func (f *NetworkRule) NegatesBadfilter(r *NetworkRule) (ok bool) {
	switch {
	case
		!f.IsOptionEnabled(OptionBadfilter),
		f.Whitelist != r.Whitelist,
		f.pattern != r.pattern,
		f.permittedRequestTypes != r.permittedRequestTypes,
		f.restrictedRequestTypes != r.restrictedRequestTypes,
		(f.enabledOptions ^ OptionBadfilter) != r.enabledOptions,
		f.disabledOptions != r.disabledOptions,
		!slices.Equal(f.permittedDomains, r.permittedDomains),
		!slices.Equal(f.restrictedDomains, r.restrictedDomains):
		return false
	}

	return true
}

// isCosmeticDirective returns true if the rule is an exception disabling
// cosmetic filtering, like "@@||example.org^$generichide".
func (f *NetworkRule) isCosmeticDirective() (ok bool) {
	return f.Whitelist && f.enabledOptions&OptionWhitelistOnly != 0
}

// matchShortcut simply checks if shortcut is a substring of the URL.
func (f *NetworkRule) matchShortcut(r *Request) (ok bool) {
	return strings.Contains(r.URLLowerCase, f.Shortcut)
}

// matchThirdParty checks the party of the request against the rule's
// $third-party and $first-party modifiers.  The party of a request without a
// source or a hostname is unknown, so such rules don't match it.
func (f *NetworkRule) matchThirdParty(r *Request) (ok bool) {
	thirdParty := f.IsOptionEnabled(OptionThirdParty)
	firstParty := f.IsOptionDisabled(OptionThirdParty)
	if !thirdParty && !firstParty {
		return true
	}

	if r.SourceHostname == "" || r.Hostname == "" {
		return false
	}

	return r.ThirdParty == thirdParty
}

// matchRequestType checks if the specified request type matches the rule
// properties.
func (f *NetworkRule) matchRequestType(requestType RequestType) (ok bool) {
	if f.permittedRequestTypes != 0 && (f.permittedRequestTypes&requestType) != requestType {
		return false
	}

	return f.restrictedRequestTypes == 0 || (f.restrictedRequestTypes&requestType) != requestType
}

// setRequestType permits or forbids the specified request type.
func (f *NetworkRule) setRequestType(requestType RequestType, permitted bool) {
	if permitted {
		f.permittedRequestTypes |= requestType
	} else {
		f.restrictedRequestTypes |= requestType
	}
}

// setOptionEnabled enables or disables the specified option.  It returns an
// error if this option cannot be used with this type of rules.
func (f *NetworkRule) setOptionEnabled(option NetworkRuleOption, enabled bool) (err error) {
	if !f.Whitelist && (option&OptionWhitelistOnly) == option {
		return fmt.Errorf("modifier cannot be used in a blocking rule: %d", option)
	}

	if enabled {
		f.enabledOptions |= option
	} else {
		f.disabledOptions |= option
	}

	return nil
}

// loadOptions loads all the filtering rule options.
func (f *NetworkRule) loadOptions(options string) (err error) {
	if options == "" {
		return nil
	}

	for _, option := range splitWithEscapeCharacter(options, ',', escapeCharacter, false) {
		name, value, _ := strings.Cut(strings.TrimSpace(option), "=")
		err = f.loadOption(strings.ToLower(name), value)
		if err != nil {
			return err
		}
	}

	if f.IsOptionEnabled(OptionThirdParty) && f.IsOptionDisabled(OptionThirdParty) {
		return errors.Error("conflicting party modifiers")
	}

	// Rules of these types can be applied to documents only.
	if f.enabledOptions&OptionWhitelistOnly != 0 {
		f.permittedRequestTypes = TypeDocument
	}

	return nil
}

// loadOption loads specified option with its value (optional).
func (f *NetworkRule) loadOption(name, value string) (err error) {
	switch name {
	case "third-party", "~first-party", "3p", "~1p":
		return f.setOptionEnabled(OptionThirdParty, true)
	case "~third-party", "first-party", "1p", "~3p":
		return f.setOptionEnabled(OptionThirdParty, false)
	case "match-case":
		return f.setOptionEnabled(OptionMatchCase, true)
	case "~match-case":
		return f.setOptionEnabled(OptionMatchCase, false)
	case "important":
		return f.setOptionEnabled(OptionImportant, true)
	case "badfilter":
		return f.setOptionEnabled(OptionBadfilter, true)
	case "domain":
		f.permittedDomains, f.restrictedDomains, err = loadDomains(value, "|")

		return err
	case "elemhide", "ehide":
		return f.setOptionEnabled(OptionElemhide, true)
	case "generichide", "ghide":
		return f.setOptionEnabled(OptionGenerichide, true)
	default:
		return f.loadRequestTypeOption(name, value)
	}
}

// loadRequestTypeOption loads a content type option like "$image" or
// "$~script".
func (f *NetworkRule) loadRequestTypeOption(name, value string) (err error) {
	typeName, restricted := strings.CutPrefix(name, "~")
	t, ok := requestTypeNames[typeName]
	if !ok || value != "" {
		return fmt.Errorf("unknown filter modifier: %s=%s", name, value)
	}

	f.setRequestType(t, !restricted)

	return nil
}

// loadShortcut extracts a shortcut from the pattern.  Shortcut is the longest
// substring of the pattern that does not contain any special characters.
func (f *NetworkRule) loadShortcut(isRegex bool) {
	var shortcut string
	if isRegex {
		shortcut = findRegexpShortcut(f.pattern)
	} else {
		shortcut = findShortcut(f.pattern)
	}

	// shortcut needs to be at least longer than 1 character
	if len(shortcut) > 1 {
		f.Shortcut = strings.ToLower(shortcut)
	}
}

// parseRuleText splits the rule text in multiple parts:
//
//   - pattern is a basic rule pattern;
//   - options is a string with all rule options;
//   - whitelist indicates if the rule unblocks requests instead of blocking
//     them.
func parseRuleText(ruleText string) (pattern, options string, whitelist bool, err error) {
	startIndex := 0
	if strings.HasPrefix(ruleText, maskWhiteList) {
		whitelist = true
		startIndex = len(maskWhiteList)
	}

	if len(ruleText) <= startIndex {
		return "", "", false, newRuleSyntaxError(ruleText, "the rule is too short")
	}

	// Setting pattern to rule text for the case of empty options.
	pattern = ruleText[startIndex:]

	// Avoid parsing options inside of a regex rule.
	if isRegexPattern(pattern) {
		return pattern, "", whitelist, nil
	}

	foundEscaped := false
	for i := len(ruleText) - 2; i >= startIndex; i-- {
		c := ruleText[i]
		if c != optionsDelimiter {
			continue
		}

		if i > startIndex && ruleText[i-1] == escapeCharacter {
			foundEscaped = true

			continue
		}

		pattern = ruleText[startIndex:i]
		options = ruleText[i+1:]
		if foundEscaped {
			options = strings.ReplaceAll(options, `\$`, "$")
		}

		break
	}

	return pattern, options, whitelist, nil
}
