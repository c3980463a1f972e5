package advtblock

import (
	"cmp"
	"slices"
	"strings"

	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/internal/ufnet"
	"github.com/AdguardTeam/advtblock/rules"
)

// cosmeticEntry is a cosmetic rule with its storage index.  The index defines
// the order in which the rules were registered.
type cosmeticEntry struct {
	rule *rules.CosmeticRule
	idx  int64
}

// cosmeticLookupTable is a helper structure to speed up cosmetic rules
// matching.
type cosmeticLookupTable struct {
	// byHostname contains the rules grouped by the permitted domains,
	// including the wildcard-TLD ones like "example.*".
	byHostname map[string][]cosmeticEntry

	// whitelist contains the exception rules.  The key is the rule content.
	whitelist map[string][]cosmeticEntry

	// exceptionsByHostname contains the exception rules grouped by the
	// permitted domains.
	exceptionsByHostname map[string][]cosmeticEntry

	// genericExceptions is the list of exception rules without permitted
	// domains.
	genericExceptions []cosmeticEntry

	// generic is the list of rules without permitted domains.
	generic []cosmeticEntry

	// disableAll is the list of exceptions disabling all rules of the table,
	// like "example.org#@#+js()".
	disableAll []cosmeticEntry

	// hasWildcards is true if the table contains rules for wildcard-TLD
	// domains.
	hasWildcards bool
}

// newCosmeticLookupTable creates a new empty instance of the lookup table.
func newCosmeticLookupTable() (t *cosmeticLookupTable) {
	return &cosmeticLookupTable{
		byHostname:           map[string][]cosmeticEntry{},
		whitelist:            map[string][]cosmeticEntry{},
		exceptionsByHostname: map[string][]cosmeticEntry{},
	}
}

// addRule adds the specified rule to the lookup table.
func (t *cosmeticLookupTable) addRule(f *rules.CosmeticRule, idx int64) {
	e := cosmeticEntry{rule: f, idx: idx}
	switch {
	case f.DisablesAllScripts():
		t.disableAll = append(t.disableAll, e)
	case f.Whitelist && !f.IsDirective():
		t.whitelist[f.Content] = append(t.whitelist[f.Content], e)
		if f.IsGeneric() {
			t.genericExceptions = append(t.genericExceptions, e)
		} else {
			t.addByHostname(t.exceptionsByHostname, e)
		}
	case f.IsGeneric():
		t.generic = append(t.generic, e)
	default:
		t.addByHostname(t.byHostname, e)
	}
}

// addByHostname adds e to m under every permitted domain of its rule.
func (t *cosmeticLookupTable) addByHostname(m map[string][]cosmeticEntry, e cosmeticEntry) {
	for _, d := range e.rule.GetPermittedDomains() {
		if strings.HasSuffix(d, ".*") {
			t.hasWildcards = true
		}

		m[d] = append(m[d], e)
	}
}

// findSpecific returns the domain-specific rules that match hostname.  keys
// are the lookup keys of hostname, see [CosmeticEngine.keys].
func (t *cosmeticLookupTable) findSpecific(
	hostname string,
	keys []string,
) (res []cosmeticEntry) {
	return findByHostname(t.byHostname, hostname, keys)
}

// findByHostname returns the rules from m that match hostname.
func findByHostname(
	m map[string][]cosmeticEntry,
	hostname string,
	keys []string,
) (res []cosmeticEntry) {
	for _, key := range keys {
		for _, e := range m[key] {
			if e.rule.Match(hostname) {
				res = append(res, e)
			}
		}
	}

	return res
}

// findGeneric returns the generic rules that are not disabled on hostname.
func (t *cosmeticLookupTable) findGeneric(hostname string) (res []cosmeticEntry) {
	return filterMatching(t.generic, hostname)
}

// findExceptions returns the contents of the exception rules that match
// hostname, sorted and deduplicated.
func (t *cosmeticLookupTable) findExceptions(hostname string, keys []string) (contents []string) {
	matched := findByHostname(t.exceptionsByHostname, hostname, keys)
	matched = append(matched, filterMatching(t.genericExceptions, hostname)...)

	contents = make([]string, 0, len(matched))
	for _, e := range matched {
		contents = append(contents, e.rule.Content)
	}

	slices.Sort(contents)

	return slices.Compact(contents)
}

// filterMatching returns the entries of rules that match hostname.
func filterMatching(entries []cosmeticEntry, hostname string) (res []cosmeticEntry) {
	for _, e := range entries {
		if e.rule.Match(hostname) {
			res = append(res, e)
		}
	}

	return res
}

// isWhitelisted returns true if there is an exception for content on
// hostname.
func (t *cosmeticLookupTable) isWhitelisted(hostname, content string) (ok bool) {
	for _, e := range t.whitelist[content] {
		if e.rule.Match(hostname) {
			return true
		}
	}

	return false
}

// isAllDisabled returns true if one of the exceptions disabling the whole
// table matches hostname.
func (t *cosmeticLookupTable) isAllDisabled(hostname string) (ok bool) {
	for _, e := range t.disableAll {
		if e.rule.Match(hostname) {
			return true
		}
	}

	return false
}

// CosmeticEngine combines all the cosmetic rules and allows to quickly find
// all rules matching this or that page.  It is immutable after creation and
// safe for concurrent use.
type CosmeticEngine struct {
	// elementHiding is the table of element hiding rules.
	elementHiding *cosmeticLookupTable

	// js is the table of scriptlets and scripts.
	js *cosmeticLookupTable

	// directives is the table of $generichide and $elemhide rules.
	directives *cosmeticLookupTable

	// RulesCount is the count of rules added to the engine.
	RulesCount int
}

// NewCosmeticEngine builds a new cosmetic engine from the cosmetic rules of
// the storage.
func NewCosmeticEngine(s *filterlist.RuleStorage) (e *CosmeticEngine) {
	e = &CosmeticEngine{
		elementHiding: newCosmeticLookupTable(),
		js:            newCosmeticLookupTable(),
		directives:    newCosmeticLookupTable(),
	}

	s.Range(func(idx int64, r rules.Rule) (cont bool) {
		if cr, ok := r.(*rules.CosmeticRule); ok {
			e.addRule(cr, idx)
		}

		return true
	})

	return e
}

// addRule adds f to the corresponding lookup table.
func (e *CosmeticEngine) addRule(f *rules.CosmeticRule, idx int64) {
	switch f.Type {
	case rules.CosmeticElementHiding:
		e.elementHiding.addRule(f, idx)
	case rules.CosmeticJS:
		e.js.addRule(f, idx)
	case rules.CosmeticGenericHide, rules.CosmeticElemHide:
		e.directives.addRule(f, idx)
	default:
		return
	}

	e.RulesCount++
}

// Match returns the cosmetic resources for the page with the specified URL.
// Pages without a hostname get the empty resources.  res is never nil.
func (e *CosmeticEngine) Match(pageURL string) (res *CosmeticResources) {
	res = newCosmeticResources()

	r := rules.NewRequest(pageURL, pageURL, rules.TypeDocument)
	hostname := r.Hostname
	if hostname == "" {
		return res
	}

	keys := e.keys(hostname)
	genericHide, elemHide := e.matchDirectives(r, keys)
	res.GenericHide = genericHide || elemHide

	e.matchElementHiding(res, hostname, keys, elemHide)
	e.matchScripts(res, hostname, keys)

	return res
}

// keys returns the lookup keys for hostname: the hostname itself, all its
// parent domains, and, if any table needs them, the wildcard-TLD forms.
func (e *CosmeticEngine) keys(hostname string) (keys []string) {
	keys = ufnet.Subdomains(hostname)
	if e.elementHiding.hasWildcards || e.js.hasWildcards || e.directives.hasWildcards {
		keys = append(keys, ufnet.WildcardSubdomains(hostname)...)
	}

	return keys
}

// matchDirectives returns whether the $generichide and $elemhide directives
// match the page.
func (e *CosmeticEngine) matchDirectives(
	r *rules.Request,
	keys []string,
) (genericHide, elemHide bool) {
	t := e.directives
	candidates := append(t.findSpecific(r.Hostname, keys), t.findGeneric(r.Hostname)...)
	for _, c := range candidates {
		if !c.rule.MatchRequest(r) {
			continue
		}

		switch c.rule.Type {
		case rules.CosmeticElemHide:
			elemHide = true
		default:
			genericHide = true
		}
	}

	return genericHide, elemHide
}

// matchElementHiding fills the selectors and the exceptions of res.  If
// elemHide is true, no selectors are hidden, but the exceptions are still
// reported.
func (e *CosmeticEngine) matchElementHiding(
	res *CosmeticResources,
	hostname string,
	keys []string,
	elemHide bool,
) {
	t := e.elementHiding
	res.Exceptions = t.findExceptions(hostname, keys)
	if elemHide {
		return
	}

	candidates := t.findSpecific(hostname, keys)
	if !res.GenericHide {
		candidates = append(candidates, t.findGeneric(hostname)...)
	}

	sortEntries(candidates)

	hidden := map[string]struct{}{}
	for _, c := range candidates {
		sel := c.rule.Content
		if _, ok := hidden[sel]; ok || t.isWhitelisted(hostname, sel) {
			continue
		}

		hidden[sel] = struct{}{}
		res.HideSelectors = append(res.HideSelectors, sel)
	}
}

// matchScripts fills the injected script of res with the matching scripts in
// the order of registration.
func (e *CosmeticEngine) matchScripts(res *CosmeticResources, hostname string, keys []string) {
	t := e.js
	if t.isAllDisabled(hostname) {
		return
	}

	candidates := append(t.findSpecific(hostname, keys), t.findGeneric(hostname)...)
	sortEntries(candidates)

	seen := map[string]struct{}{}
	var scripts []string
	for _, c := range candidates {
		body := c.rule.Content
		if _, ok := seen[body]; ok || t.isWhitelisted(hostname, body) {
			continue
		}

		seen[body] = struct{}{}
		scripts = append(scripts, body)
	}

	res.InjectedScript = strings.Join(scripts, "\n")
}

// sortEntries sorts entries by their storage indexes.
func sortEntries(entries []cosmeticEntry) {
	slices.SortFunc(entries, func(a, b cosmeticEntry) (res int) {
		return cmp.Compare(a.idx, b.idx)
	})
}
