package lookup

import (
	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/internal/fasthash"
	"github.com/AdguardTeam/advtblock/internal/ufnet"
	"github.com/AdguardTeam/advtblock/rules"
)

// DomainsTable is a lookup table that uses domains from the $domain modifier
// to speed up the rules search.  Only the rules with $domain modifier are
// eligible for this lookup table.
type DomainsTable struct {
	// ruleStorage is the storage for the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// domainsLookupTable is the domain lookup table.  Key is the domain name
	// hash, including the "label.*" forms of wildcard-TLD domains.
	domainsLookupTable map[uint32][]int64

	// hasWildcards is true if any of the added rules has a wildcard-TLD
	// domain, so that the wildcard keys should be checked as well.
	hasWildcards bool
}

// type check
var _ Table = (*DomainsTable)(nil)

// NewDomainsTable creates a new instance of the DomainsTable.
func NewDomainsTable(rs *filterlist.RuleStorage) (s *DomainsTable) {
	return &DomainsTable{
		ruleStorage:        rs,
		domainsLookupTable: map[uint32][]int64{},
	}
}

// TryAdd implements the [Table] interface for *DomainsTable.
func (d *DomainsTable) TryAdd(f *rules.NetworkRule, storageIdx int64) (ok bool) {
	permittedDomains := f.GetPermittedDomains()
	if len(permittedDomains) == 0 {
		return false
	}

	for _, domain := range permittedDomains {
		if isWildcard(domain) {
			d.hasWildcards = true
		}

		hash := fasthash.String(domain)
		d.domainsLookupTable[hash] = append(d.domainsLookupTable[hash], storageIdx)
	}

	return true
}

// MatchAll implements the [Table] interface for *DomainsTable.
func (d *DomainsTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	if r.SourceHostname == "" {
		return result
	}

	result = d.matchKeys(r, ufnet.Subdomains(r.SourceHostname), result)
	if d.hasWildcards {
		result = d.matchKeys(r, ufnet.WildcardSubdomains(r.SourceHostname), result)
	}

	return result
}

// matchKeys appends the rules stored under keys and matching r to result.
func (d *DomainsTable) matchKeys(
	r *rules.Request,
	keys []string,
	found []*rules.NetworkRule,
) (result []*rules.NetworkRule) {
	result = found
	for _, key := range keys {
		matchingRules, ok := d.domainsLookupTable[fasthash.String(key)]
		if !ok {
			continue
		}

		for _, ruleIdx := range matchingRules {
			// A rule with several permitted domains may be stored under
			// more than one key of the same hostname.
			rule := d.ruleStorage.RetrieveNetworkRule(ruleIdx)
			if rule != nil && !ruleIn(rule, result) && rule.Match(r) {
				result = append(result, rule)
			}
		}
	}

	return result
}

// isWildcard returns true if domain is a wildcard-TLD domain like "example.*".
func isWildcard(domain string) (ok bool) {
	return len(domain) > 2 && domain[len(domain)-2:] == ".*"
}
