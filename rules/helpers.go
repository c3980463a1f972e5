package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AdguardTeam/advtblock/internal/ufnet"
	"github.com/AdguardTeam/golibs/errors"
)

// splitWithEscapeCharacter splits string by the specified separator if it is
// not escaped.
func splitWithEscapeCharacter(str string, sep, escapeCharacter byte, preserveAllTokens bool) []string {
	parts := make([]string, 0)

	if str == "" {
		return parts
	}

	var sb strings.Builder
	escaped := false
	for i := range str {
		c := str[i]

		switch {
		case c == escapeCharacter:
			escaped = true
		case c == sep && escaped:
			sb.WriteByte(c)
			escaped = false
		case c == sep:
			if preserveAllTokens || sb.Len() > 0 {
				parts = append(parts, sb.String())
				sb.Reset()
			}
		default:
			if escaped {
				escaped = false
				sb.WriteByte(escapeCharacter)
			}
			sb.WriteByte(c)
		}
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// loadDomains loads the $domain modifier or cosmetic rules domains.  domains
// is the list of domains split by sep, restricted domains are prefixed with
// "~".  The returned lists are lower-cased, sorted, and deduplicated.
func loadDomains(domains, sep string) (permitted, restricted []string, err error) {
	if domains == "" {
		return nil, nil, errors.Error("no domains specified")
	}

	for _, d := range strings.Split(domains, sep) {
		d = strings.ToLower(strings.TrimSpace(d))

		isRestricted := strings.HasPrefix(d, "~")
		if isRestricted {
			d = d[1:]
		}

		if err = validateDomain(d); err != nil {
			return nil, nil, err
		}

		if isRestricted {
			restricted = append(restricted, d)
		} else {
			permitted = append(permitted, d)
		}
	}

	slices.Sort(permitted)
	permitted = slices.Compact(permitted)
	slices.Sort(restricted)
	restricted = slices.Compact(restricted)

	for _, d := range permitted {
		if _, found := slices.BinarySearch(restricted, d); found {
			return nil, nil, fmt.Errorf("domain %q is both permitted and restricted", d)
		}
	}

	return permitted, restricted, nil
}

// validateDomain returns an error if d can't be used as a rule domain.  The
// wildcard-TLD form "example.*" is accepted.
func validateDomain(d string) (err error) {
	if d == "" {
		return errors.Error("empty domain specified")
	}

	if strings.ContainsAny(d, " \t/$,|^") {
		return fmt.Errorf("invalid domain specified: %q", d)
	}

	return nil
}

// matchDomains checks hostname against the rule's permitted and restricted
// domains.  A rule restricted to no domains matches any hostname, including
// the empty one.
func matchDomains(hostname string, permitted, restricted []string) (ok bool) {
	if len(permitted) == 0 && len(restricted) == 0 {
		return true
	}

	if hostname == "" {
		return false
	}

	if isDomainOrSubdomainOfAny(hostname, restricted) {
		return false
	}

	return len(permitted) == 0 || isDomainOrSubdomainOfAny(hostname, permitted)
}

// isDomainOrSubdomainOfAny checks if "domain" is domain or subdomain or any
// of the sorted "domains".
func isDomainOrSubdomainOfAny(domain string, domains []string) (ok bool) {
	if len(domains) == 0 {
		return false
	}

	for _, d := range ufnet.Subdomains(domain) {
		if _, ok = slices.BinarySearch(domains, d); ok {
			return true
		}
	}

	// A pattern like "google.*" matches any "google.TLD" domain or
	// subdomain.
	if !hasWildcardDomain(domains) {
		return false
	}

	for _, d := range ufnet.WildcardSubdomains(domain) {
		if _, ok = slices.BinarySearch(domains, d); ok {
			return true
		}
	}

	return false
}

// hasWildcardDomain returns true if any of domains is in the "example.*"
// form.
func hasWildcardDomain(domains []string) (ok bool) {
	return slices.ContainsFunc(domains, func(d string) (isWildcard bool) {
		return strings.HasSuffix(d, ".*")
	})
}

// hostnameFromPattern returns the hostname of a "||hostname^" pattern or an
// empty string if pattern is not of that form.
func hostnameFromPattern(pattern string) (hostname string) {
	if !strings.HasPrefix(pattern, maskDomainStart) {
		return ""
	}

	hostname = pattern[len(maskDomainStart):]
	hostname = strings.TrimSuffix(hostname, maskSeparator)
	hostname = strings.TrimSuffix(hostname, "/")
	if !strings.Contains(hostname, ".") || !ufnet.IsDomainName(hostname) {
		return ""
	}

	return strings.ToLower(hostname)
}
