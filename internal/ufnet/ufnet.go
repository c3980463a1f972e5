// Package ufnet contains utilities for domain and hostname parsing/validation.
package ufnet

import (
	"net/netip"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HostnameBounds returns the indexes of the hostname inside of url, so that
// url[start:end] is the hostname.  ok is false if url has no "scheme://"
// prefix or the hostname is empty.
//
// NOTE: HostnameBounds is an optimized, best-effort function.  It doesn't
// validate the URL and doesn't allocate.
func HostnameBounds(url string) (start, end int, ok bool) {
	schemeEnd := strings.Index(url, "://")
	if schemeEnd <= 0 {
		// Both non-hierarchical URLs (data:, about:) and strings without a
		// scheme have no hostname we can filter by.
		return 0, 0, false
	}

	start = schemeEnd + len("://")
	end = strings.IndexAny(url[start:], "/?#")
	if end == -1 {
		end = len(url)
	} else {
		end += start
	}

	// Skip the userinfo part.
	if at := strings.LastIndexByte(url[start:end], '@'); at != -1 {
		start += at + 1
	}

	if start < end && url[start] == '[' {
		// IPv6 literal, keep the brackets out of the hostname.
		closing := strings.IndexByte(url[start:end], ']')
		if closing == -1 {
			return 0, 0, false
		}

		return start + 1, start + closing, closing > 1
	}

	if port := strings.IndexByte(url[start:end], ':'); port != -1 {
		end = start + port
	}

	return start, end, start < end
}

// ExtractHostname quickly retrieves hostname from the given URL.  It returns
// an empty string if there is none.
func ExtractHostname(url string) (hostname string) {
	start, end, ok := HostnameBounds(url)
	if !ok {
		return ""
	}

	return url[start:end]
}

// EffectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
// It returns an empty string if hostname has no registrable part.
func EffectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}

// RegistrableDomain returns the effective TLD plus one label of hostname or
// the hostname itself if there is no such domain, for example for IP
// addresses and single-label hosts.
func RegistrableDomain(hostname string) (domain string) {
	if _, err := netip.ParseAddr(hostname); err == nil {
		return hostname
	}

	if domain = EffectiveTLDPlusOne(hostname); domain != "" {
		return domain
	}

	return hostname
}

// Subdomains splits the specified hostname and returns the hostname itself and
// all of its parent domains, starting from the hostname.  For example, for
// "a.b.example.org" it returns "a.b.example.org", "b.example.org",
// "example.org", and "org".
func Subdomains(hostname string) (subdomains []string) {
	if hostname == "" {
		return nil
	}

	subdomains = append(subdomains, hostname)
	for i := 0; i < len(hostname); i++ {
		if hostname[i] == '.' && i+1 < len(hostname) {
			subdomains = append(subdomains, hostname[i+1:])
		}
	}

	return subdomains
}

// WildcardSubdomains returns the keys under which rules for wildcard-TLD
// domains like "example.*" are stored for hostname.  For "a.example.co.uk" it
// returns "a.example.*" and "example.*".  Only ICANN public suffixes are
// considered.
func WildcardSubdomains(hostname string) (keys []string) {
	suffix, icann := publicsuffix.PublicSuffix(hostname)
	if !icann || len(suffix) >= len(hostname) {
		return nil
	}

	rest := hostname[:len(hostname)-len(suffix)-1]
	for _, d := range Subdomains(rest) {
		keys = append(keys, d+".*")
	}

	return keys
}

// IsDomainName - check if input string is a valid domain name
// Syntax: [label.]... label.label
//
// Each label is 1 to 63 characters long, and may contain:
//
//	. ASCII letters a-z and A-Z
//	. digits 0-9
//	. hyphen ('-')
//
// . labels cannot start or end with hyphens (RFC 952)
// . max length of ascii hostname including dots is 253 characters
// . TLD is >=2 characters
// . TLD is [a-zA-Z]+ or "xn--[a-zA-Z0-9]+"
//
//nolint:gocyclo
func IsDomainName(name string) (ok bool) {
	if len(name) > 253 {
		return false
	}

	st := 0
	nLabel := 0
	var prevChar byte
	charOnly := true
	xn := 0

	for _, c := range []byte(name) {
		switch st {
		case 0:
			if !isASCIILetter(c) {
				charOnly = false

				if !isASCIIDigit(c) {
					return false
				}
			} else if c == 'x' || c == 'X' {
				xn = 1
			}
			st = 1
			nLabel = 1

		case 1:
			if c == '.' {
				if prevChar == '-' {
					return false
				}

				st = 0
				charOnly = true
				xn = 0

				continue
			}

			if nLabel == 63 {
				return false
			}

			if !isASCIILetter(c) {
				charOnly = false
				if !isASCIIDigit(c) && c != '-' {
					return false
				}
			}

			if xn > 0 {
				if xn < len("xn--") {
					if c == "xn--"[xn] {
						xn++
					} else {
						xn = 0
					}
				} else {
					xn++
				}
			}

			prevChar = c
			nLabel++
		}
	}

	if st != 1 ||
		nLabel == 1 ||
		(!charOnly && xn < len("xn--wwww")) {
		return false
	}

	return true
}

// isASCIILetter returns true if c is an ASCII letter.
func isASCIILetter(c byte) (ok bool) {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isASCIIDigit returns true if c is an ASCII digit.
func isASCIIDigit(c byte) (ok bool) {
	return c >= '0' && c <= '9'
}
