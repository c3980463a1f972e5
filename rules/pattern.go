package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Special characters of the basic rule pattern syntax.
const (
	// maskDomainStart matches the beginning of the hostname or any of its
	// labels.
	maskDomainStart = "||"

	// maskPipe matches the beginning or the end of the URL.
	maskPipe = "|"

	// maskSeparator matches any separator character or the end of the URL.
	maskSeparator = "^"

	// maskAnyCharacter matches any sequence of characters.
	maskAnyCharacter = "*"

	// maskRegexRule starts and ends a regular expression pattern.
	maskRegexRule = "/"
)

var (
	reRegexpBrackets1         = regexp.MustCompile(`([^\\])\(.*[^\\]\)`)
	reRegexpBrackets2         = regexp.MustCompile(`([^\\])\{.*[^\\]\}`)
	reRegexpBrackets3         = regexp.MustCompile(`([^\\])\[.*[^\\]\]`)
	reRegexpEscapedCharacters = regexp.MustCompile(`\\[a-zA-Z]`)
	reRegexpSpecialCharacters = regexp.MustCompile(`[\\^$*+?.()|[\]{}]`)
)

// matcher is a compiled network rule pattern.  Basic patterns are matched
// without regular expressions, patterns in the "/regexp/" form are compiled
// with the RE2 engine, so the matching time is linear in both cases.
type matcher struct {
	// re is the compiled regular expression for "/regexp/" patterns.
	re *regexp.Regexp

	// segments are the parts of a basic pattern split by "*".  Empty
	// segments are removed.  Unless the rule is case-sensitive, segments are
	// lower-cased.
	segments []string

	// domainAnchor is true if the pattern starts with "||".
	domainAnchor bool

	// startAnchor is true if the pattern starts with a single "|".
	startAnchor bool

	// endAnchor is true if the pattern ends with "|".
	endAnchor bool

	// matchCase is true if the pattern is case-sensitive.
	matchCase bool
}

// newMatcher compiles pattern.  An empty pattern or a pattern consisting
// only of wildcards matches any URL.
func newMatcher(pattern string, matchCase bool) (m *matcher, err error) {
	m = &matcher{matchCase: matchCase}

	if isRegexPattern(pattern) {
		expr := pattern[1 : len(pattern)-1]
		if !matchCase {
			expr = "(?i)" + expr
		}

		m.re, err = regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling regexp: %w", err)
		}

		return m, nil
	}

	switch {
	case strings.HasPrefix(pattern, maskDomainStart):
		m.domainAnchor = true
		pattern = pattern[len(maskDomainStart):]
	case strings.HasPrefix(pattern, maskPipe):
		m.startAnchor = true
		pattern = pattern[len(maskPipe):]
	}

	if strings.HasSuffix(pattern, maskPipe) {
		m.endAnchor = true
		pattern = pattern[:len(pattern)-len(maskPipe)]
	}

	if strings.Contains(pattern, maskPipe) {
		return nil, fmt.Errorf("unexpected %q inside of the pattern", maskPipe)
	}

	// A wildcard right after or before an anchor cancels it.
	if strings.HasPrefix(pattern, maskAnyCharacter) {
		m.domainAnchor, m.startAnchor = false, false
	}

	if strings.HasSuffix(pattern, maskAnyCharacter) {
		m.endAnchor = false
	}

	if !matchCase {
		pattern = strings.ToLower(pattern)
	}

	for _, s := range strings.Split(pattern, maskAnyCharacter) {
		if s != "" {
			m.segments = append(m.segments, s)
		}
	}

	return m, nil
}

// isAnchored returns true if the pattern is tied to the start of the URL, a
// hostname, or the end of the URL.
func (m *matcher) isAnchored() (ok bool) {
	return m.domainAnchor || m.startAnchor || m.endAnchor
}

// match returns true if the pattern matches r.
func (m *matcher) match(r *Request) (ok bool) {
	if m.re != nil {
		return m.re.MatchString(r.URL)
	}

	url, host := r.URLLowerCase, r.hostBoundsLower
	if m.matchCase {
		url, host = r.URL, r.hostBounds
	}

	if !m.domainAnchor {
		return m.matchFrom(url, 0, m.startAnchor)
	} else if !host.ok {
		return false
	}

	for i := host.start; i < host.end; i++ {
		if (i == host.start || url[i-1] == '.') && m.matchFrom(url, i, true) {
			return true
		}
	}

	return false
}

// matchFrom matches the segments against text starting at pos.  If anchored
// is true, the first segment must start exactly at pos.
func (m *matcher) matchFrom(text string, pos int, anchored bool) (ok bool) {
	if len(m.segments) == 0 {
		return !m.endAnchor || !anchored || pos == len(text)
	}

	last := len(m.segments) - 1
	for i, seg := range m.segments {
		var end int
		switch {
		case i == 0 && anchored:
			end, ok = matchSegmentAt(text, pos, seg)
			if ok && i == last && m.endAnchor && end != len(text) {
				return false
			}
		case i == last && m.endAnchor:
			end, ok = findSegmentSuffix(text, pos, seg)
		default:
			_, end, ok = findSegment(text, pos, seg)
		}

		if !ok {
			return false
		}

		pos = end
	}

	return true
}

// findSegment finds the leftmost occurrence of seg in text starting at from.
func findSegment(text string, from int, seg string) (start, end int, ok bool) {
	for start = from; start <= len(text); start++ {
		if end, ok = matchSegmentAt(text, start, seg); ok {
			return start, end, true
		}
	}

	return -1, -1, false
}

// findSegmentSuffix finds an occurrence of seg in text starting at from or
// later and ending at the end of text.
func findSegmentSuffix(text string, from int, seg string) (end int, ok bool) {
	for start := from; start <= len(text); start++ {
		if end, ok = matchSegmentAt(text, start, seg); ok && end == len(text) {
			return end, true
		}
	}

	return -1, false
}

// matchSegmentAt matches seg against text at the position pos and returns the
// position right after the match.  The "^" character in seg matches a single
// separator character or the end of text.
func matchSegmentAt(text string, pos int, seg string) (end int, ok bool) {
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c == maskSeparator[0] {
			if pos == len(text) {
				continue
			} else if !isSeparator(text[pos]) {
				return -1, false
			}
		} else if pos == len(text) || text[pos] != c {
			return -1, false
		}

		pos++
	}

	return pos, true
}

// isSeparator returns true if c is a separator character, that is anything
// but a letter, a digit, or one of "_-.%".
func isSeparator(c byte) (ok bool) {
	switch {
	case
		c >= 'a' && c <= 'z',
		c >= 'A' && c <= 'Z',
		c >= '0' && c <= '9',
		c == '_', c == '-', c == '.', c == '%':
		return false
	default:
		return true
	}
}

// isRegexPattern returns true if the pattern is a regular expression.
func isRegexPattern(pattern string) (ok bool) {
	return len(pattern) > 1 &&
		strings.HasPrefix(pattern, maskRegexRule) &&
		strings.HasSuffix(pattern, maskRegexRule)
}

// findShortcut searches for the longest substring of the pattern that does not
// contain any of the special characters which are:
//
//	*
//	^
//	|
func findShortcut(pattern string) (shortcut string) {
	for pattern != "" {
		i := strings.IndexAny(pattern, "*^|")
		if i == -1 {
			if len(pattern) > len(shortcut) {
				return pattern
			}

			break
		}

		if i > len(shortcut) {
			shortcut = pattern[:i]
		}
		pattern = pattern[i+1:]
	}

	return shortcut
}

// findRegexpShortcut searches for a shortcut inside of a regexp pattern.
// Shortcut in this case is a longest string with no regexp special
// characters.  Complicated regexps are discarded right away.
func findRegexpShortcut(pattern string) (shortcut string) {
	pattern = pattern[1 : len(pattern)-1]

	// Lookahead-like expressions, optional parts, and alternations may match
	// URLs that don't contain any fixed substring.
	if strings.ContainsAny(pattern, "?|") {
		return ""
	}

	// Placeholder for a special character.
	const specialCharacter = "..."

	// Prepend specialCharacter for the following replace calls to work
	// properly.
	pattern = specialCharacter + pattern

	pattern = reRegexpBrackets1.ReplaceAllString(pattern, "$1"+specialCharacter)
	// Counted repetitions may repeat the previous character zero times.
	pattern = reRegexpBrackets2.ReplaceAllString(pattern, "$1*")
	pattern = reRegexpBrackets3.ReplaceAllString(pattern, "$1"+specialCharacter)
	pattern = reRegexpEscapedCharacters.ReplaceAllString(pattern, specialCharacter)

	start := 0
	for _, loc := range reRegexpSpecialCharacters.FindAllStringIndex(pattern, -1) {
		part := pattern[start:loc[0]]
		if part != "" && isQuantifier(pattern[loc[0]]) {
			// The last character of the part may be absent.
			part = part[:len(part)-1]
		}

		if len(part) > len(shortcut) {
			shortcut = part
		}

		start = loc[1]
	}

	if part := pattern[start:]; len(part) > len(shortcut) {
		shortcut = part
	}

	return shortcut
}

// isQuantifier returns true if c is a regexp quantifier allowing zero
// repetitions of the previous character.
func isQuantifier(c byte) (ok bool) {
	return c == '*' || c == '{'
}
