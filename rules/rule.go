// Package rules contains the filtering rules parsers and the request type that
// rules are matched against.
package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// RuleSyntaxError represents an error while parsing a filtering rule.
type RuleSyntaxError struct {
	msg      string
	ruleText string
}

// type check
var _ error = (*RuleSyntaxError)(nil)

// newRuleSyntaxError returns a new syntax error for the given rule text.
func newRuleSyntaxError(ruleText, format string, args ...any) (err *RuleSyntaxError) {
	return &RuleSyntaxError{
		msg:      fmt.Sprintf(format, args...),
		ruleText: ruleText,
	}
}

// Error implements the error interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Error() (msg string) {
	return fmt.Sprintf("syntax error: %s, rule: %s", e.msg, e.ruleText)
}

// ErrUnsupportedRule signals that this might be a valid rule type, but it is
// not yet supported by this library.
const ErrUnsupportedRule errors.Error = "this type of rules is unsupported"

// Rule is a base interface for all filtering rules.
type Rule interface {
	// Text returns the original rule text.
	Text() (s string)

	// GetFilterListID returns ID of the filter list this rule belongs to.
	GetFilterListID() (id int)
}

// NewRule creates a new filtering rule from the specified line.  It returns
// nil if the line is empty or if it is a comment.  Rules are always either a
// [*NetworkRule] or a [*CosmeticRule].
func NewRule(line string, filterListID int) (r Rule, err error) {
	line = strings.TrimSpace(line)

	if line == "" || isComment(line) {
		return nil, nil
	}

	if isCosmetic(line) {
		return NewCosmeticRule(line, filterListID)
	}

	nr, err := NewNetworkRule(line, filterListID)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return nil, err
	}

	if nr.isCosmeticDirective() {
		return newDirectiveRule(nr)
	}

	return nr, nil
}

// isComment checks if the line is a comment.
func isComment(line string) (ok bool) {
	if line == "" {
		return false
	}

	switch line[0] {
	case '!':
		return true
	case '[':
		// Filter list headers like "[Adblock Plus 2.0]".
		return strings.HasSuffix(line, "]")
	case '#':
		if len(line) == 1 {
			return true
		}

		// Now we should check that this is not a cosmetic rule.
		_, _, ok = findCosmeticMarker(line)

		return !ok
	default:
		return false
	}
}
