// Package filterlist contains the rule lists and the rule storage combining
// them.
package filterlist

import (
	"log/slog"
	"strings"

	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/errors"
)

// ErrRuleRetrieval signals that the rule cannot be retrieved by RetrieveRule
// by the the index.
const ErrRuleRetrieval errors.Error = "cannot retrieve the rule"

// RuleList represents a set of filtering rules.
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() (id int)

	// NewScanner creates a new scanner that reads the list contents.  logger
	// is used to report malformed rules, it must not be nil.
	NewScanner(logger *slog.Logger) (scanner *RuleScanner)

	// RetrieveRule returns a rule by its index.
	RetrieveRule(ruleIdx int) (r rules.Rule, err error)
}

// StringRuleList represents a string-based rule list.
type StringRuleList struct {
	// RulesText is the string with filtering rules (one per line).
	RulesText string

	// ID is the rule list ID.
	ID int

	// IgnoreCosmetic tells whether to ignore cosmetic rules or not.
	IgnoreCosmetic bool
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// GetID implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) GetID() (id int) {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) NewScanner(logger *slog.Logger) (sc *RuleScanner) {
	return NewRuleScanner(&RuleScannerConfig{
		Logger:         logger,
		Reader:         strings.NewReader(l.RulesText),
		ListID:         l.ID,
		IgnoreCosmetic: l.IgnoreCosmetic,
	})
}

// RetrieveRule implements the [RuleList] interface for *StringRuleList.
// ruleIdx is the byte offset of the rule line.
func (l *StringRuleList) RetrieveRule(ruleIdx int) (r rules.Rule, err error) {
	if ruleIdx < 0 || ruleIdx >= len(l.RulesText) {
		return nil, ErrRuleRetrieval
	}

	endOfLine := strings.IndexByte(l.RulesText[ruleIdx:], '\n')
	if endOfLine == -1 {
		endOfLine = len(l.RulesText)
	} else {
		endOfLine += ruleIdx
	}

	return retrieveRule(l.RulesText[ruleIdx:endOfLine], l.ID)
}

// SliceRuleList is a rule list with one rule per slice element.
type SliceRuleList struct {
	// Rules are the filtering rules.
	Rules []string

	// ID is the rule list ID.
	ID int

	// IgnoreCosmetic tells whether to ignore cosmetic rules or not.
	IgnoreCosmetic bool
}

// type check
var _ RuleList = (*SliceRuleList)(nil)

// GetID implements the [RuleList] interface for *SliceRuleList.
func (l *SliceRuleList) GetID() (id int) {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *SliceRuleList.
func (l *SliceRuleList) NewScanner(logger *slog.Logger) (sc *RuleScanner) {
	return NewRuleScanner(&RuleScannerConfig{
		Logger:         logger,
		Lines:          l.Rules,
		ListID:         l.ID,
		IgnoreCosmetic: l.IgnoreCosmetic,
	})
}

// RetrieveRule implements the [RuleList] interface for *SliceRuleList.
// ruleIdx is the index of the rule in the slice.
func (l *SliceRuleList) RetrieveRule(ruleIdx int) (r rules.Rule, err error) {
	if ruleIdx < 0 || ruleIdx >= len(l.Rules) {
		return nil, ErrRuleRetrieval
	}

	return retrieveRule(l.Rules[ruleIdx], l.ID)
}

// retrieveRule parses a single line that must contain a rule.
func retrieveRule(line string, listID int) (r rules.Rule, err error) {
	r, err = rules.NewRule(line, listID)
	if err != nil {
		return nil, err
	} else if r == nil {
		return nil, ErrRuleRetrieval
	}

	return r, nil
}
