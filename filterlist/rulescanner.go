package filterlist

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// lineSource is a source of rule lines.
type lineSource interface {
	// next returns the next line and its index in the list.  ok is false if
	// there are no more lines.
	next() (line string, idx int, ok bool)
}

// readerLines reads lines from an [io.Reader].  The index of a line is its
// byte offset.
type readerLines struct {
	reader *bufio.Reader
	pos    int
	done   bool
}

// newReaderLines returns a line source reading r.
func newReaderLines(r io.Reader) (ls *readerLines) {
	return &readerLines{
		reader: bufio.NewReader(r),
	}
}

// type check
var _ lineSource = (*readerLines)(nil)

// next implements the lineSource interface for *readerLines.
func (ls *readerLines) next() (line string, idx int, ok bool) {
	if ls.done {
		return "", 0, false
	}

	line, err := ls.reader.ReadString('\n')
	if err != nil {
		// Both io.EOF and read errors stop the scanning, the last line
		// may still be returned.
		ls.done = true
		if line == "" {
			return "", 0, false
		}
	}

	idx = ls.pos
	ls.pos += len(line)

	return line, idx, true
}

// sliceLines returns the elements of a slice as lines.  The index of a line
// is its slice index.
type sliceLines struct {
	lines []string
	pos   int
}

// type check
var _ lineSource = (*sliceLines)(nil)

// next implements the lineSource interface for *sliceLines.
func (ls *sliceLines) next() (line string, idx int, ok bool) {
	if ls.pos >= len(ls.lines) {
		return "", 0, false
	}

	idx = ls.pos
	ls.pos++

	return ls.lines[idx], idx, true
}

// RuleScannerConfig is the configuration structure for a *RuleScanner.
type RuleScannerConfig struct {
	// Logger is used to report malformed rules.  It must not be nil.
	Logger *slog.Logger

	// Reader is the source of the rule lines.  It is only used when Lines is
	// nil.
	Reader io.Reader

	// Lines, if not nil, are the rule lines.
	Lines []string

	// ListID is the ID of the filter list.
	ListID int

	// IgnoreCosmetic defines whether cosmetic rules should be skipped.
	IgnoreCosmetic bool
}

// RuleScanner implements an interface for reading filtering rules.
type RuleScanner struct {
	logger *slog.Logger
	lines  lineSource

	// currentRule is the last rule read.
	currentRule rules.Rule

	// currentRuleIdx is the index of the beginning of the current rule.
	currentRuleIdx int

	// listID is the filter list ID.
	listID int

	// malformed is the number of lines that could not be parsed.
	malformed int

	// ignoreCosmetic defines whether cosmetic rules should be skipped.
	ignoreCosmetic bool
}

// NewRuleScanner returns a new RuleScanner to read from the configured
// source.  c must not be nil and must contain either Reader or Lines.
func NewRuleScanner(c *RuleScannerConfig) (s *RuleScanner) {
	var lines lineSource = &sliceLines{lines: c.Lines}
	if c.Lines == nil {
		lines = newReaderLines(c.Reader)
	}

	return &RuleScanner{
		logger:         c.Logger,
		lines:          lines,
		listID:         c.ListID,
		ignoreCosmetic: c.IgnoreCosmetic,
	}
}

// Scan advances the RuleScanner to the next rule, which will then be available
// through the Rule method.  It returns false when the scan stops by reaching
// the end of the input.  Malformed rules are logged, counted, and skipped.
func (s *RuleScanner) Scan() (ok bool) {
	for {
		line, idx, hasLine := s.lines.next()
		if !hasLine {
			return false
		}

		line = strings.TrimSpace(line)
		r, err := rules.NewRule(line, s.listID)
		if err != nil {
			s.malformed++
			s.logger.Debug(
				"skipping malformed rule",
				"list_id", s.listID,
				"rule", line,
				slogutil.KeyError, err,
			)

			continue
		}

		if r == nil || (s.ignoreCosmetic && isCosmetic(r)) {
			continue
		}

		s.currentRule = r
		s.currentRuleIdx = idx

		return true
	}
}

// isCosmetic returns true if r is a cosmetic rule.
func isCosmetic(r rules.Rule) (ok bool) {
	_, ok = r.(*rules.CosmeticRule)

	return ok
}

// Rule returns the most recent rule generated by a call to Scan, and the index
// of this rule's text.
func (s *RuleScanner) Rule() (r rules.Rule, idx int) {
	return s.currentRule, s.currentRuleIdx
}

// Malformed returns the number of malformed lines skipped so far.
func (s *RuleScanner) Malformed() (n int) {
	return s.malformed
}
