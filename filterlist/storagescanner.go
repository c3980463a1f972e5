package filterlist

import (
	"github.com/AdguardTeam/advtblock/rules"
)

// RuleStorageScanner scans multiple RuleScanner instances.  The rule index is
// built from the rule index in the list and the position of the list:
//
//   - the upper 4 bytes are the position of the list;
//   - the lower 4 bytes are the rule index in the list.
//
// So the storage indexes grow in the order the rules were registered.
type RuleStorageScanner struct {
	// Scanners is the list of list scanners backing this combined scanner.
	Scanners []*RuleScanner

	currentScanner    *RuleScanner
	currentScannerIdx int
}

// Scan advances the RuleStorageScanner to the next rule, which will then be
// available through the Rule method.  It returns false when the scan stops by
// reaching the end of the input.
func (s *RuleStorageScanner) Scan() (ok bool) {
	if len(s.Scanners) == 0 {
		return false
	}

	if s.currentScanner == nil {
		s.currentScannerIdx = 0
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}

	for {
		if s.currentScanner.Scan() {
			return true
		}

		// Take the next scanner or just return false if there's nothing
		// more.
		if s.currentScannerIdx == (len(s.Scanners) - 1) {
			return false
		}

		s.currentScannerIdx++
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}
}

// Rule returns the most recent rule generated by a call to Scan, and the index
// of this rule.  See [RuleStorageScanner] for the index format.
func (s *RuleStorageScanner) Rule() (r rules.Rule, storageIdx int64) {
	if s.currentScanner == nil {
		return nil, 0
	}

	r, idx := s.currentScanner.Rule()
	if r == nil {
		return nil, 0
	}

	return r, ruleListIdxToStorageIdx(s.currentScannerIdx, idx)
}

// Malformed returns the number of malformed lines skipped by all scanners.
func (s *RuleStorageScanner) Malformed() (n int) {
	for _, sc := range s.Scanners {
		n += sc.Malformed()
	}

	return n
}

// ruleListIdxToStorageIdx converts a pair of the list position and the rule
// list index to a single int64 storage index.
func ruleListIdxToStorageIdx(listPos, ruleIdx int) (storageIdx int64) {
	return int64(listPos)<<32 | int64(ruleIdx)&0xFFFFFFFF
}

// storageIdxToRuleListIdx converts the storage index to the list position and
// the index of the rule in the list.
func storageIdxToRuleListIdx(storageIdx int64) (listPos, ruleIdx int) {
	return int(storageIdx >> 32), int(uint32(storageIdx))
}
