// Package advtblock is a content-blocking engine for the Adblock Plus style
// filter lists.  It decides whether network requests should be blocked and
// which cosmetic resources apply to a page.
package advtblock

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/AdguardTeam/advtblock/filterlist"
	"github.com/AdguardTeam/advtblock/rules"
)

// Config is the configuration structure for an *Engine.
type Config struct {
	// Logger is used for logging the engine operations.  It must not be nil.
	Logger *slog.Logger

	// ImportantExceptionWinsTies, if true, makes an important exception win
	// over an important blocking rule of the same specificity.  See
	// [NetworkEngineConfig].
	ImportantExceptionWinsTies bool
}

// engineState is the immutable state of a live engine.
type engineState struct {
	network  *NetworkEngine
	cosmetic *CosmeticEngine
	stats    filterlist.Stats
}

// Engine represents the filtering engine with all the loaded rules.  It is
// safe for concurrent use.  Once destroyed, all its methods return
// [ErrInstanceDestroyed].
type Engine struct {
	logger *slog.Logger

	// state is nil once the engine is destroyed.
	state atomic.Pointer[engineState]
}

// NewEngine builds a filtering engine from the rules of s.  c must not be nil.
func NewEngine(c *Config, s *filterlist.RuleStorage) (e *Engine) {
	st := &engineState{
		network: NewNetworkEngine(&NetworkEngineConfig{
			Storage:                    s,
			ImportantExceptionWinsTies: c.ImportantExceptionWinsTies,
		}),
		cosmetic: NewCosmeticEngine(s),
		stats:    s.Stats(),
	}

	e = &Engine{
		logger: c.Logger,
	}
	e.state.Store(st)

	e.logger.Debug(
		"engine built",
		"network", st.network.RulesCount,
		"cosmetic", st.cosmetic.RulesCount,
		"badfiltered", st.network.BadfilteredCount,
		"malformed", st.stats.Malformed,
	)

	return e
}

// NewEngineFromRules parses lines and builds a filtering engine of them.
// Malformed lines are skipped.  It returns [ErrNoRules] if lines is nil.
func NewEngineFromRules(c *Config, lines []string) (e *Engine, err error) {
	if lines == nil {
		return nil, ErrNoRules
	}

	s, err := filterlist.NewRuleStorage(&filterlist.Config{
		Logger: c.Logger,
		Lists: []filterlist.RuleList{&filterlist.SliceRuleList{
			ID:    1,
			Rules: lines,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating rule storage: %w", err)
	}

	return NewEngine(c, s), nil
}

// load returns the current state or an error if the engine is destroyed.
func (e *Engine) load() (st *engineState, err error) {
	st = e.state.Load()
	if st == nil {
		return nil, ErrInstanceDestroyed
	}

	return st, nil
}

// MatchRequest matches the request against the network rules.  rule is the
// rule that defined the result, see [NetworkEngine.Match].
func (e *Engine) MatchRequest(r *rules.Request) (rule *rules.NetworkRule, blocked bool, err error) {
	st, err := e.load()
	if err != nil {
		return nil, false, err
	}

	rule, blocked = st.network.Match(r)

	return rule, blocked, nil
}

// CheckURL returns true if the request to url made from the page sourceURL
// must be blocked.  resourceType is one of the names accepted by
// [rules.ParseRequestType], unknown names are treated as "other".
func (e *Engine) CheckURL(url, sourceURL, resourceType string) (blocked bool, err error) {
	r := rules.NewRequest(url, sourceURL, rules.ParseRequestType(resourceType))
	_, blocked, err = e.MatchRequest(r)

	return blocked, err
}

// CosmeticResources returns the cosmetic resources for the page with the
// specified URL.  Pages without a hostname get the empty resources.
func (e *Engine) CosmeticResources(pageURL string) (res *CosmeticResources, err error) {
	st, err := e.load()
	if err != nil {
		return nil, err
	}

	return st.cosmetic.Match(pageURL), nil
}

// Stats returns the parsing statistics of the rules of the engine.
func (e *Engine) Stats() (stats filterlist.Stats, err error) {
	st, err := e.load()
	if err != nil {
		return filterlist.Stats{}, err
	}

	return st.stats, nil
}

// Destroy releases the engine state.  All subsequent calls to the engine
// return [ErrInstanceDestroyed].  Queries running concurrently with Destroy
// either succeed or return the error.  ok is false if the engine has already
// been destroyed.
func (e *Engine) Destroy() (ok bool) {
	ok = e.state.Swap(nil) != nil
	if ok {
		e.logger.Debug("engine destroyed")
	}

	return ok
}
