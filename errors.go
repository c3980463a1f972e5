package advtblock

import "github.com/AdguardTeam/golibs/errors"

const (
	// ErrInstanceDestroyed is returned by the queries to a destroyed engine
	// or to a handle the registry doesn't know.
	ErrInstanceDestroyed errors.Error = "instance destroyed"

	// ErrNoRules is returned when an engine is created without a rule list.
	ErrNoRules errors.Error = "no rules provided"
)
