// Package metrics contains the metrics of the engine instances.
package metrics

// Interface is the interface for the collectors of the instance metrics.
// Implementations must be safe for concurrent use.
type Interface interface {
	// OnCreated is called when an instance is created.  malformed is the
	// number of lines of its rule list that could not be parsed.
	OnCreated(malformed int)

	// OnDestroyed is called when an instance is destroyed.
	OnDestroyed()

	// OnCheck is called after a network request check.
	OnCheck(blocked bool)
}

// Empty is an [Interface] implementation that does nothing.
type Empty struct{}

// type check
var _ Interface = Empty{}

// OnCreated implements the [Interface] interface for Empty.
func (Empty) OnCreated(_ int) {}

// OnDestroyed implements the [Interface] interface for Empty.
func (Empty) OnDestroyed() {}

// OnCheck implements the [Interface] interface for Empty.
func (Empty) OnCheck(_ bool) {}
