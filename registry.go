package advtblock

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdguardTeam/advtblock/metrics"
	"github.com/AdguardTeam/advtblock/rules"
	"github.com/google/uuid"
)

// Handle is an opaque identifier of an engine instance in a [Registry].
// Handles are comparable and are never reused, so a handle of a destroyed
// instance never refers to a newer one.  The zero Handle refers to no
// instance.
type Handle struct {
	id uuid.UUID
}

// String implements the [fmt.Stringer] interface for Handle.
func (h Handle) String() (s string) {
	return h.id.String()
}

// ParseHandle parses the string representation of a handle returned by
// [Handle.String].
func ParseHandle(s string) (h Handle, err error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, fmt.Errorf("parsing handle: %w", err)
	}

	return Handle{id: id}, nil
}

// RegistryConfig is the configuration structure for a *Registry.
type RegistryConfig struct {
	// Logger is used for logging the registry and the engines operations.  It
	// must not be nil.
	Logger *slog.Logger

	// Metrics is used to collect the instance metrics.  It must not be nil.
	Metrics metrics.Interface

	// ImportantExceptionWinsTies is passed to every created engine, see
	// [Config].
	ImportantExceptionWinsTies bool
}

// Registry manages the lifecycle of engine instances, which are referred to by
// handles.  It is safe for concurrent use, and operations on different
// instances don't contend with each other.
type Registry struct {
	logger  *slog.Logger
	metrics metrics.Interface

	// instances maps the handles to the *Engine values.
	instances *sync.Map

	importantExceptionWinsTies bool
}

// NewRegistry returns a new empty registry.  c must not be nil.
func NewRegistry(c *RegistryConfig) (r *Registry) {
	return &Registry{
		logger:                     c.Logger,
		metrics:                    c.Metrics,
		instances:                  &sync.Map{},
		importantExceptionWinsTies: c.ImportantExceptionWinsTies,
	}
}

// CreateInstance builds an engine from the rule lines and registers it.
// Malformed lines are skipped and don't cause an error.  It returns
// [ErrNoRules] if lines is nil.
func (r *Registry) CreateInstance(lines []string) (h Handle, err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Handle{}, fmt.Errorf("generating handle: %w", err)
	}

	h = Handle{id: id}
	e, err := NewEngineFromRules(&Config{
		Logger:                     r.logger.With("instance", h.String()),
		ImportantExceptionWinsTies: r.importantExceptionWinsTies,
	}, lines)
	if err != nil {
		return Handle{}, fmt.Errorf("creating instance: %w", err)
	}

	stats := e.state.Load().stats
	r.instances.Store(h, e)
	r.metrics.OnCreated(stats.Malformed)

	r.logger.Info(
		"instance created",
		"instance", h,
		"rules", stats.Total,
		"malformed", stats.Malformed,
	)

	return h, nil
}

// DestroyInstance destroys the instance and releases its resources.  Destroying
// an unknown or already destroyed instance is a no-op.
func (r *Registry) DestroyInstance(h Handle) {
	v, ok := r.instances.LoadAndDelete(h)
	if !ok {
		r.logger.Debug("destroying unknown instance", "instance", h)

		return
	}

	// The engine may already be destroyed by a caller of [Registry.Engine].
	_ = v.(*Engine).Destroy()
	r.metrics.OnDestroyed()
	r.logger.Info("instance destroyed", "instance", h)
}

// Engine returns the engine of the instance.  It returns
// [ErrInstanceDestroyed] if the instance is unknown or destroyed.  Destroying
// the returned engine directly makes its queries fail, but the instance stays
// registered until [Registry.DestroyInstance] is called.
func (r *Registry) Engine(h Handle) (e *Engine, err error) {
	v, ok := r.instances.Load(h)
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", h, ErrInstanceDestroyed)
	}

	return v.(*Engine), nil
}

// CheckURL returns true if the request must be blocked by the instance.  See
// [Engine.CheckURL].
func (r *Registry) CheckURL(h Handle, url, sourceURL, resourceType string) (blocked bool, err error) {
	req := rules.NewRequest(url, sourceURL, rules.ParseRequestType(resourceType))
	_, blocked, err = r.MatchRequest(h, req)

	return blocked, err
}

// MatchRequest matches the request against the network rules of the instance.
// See [Engine.MatchRequest].
func (r *Registry) MatchRequest(
	h Handle,
	req *rules.Request,
) (rule *rules.NetworkRule, blocked bool, err error) {
	e, err := r.Engine(h)
	if err != nil {
		return nil, false, err
	}

	rule, blocked, err = e.MatchRequest(req)
	if err != nil {
		return nil, false, fmt.Errorf("instance %s: %w", h, err)
	}

	r.metrics.OnCheck(blocked)

	return rule, blocked, nil
}

// CosmeticResources returns the cosmetic resources of the page for the
// instance.  See [Engine.CosmeticResources].
func (r *Registry) CosmeticResources(h Handle, pageURL string) (res *CosmeticResources, err error) {
	e, err := r.Engine(h)
	if err != nil {
		return nil, err
	}

	res, err = e.CosmeticResources(pageURL)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", h, err)
	}

	return res, nil
}

// Close destroys all instances of the registry.
func (r *Registry) Close() {
	n := 0
	r.instances.Range(func(k, _ any) (cont bool) {
		r.DestroyInstance(k.(Handle))
		n++

		return true
	})

	r.logger.Debug("registry closed", "instances", n)
}
