package metrics

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// subsystemEngine is the metrics subsystem of the engine instances.
const subsystemEngine = "engine"

// Prometheus is the Prometheus-based implementation of [Interface].
type Prometheus struct {
	instances      prometheus.Gauge
	createdTotal   prometheus.Counter
	destroyedTotal prometheus.Counter
	malformedTotal prometheus.Counter
	checksBlocked  prometheus.Counter
	checksAllowed  prometheus.Counter
}

// type check
var _ Interface = (*Prometheus)(nil)

// NewPrometheus registers the metrics in reg and returns a properly
// initialized *Prometheus.
func NewPrometheus(namespace string, reg prometheus.Registerer) (m *Prometheus, err error) {
	const (
		instances      = "instances"
		createdTotal   = "instances_created_total"
		destroyedTotal = "instances_destroyed_total"
		malformedTotal = "malformed_rules_total"
		checksTotal    = "checks_total"
	)

	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      checksTotal,
		Namespace: namespace,
		Subsystem: subsystemEngine,
		Help:      "The number of network request checks by the result.",
	}, []string{"result"})

	m = &Prometheus{
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      instances,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "The number of live engine instances.",
		}),
		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      createdTotal,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "The total number of created engine instances.",
		}),
		destroyedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      destroyedTotal,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "The total number of destroyed engine instances.",
		}),
		malformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      malformedTotal,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "The total number of skipped malformed rules.",
		}),
		checksBlocked: checks.WithLabelValues("blocked"),
		checksAllowed: checks.WithLabelValues("allowed"),
	}

	collectors := []struct {
		c    prometheus.Collector
		name string
	}{{
		c:    m.instances,
		name: instances,
	}, {
		c:    m.createdTotal,
		name: createdTotal,
	}, {
		c:    m.destroyedTotal,
		name: destroyedTotal,
	}, {
		c:    m.malformedTotal,
		name: malformedTotal,
	}, {
		c:    checks,
		name: checksTotal,
	}}

	var errs []error
	for _, c := range collectors {
		if err = reg.Register(c.c); err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.name, err))
		}
	}

	if err = errors.Join(errs...); err != nil {
		return nil, err
	}

	return m, nil
}

// OnCreated implements the [Interface] interface for *Prometheus.
func (m *Prometheus) OnCreated(malformed int) {
	m.instances.Inc()
	m.createdTotal.Inc()
	m.malformedTotal.Add(float64(malformed))
}

// OnDestroyed implements the [Interface] interface for *Prometheus.
func (m *Prometheus) OnDestroyed() {
	m.instances.Dec()
	m.destroyedTotal.Inc()
}

// OnCheck implements the [Interface] interface for *Prometheus.
func (m *Prometheus) OnCheck(blocked bool) {
	if blocked {
		m.checksBlocked.Inc()
	} else {
		m.checksAllowed.Inc()
	}
}
