package hybridmod

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hybridmod"

// resolverMetrics holds the collectors updated during resolution.
// A nil *resolverMetrics records nothing.
type resolverMetrics struct {
	resolutions     *prometheus.CounterVec
	modulesResolved prometheus.Counter
	duration        prometheus.Histogram
	platformLookups *prometheus.CounterVec
}

func newResolverMetrics(reg prometheus.Registerer) (*resolverMetrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &resolverMetrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolutions_total",
				Help:      "Root resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		modulesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "modules_resolved_total",
			Help:      "Hybrid modules committed to a resolution session.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of root resolutions.",
			Buckets:   prometheus.DefBuckets,
		}),
		platformLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "platform_lookups_total",
				Help:      "Platform registry lookups by result.",
			},
			[]string{"result"},
		),
	}

	var err error
	if m.resolutions, err = register(reg, m.resolutions); err != nil {
		return nil, err
	}
	if m.modulesResolved, err = register(reg, m.modulesResolved); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.platformLookups, err = register(reg, m.platformLookups); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, reusing an identical collector that is already
// registered so several resolvers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *resolverMetrics) observeResolution(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome(err)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *resolverMetrics) moduleCommitted(n int) {
	if m == nil {
		return
	}
	m.modulesResolved.Add(float64(n))
}

func (m *resolverMetrics) platformLookup(result string) {
	if m == nil {
		return
	}
	m.platformLookups.WithLabelValues(result).Inc()
}

// outcome maps an error to a low-cardinality metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrModuleNotFound):
		return "not_found"
	case errors.Is(err, ErrAmbiguousVersion):
		return "ambiguous_version"
	case errors.Is(err, ErrCyclicDependency):
		return "cyclic_dependency"
	case errors.Is(err, ErrDuplicateRequires):
		return "duplicate_requires"
	case errors.Is(err, ErrDuplicateExport):
		return "duplicate_export"
	case errors.Is(err, ErrMissingCompiledVersion):
		return "missing_compiled_version"
	case errors.Is(err, ErrExportCollision):
		return "export_collision"
	default:
		return "error"
	}
}
