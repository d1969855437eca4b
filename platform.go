package hybridmod

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// PlatformRegistry resolves platform module names into a closed, pre-linked
// set of PlatformModules.
//
// Results are memoized per name and are immutable once published, so a
// registry may be shared by many resolvers and read concurrently. Writes are
// serialized by a single lock; reads of already published names take no lock.
type PlatformRegistry struct {
	catalog  DescriptorCatalog
	prefixes []string
	logger   *slog.Logger
	metrics  *resolverMetrics

	mu          sync.Mutex
	modules     sync.Map // name -> *PlatformModule
	notPlatform sync.Map // name -> struct{}
}

// NewPlatformRegistry creates a registry backed by catalog. It honors the
// WithReservedPrefixes, WithLogger and WithMetrics options.
func NewPlatformRegistry(catalog DescriptorCatalog, opts ...Option) (*PlatformRegistry, error) {
	cfg, err := newResolverConfig(opts...)
	if err != nil {
		return nil, err
	}
	metrics, err := newResolverMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return newPlatformRegistry(catalog, cfg, metrics), nil
}

func newPlatformRegistry(catalog DescriptorCatalog, cfg *resolverConfig, metrics *resolverMetrics) *PlatformRegistry {
	return &PlatformRegistry{
		catalog:  catalog,
		prefixes: slices.Clone(cfg.prefixes()),
		logger:   cfg.log(),
		metrics:  metrics,
	}
}

// IsReserved reports whether name lies in a reserved platform namespace.
func (p *PlatformRegistry) IsReserved(name string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Resolve returns the platform module called name.
//
// It returns (nil, nil) when name is not a platform module, so the caller
// can try it as a hybrid module instead. An unknown name inside a reserved
// namespace fails with a *NotFoundError.
func (p *PlatformRegistry) Resolve(ctx context.Context, name string) (*PlatformModule, error) {
	if m, ok := p.modules.Load(name); ok {
		p.metrics.platformLookup("hit")
		return m.(*PlatformModule), nil
	}
	if _, ok := p.notPlatform.Load(name); ok {
		p.metrics.platformLookup("not_platform")
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.platformLookup("miss")
	return p.resolveLocked(ctx, name, nil)
}

// Modules returns every platform module resolved so far, sorted by name.
func (p *PlatformRegistry) Modules() []*PlatformModule {
	var out []*PlatformModule
	p.modules.Range(func(_, v any) bool {
		out = append(out, v.(*PlatformModule))
		return true
	})
	slices.SortFunc(out, func(a, b *PlatformModule) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// resolveLocked resolves name and its requirements depth-first. stack holds
// the names currently being resolved, for cycle detection.
func (p *PlatformRegistry) resolveLocked(ctx context.Context, name string, stack []string) (*PlatformModule, error) {
	if m, ok := p.modules.Load(name); ok {
		return m.(*PlatformModule), nil
	}
	if _, ok := p.notPlatform.Load(name); ok {
		return nil, nil
	}
	if i := slices.Index(stack, name); i >= 0 {
		cycle := append(slices.Clone(stack[i:]), name)
		return nil, &DependencyCycleError{Cycle: cycle}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desc, err := p.catalog.FindPlatform(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find platform module %s: %w", name, err)
	}
	if desc == nil {
		if p.IsReserved(name) {
			return nil, &NotFoundError{Name: name, Platform: true}
		}
		p.notPlatform.Store(name, struct{}{})
		return nil, nil
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	stack = append(stack, name)
	m := &PlatformModule{
		desc:            desc,
		reads:           make(map[string]*PlatformModule),
		transitiveReads: make(map[string]*PlatformModule),
	}
	for _, req := range desc.Requires {
		// Static requirements are link-time only.
		if req.IsStatic() {
			continue
		}
		dep, err := p.resolveLocked(ctx, req.Name, stack)
		if err != nil {
			return nil, err
		}
		if dep == nil {
			return nil, &NotFoundError{Name: req.Name, Platform: true}
		}
		m.reads[dep.Name()] = dep
		for n, t := range dep.transitiveReads {
			m.reads[n] = t
		}
		if req.IsTransitive() {
			m.transitiveReads[dep.Name()] = dep
			for n, t := range dep.transitiveReads {
				m.transitiveReads[n] = t
			}
		}
	}

	p.modules.Store(name, m)
	p.logger.Debug("platform module resolved", "module", name, "reads", len(m.reads))
	return m, nil
}
