package hybridmod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/go-hybridmod/label"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// Resolver turns module names into fully linked Modules. A Resolver is one
// resolution session: at most one Module exists per ModuleID, and a Module
// is only published to the session after its whole root resolved.
//
// Resolution per module proceeds as follows:
//  1. Return the session's Module if the ID was already resolved.
//  2. Fail with ErrCyclicDependency if the ID is still being resolved.
//  3. Fetch and validate the descriptor (ErrModuleNotFound,
//     ErrAmbiguousVersion, ErrDuplicateRequires, ErrDuplicateExport).
//  4. Resolve every non-static requirement, platform modules first through
//     the PlatformRegistry, then hybrid modules recursively, and propagate
//     reads along transitive requirements.
//  5. Build the readability index (ErrExportCollision).
//
// A Resolver is safe for concurrent use; resolutions are serialized by a
// single lock.
type Resolver struct {
	catalog  DescriptorCatalog
	platform *PlatformRegistry
	pinned   bool
	logger   *slog.Logger
	metrics  *resolverMetrics

	mu      sync.Mutex
	modules map[label.ModuleID]*Module
}

// NewResolver creates a resolution session over catalog.
func NewResolver(catalog DescriptorCatalog, opts ...Option) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("catalog is nil")
	}
	cfg, err := newResolverConfig(opts...)
	if err != nil {
		return nil, err
	}
	metrics, err := newResolverMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	platform := cfg.platform
	if platform == nil {
		platform = newPlatformRegistry(catalog, cfg, metrics)
	}

	return &Resolver{
		catalog:  catalog,
		platform: platform,
		pinned:   cfg.pinnedRequirements,
		logger:   cfg.log(),
		metrics:  metrics,
		modules:  make(map[label.ModuleID]*Module),
	}, nil
}

// Resolve resolves the module called name. An absent v means the version is
// not pinned, in which case the catalog must hold exactly one candidate.
func (r *Resolver) Resolve(ctx context.Context, name string, v version.Version) (*Module, error) {
	id, err := label.NewModuleID(name, v)
	if err != nil {
		return nil, err
	}
	return r.ResolveID(ctx, id)
}

// ResolveID resolves id and everything it requires. On failure nothing built
// during this call is kept.
func (r *Resolver) ResolveID(ctx context.Context, id label.ModuleID) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	s := &session{
		r:         r,
		resolving: make(map[label.ModuleID]struct{}),
		staged:    make(map[label.ModuleID]*Module),
	}
	m, err := s.resolve(ctx, id.Name, id.Version, nil)
	r.metrics.observeResolution(err, time.Since(start))
	if err != nil {
		r.logger.Warn("resolution failed", "root", id.String(), "outcome", outcome(err), "error", err)
		return nil, err
	}

	maps.Copy(r.modules, s.staged)
	r.metrics.moduleCommitted(len(s.staged))
	r.logger.Debug("resolution committed", "root", m.String(), "new_modules", len(s.staged))
	return m, nil
}

// ResolveAll resolves several roots concurrently and returns their Modules in
// the order given. The first failure cancels the remaining roots; roots that
// finished before it stay in the session.
func (r *Resolver) ResolveAll(ctx context.Context, ids ...label.ModuleID) ([]*Module, error) {
	out := make([]*Module, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			m, err := r.ResolveID(gctx, id)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", id, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup returns the session's Module for id, if it has been resolved.
func (r *Resolver) Lookup(id label.ModuleID) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[id]
	return m, ok
}

// Modules returns every Module in the session, sorted by ID.
func (r *Resolver) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedModules(r.modules)
}

// Platform returns the registry the session resolves platform modules with.
func (r *Resolver) Platform() *PlatformRegistry { return r.platform }

// session is the mutable state of one root resolution.
type session struct {
	r         *Resolver
	resolving map[label.ModuleID]struct{}
	stack     []label.ModuleID
	staged    map[label.ModuleID]*Module
}

func (s *session) lookup(id label.ModuleID) (*Module, bool) {
	if m, ok := s.r.modules[id]; ok {
		return m, true
	}
	m, ok := s.staged[id]
	return m, ok
}

// resolve resolves name at v. requiredBy is nil for the root.
func (s *session) resolve(ctx context.Context, name string, v version.Version, requiredBy *label.ModuleID) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !v.IsAbsent() {
		if m, ok := s.lookup(label.ModuleID{Name: name, Version: v}); ok {
			s.r.logger.Debug("module cache hit", "module", m.String())
			return m, nil
		}
	}

	desc, err := s.fetch(ctx, name, v, requiredBy)
	if err != nil {
		return nil, err
	}
	id := desc.ID()

	if m, ok := s.lookup(id); ok {
		s.r.logger.Debug("module cache hit", "module", m.String())
		return m, nil
	}
	if _, ok := s.resolving[id]; ok {
		return nil, &DependencyCycleError{Cycle: s.cycle(id)}
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	s.resolving[id] = struct{}{}
	s.stack = append(s.stack, id)
	m, err := s.build(ctx, id, desc)
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.resolving, id)
	if err != nil {
		return nil, err
	}

	s.staged[id] = m
	return m, nil
}

// fetch selects the descriptor for name. A pinned version must match a
// candidate; an unpinned one needs exactly one candidate.
func (s *session) fetch(ctx context.Context, name string, v version.Version, requiredBy *label.ModuleID) (*ModuleDescriptor, error) {
	candidates, err := s.r.catalog.FindCandidates(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find candidates for %s: %w", name, err)
	}
	notFound := &NotFoundError{Name: name, Version: v, RequiredBy: requiredBy}
	if len(candidates) == 0 {
		return nil, notFound
	}

	if v.IsAbsent() {
		if len(candidates) > 1 {
			vs := make([]version.Version, len(candidates))
			for i, c := range candidates {
				vs[i] = c.Version
			}
			version.Sort(vs)
			return nil, &AmbiguousVersionError{Name: name, Candidates: vs}
		}
		s.r.logger.Debug("module fetched", "module", candidates[0].ID().String(), "pinned", false)
		return candidates[0], nil
	}

	// Exact spelling wins over an equivalent one ("1.0" vs "1.0.0").
	idx := slices.IndexFunc(candidates, func(d *ModuleDescriptor) bool { return d.Version == v })
	if idx < 0 {
		idx = slices.IndexFunc(candidates, func(d *ModuleDescriptor) bool { return d.Version.Equal(v) })
	}
	if idx < 0 {
		return nil, notFound
	}
	s.r.logger.Debug("module fetched", "module", candidates[idx].ID().String(), "pinned", true)
	return candidates[idx], nil
}

func (s *session) build(ctx context.Context, id label.ModuleID, desc *ModuleDescriptor) (*Module, error) {
	m := &Module{
		desc:                    desc,
		id:                      id,
		directHybridReads:       make(map[label.ModuleID]*Module),
		directPlatformReads:     make(map[string]*PlatformModule),
		transitiveHybridReads:   make(map[label.ModuleID]*Module),
		transitivePlatformReads: make(map[string]*PlatformModule),
	}

	for _, req := range desc.Requires {
		if req.IsStatic() {
			continue
		}

		p, err := s.r.platform.Resolve(ctx, req.Name)
		if err != nil {
			return nil, withRequiredBy(err, id)
		}
		if p != nil {
			m.addPlatformRead(p, req.IsTransitive())
			s.r.logger.Debug("requirement recorded", "module", id.String(), "requires", p.Name(), "platform", true)
			continue
		}

		if req.CompiledVersion.IsAbsent() && s.r.pinned {
			return nil, &MissingCompiledVersionError{Module: id, Requirement: req.Name}
		}
		dep, err := s.resolve(ctx, req.Name, req.CompiledVersion, &id)
		if err != nil {
			return nil, err
		}
		m.addHybridRead(dep, req.IsTransitive())
		s.r.logger.Debug("requirement recorded", "module", id.String(), "requires", dep.String(), "transitive", req.IsTransitive())
	}

	index, err := buildReadabilityIndex(m)
	if err != nil {
		return nil, err
	}
	m.packagesVisibleByPackageName = index
	return m, nil
}

// addHybridRead records dep as read by m. What dep re-exports is always
// readable by m; it is passed on to m's readers only when transitive is set.
func (m *Module) addHybridRead(dep *Module, transitive bool) {
	m.directHybridReads[dep.id] = dep
	maps.Copy(m.directHybridReads, dep.transitiveHybridReads)
	maps.Copy(m.directPlatformReads, dep.transitivePlatformReads)
	if transitive {
		m.transitiveHybridReads[dep.id] = dep
		maps.Copy(m.transitiveHybridReads, dep.transitiveHybridReads)
		maps.Copy(m.transitivePlatformReads, dep.transitivePlatformReads)
	}
}

func (m *Module) addPlatformRead(p *PlatformModule, transitive bool) {
	m.directPlatformReads[p.Name()] = p
	maps.Copy(m.directPlatformReads, p.transitiveReads)
	if transitive {
		m.transitivePlatformReads[p.Name()] = p
		maps.Copy(m.transitivePlatformReads, p.transitiveReads)
	}
}

// cycle returns the requires chain from the first occurrence of id on the
// stack back to id.
func (s *session) cycle(id label.ModuleID) []string {
	start := slices.Index(s.stack, id)
	if start < 0 {
		start = 0
	}
	chain := make([]string, 0, len(s.stack)-start+1)
	for _, step := range s.stack[start:] {
		chain = append(chain, step.String())
	}
	return append(chain, id.String())
}

// withRequiredBy attributes a platform NotFoundError to the requiring module.
func withRequiredBy(err error, id label.ModuleID) error {
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.RequiredBy == nil {
		cp := *nf
		cp.RequiredBy = &id
		return &cp
	}
	return err
}
