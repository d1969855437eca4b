package graph

import (
	"cmp"
	"slices"
	"strings"

	hybridmod "github.com/albertocavalcante/go-hybridmod"
	"github.com/albertocavalcante/go-hybridmod/label"
)

// Universe supplies every module a graph may contain besides what its roots
// reach. *hybridmod.Resolver implements it.
type Universe interface {
	Modules() []*hybridmod.Module
	Platform() *hybridmod.PlatformRegistry
}

var _ Universe = (*hybridmod.Resolver)(nil)

// Build walks the resolved roots depth-first and returns the graph they
// describe. u may be nil, in which case only what the roots reach is
// included regardless of p.ExcludeUnreadable.
//
// Build only reads the modules; it never changes them.
func Build(u Universe, roots []*hybridmod.Module, p Params) *Graph {
	b := &builder{
		params:   p,
		exclude:  make(map[string]bool, len(p.Exclude)),
		roots:    make(map[string]bool, len(roots)),
		nodes:    make(map[string]*Node),
		hybridID: make(map[string]label.ModuleID),
	}
	for _, key := range p.Exclude {
		b.exclude[key] = true
	}

	sorted := slices.Clone(roots)
	slices.SortFunc(sorted, func(a, b *hybridmod.Module) int { return a.ID().Compare(b.ID()) })
	for _, r := range sorted {
		b.roots[r.String()] = true
	}
	for _, r := range sorted {
		b.visitHybrid(r)
	}

	if !p.ExcludeUnreadable && u != nil {
		for _, m := range u.Modules() {
			b.visitHybrid(m)
		}
		if reg := u.Platform(); reg != nil && !p.ExcludePlatform {
			for _, pm := range reg.Modules() {
				b.visitPlatform(pm)
			}
		}
	}
	return b.finish()
}

type builder struct {
	params   Params
	exclude  map[string]bool
	roots    map[string]bool
	nodes    map[string]*Node
	hybridID map[string]label.ModuleID
	edges    []Edge
}

func (b *builder) visitHybrid(m *hybridmod.Module) {
	key := m.String()
	if b.exclude[key] || b.nodes[key] != nil {
		return
	}
	node := &Node{
		Key:     key,
		Name:    m.Name(),
		Version: m.Version().String(),
		Kind:    KindHybrid,
		Root:    b.roots[key],
	}
	if b.params.IncludeExports {
		node.Exports = m.UnqualifiedExports()
	}
	b.nodes[key] = node
	b.hybridID[key] = m.ID()

	if b.params.IncludeSelf {
		e := Edge{From: key, To: key, Type: Implicit}
		if b.params.IncludeExports {
			e.VisiblePackages = unexported(m.Descriptor())
		}
		b.edges = append(b.edges, e)
	}

	for _, dep := range m.DirectReads() {
		if b.exclude[dep.String()] {
			continue
		}
		req, ok := m.RequirementFor(dep.Name())
		if ok && !req.CompiledVersion.IsAbsent() && !req.CompiledVersion.Equal(dep.Version()) {
			ok = false
		}
		b.addEdge(key, dep.String(), edgeType(req, ok), dep, m.Name())
		b.visitHybrid(dep)
	}

	if b.params.ExcludePlatform {
		return
	}
	for _, pm := range m.PlatformReads() {
		if b.exclude[pm.Name()] {
			continue
		}
		req, ok := m.RequirementFor(pm.Name())
		b.addEdge(key, pm.Name(), edgeType(req, ok), pm, m.Name())
		b.visitPlatform(pm)
	}
}

func (b *builder) visitPlatform(pm *hybridmod.PlatformModule) {
	key := pm.Name()
	if b.params.ExcludePlatform || b.exclude[key] || b.nodes[key] != nil {
		return
	}
	node := &Node{Key: key, Name: key, Version: pm.Version().String(), Kind: KindPlatform}
	if b.params.IncludeExports {
		node.Exports = pm.UnqualifiedExports()
	}
	b.nodes[key] = node

	if b.params.IncludeSelf {
		e := Edge{From: key, To: key, Type: Implicit}
		if b.params.IncludeExports {
			e.VisiblePackages = unexported(pm.Descriptor())
		}
		b.edges = append(b.edges, e)
	}

	for _, dep := range pm.Reads() {
		if b.exclude[dep.Name()] {
			continue
		}
		req, ok := pm.RequirementFor(dep.Name())
		b.addEdge(key, dep.Name(), edgeType(req, ok), dep, pm.Name())
		b.visitPlatform(dep)
	}
}

func (b *builder) addEdge(from, to string, t EdgeType, target hybridmod.ReadableUnit, reader string) {
	e := Edge{From: from, To: to, Type: t}
	if b.params.IncludeExports {
		e.VisiblePackages = target.PackagesVisibleTo(reader)
	}
	b.edges = append(b.edges, e)
}

func (b *builder) finish() *Graph {
	g := &Graph{
		Roots:         []string{},
		HybridNodes:   []*Node{},
		PlatformNodes: []*Node{},
		Edges:         b.edges,
	}
	for _, n := range b.nodes {
		if n.Kind == KindHybrid {
			g.HybridNodes = append(g.HybridNodes, n)
		} else {
			g.PlatformNodes = append(g.PlatformNodes, n)
		}
	}
	slices.SortFunc(g.HybridNodes, func(x, y *Node) int {
		return b.hybridID[x.Key].Compare(b.hybridID[y.Key])
	})
	slices.SortFunc(g.PlatformNodes, func(x, y *Node) int { return strings.Compare(x.Name, y.Name) })

	rank := make(map[string]int, len(b.nodes))
	for i, n := range g.HybridNodes {
		rank[n.Key] = i
		if n.Root {
			g.Roots = append(g.Roots, n.Key)
		}
	}
	for i, n := range g.PlatformNodes {
		rank[n.Key] = len(g.HybridNodes) + i
	}

	// Drop edges whose target was pruned after the edge was recorded.
	g.Edges = slices.DeleteFunc(g.Edges, func(e Edge) bool {
		_, ok := rank[e.To]
		return !ok
	})
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	slices.SortFunc(g.Edges, func(x, y Edge) int {
		if c := cmp.Compare(rank[x.From], rank[y.From]); c != 0 {
			return c
		}
		if c := cmp.Compare(rank[x.To], rank[y.To]); c != 0 {
			return c
		}
		return cmp.Compare(x.Type, y.Type)
	})

	g.index()
	return g
}

func edgeType(req hybridmod.Requirement, ok bool) EdgeType {
	switch {
	case !ok || req.IsStatic():
		return Implicit
	case req.IsTransitive():
		return DirectTransitive
	default:
		return Direct
	}
}

// unexported returns the packages d defines but exports to nobody.
func unexported(d *hybridmod.ModuleDescriptor) []string {
	exported := make(map[string]bool, len(d.Exports))
	for _, e := range d.Exports {
		exported[e.Package] = true
	}
	var out []string
	for _, pkg := range d.AllPackages() {
		if !exported[pkg] {
			out = append(out, pkg)
		}
	}
	return out
}
