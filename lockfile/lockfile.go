package lockfile

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	hybridmod "github.com/albertocavalcante/go-hybridmod"
)

// CurrentVersion is the lockfile schema version written by this package.
const CurrentVersion = 1

// Lockfile is a snapshot of a resolution session.
type Lockfile struct {
	// Version is the schema version.
	Version int `json:"lockFileVersion"`

	// Roots lists the root module IDs, sorted.
	Roots []string `json:"roots"`

	// Modules lists every resolved hybrid module, sorted by ID.
	Modules []Module `json:"modules"`

	// Platform lists every platform module read by Modules, sorted by name.
	Platform []PlatformModule `json:"platform,omitempty"`
}

// Module records one resolved hybrid module.
type Module struct {
	// ID is "name@version".
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`

	// Digest is the sha256 of the module's canonical descriptor.
	Digest string `json:"digest"`

	Reads                   []string `json:"reads,omitempty"`
	TransitiveReads         []string `json:"transitiveReads,omitempty"`
	PlatformReads           []string `json:"platformReads,omitempty"`
	TransitivePlatformReads []string `json:"transitivePlatformReads,omitempty"`
	Exports                 []string `json:"exports,omitempty"`
}

// PlatformModule records one platform module.
type PlatformModule struct {
	Name    string   `json:"name"`
	Digest  string   `json:"digest"`
	Reads   []string `json:"reads,omitempty"`
	Exports []string `json:"exports,omitempty"`
}

// New creates an empty lockfile with the current schema version.
func New() *Lockfile {
	return &Lockfile{
		Version: CurrentVersion,
		Roots:   []string{},
		Modules: []Module{},
	}
}

// FromModules snapshots modules, marking roots. Roots missing from modules
// are added. Platform modules are collected from what the modules read.
func FromModules(roots, modules []*hybridmod.Module) *Lockfile {
	lf := New()

	all := make(map[string]*hybridmod.Module, len(modules)+len(roots))
	for _, m := range modules {
		all[m.String()] = m
	}
	for _, r := range roots {
		all[r.String()] = r
	}

	sorted := make([]*hybridmod.Module, 0, len(all))
	for _, m := range all {
		sorted = append(sorted, m)
	}
	slices.SortFunc(sorted, func(a, b *hybridmod.Module) int { return a.ID().Compare(b.ID()) })

	platform := make(map[string]*hybridmod.PlatformModule)
	for _, m := range sorted {
		lf.Modules = append(lf.Modules, Module{
			ID:                      m.String(),
			Name:                    m.Name(),
			Version:                 m.Version().String(),
			Digest:                  Digest(m.Descriptor()),
			Reads:                   moduleIDs(m.DirectReads()),
			TransitiveReads:         moduleIDs(m.TransitiveReads()),
			PlatformReads:           platformNames(m.PlatformReads()),
			TransitivePlatformReads: platformNames(m.TransitivePlatformReads()),
			Exports:                 m.UnqualifiedExports(),
		})
		for _, p := range m.PlatformReads() {
			collectPlatform(p, platform)
		}
	}

	rootSorted := slices.Clone(roots)
	slices.SortFunc(rootSorted, func(a, b *hybridmod.Module) int { return a.ID().Compare(b.ID()) })
	for _, r := range rootSorted {
		id := r.String()
		if len(lf.Roots) == 0 || lf.Roots[len(lf.Roots)-1] != id {
			lf.Roots = append(lf.Roots, id)
		}
	}

	for _, p := range platform {
		lf.Platform = append(lf.Platform, PlatformModule{
			Name:    p.Name(),
			Digest:  Digest(p.Descriptor()),
			Reads:   platformNames(p.Reads()),
			Exports: p.UnqualifiedExports(),
		})
	}
	slices.SortFunc(lf.Platform, func(a, b PlatformModule) int { return cmp.Compare(a.Name, b.Name) })
	return lf
}

// Module returns the entry for id, if present.
func (l *Lockfile) Module(id string) (Module, bool) {
	for _, m := range l.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

func collectPlatform(p *hybridmod.PlatformModule, into map[string]*hybridmod.PlatformModule) {
	if _, ok := into[p.Name()]; ok {
		return
	}
	into[p.Name()] = p
	for _, dep := range p.Reads() {
		collectPlatform(dep, into)
	}
}

func moduleIDs(mods []*hybridmod.Module) []string {
	if len(mods) == 0 {
		return nil
	}
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.String()
	}
	return out
}

func platformNames(mods []*hybridmod.PlatformModule) []string {
	if len(mods) == 0 {
		return nil
	}
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name()
	}
	return out
}

// canonicalDescriptor is the digest input: every list sorted, so that
// reordering lines in a descriptor file does not change the digest.
type canonicalDescriptor struct {
	Name      string                 `json:"name"`
	Version   string                 `json:"version"`
	MainClass string                 `json:"mainClass"`
	Requires  []canonicalRequirement `json:"requires"`
	Exports   []canonicalExport      `json:"exports"`
	Packages  []string               `json:"packages"`
}

type canonicalRequirement struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Transitive bool   `json:"transitive"`
	Static     bool   `json:"static"`
}

type canonicalExport struct {
	Package string   `json:"package"`
	To      []string `json:"to"`
}

// Digest returns "sha256:<hex>" over the canonical form of d.
func Digest(d *hybridmod.ModuleDescriptor) string {
	c := canonicalDescriptor{
		Name:      d.Name,
		Version:   d.Version.String(),
		MainClass: d.MainClass,
		Requires:  make([]canonicalRequirement, 0, len(d.Requires)),
		Exports:   make([]canonicalExport, 0, len(d.Exports)),
		Packages:  d.AllPackages(),
	}
	for _, r := range d.Requires {
		c.Requires = append(c.Requires, canonicalRequirement{
			Name:       r.Name,
			Version:    r.CompiledVersion.String(),
			Transitive: r.IsTransitive(),
			Static:     r.IsStatic(),
		})
	}
	slices.SortFunc(c.Requires, func(a, b canonicalRequirement) int { return cmp.Compare(a.Name, b.Name) })
	for _, e := range d.Exports {
		to := slices.Clone(e.Targets)
		slices.Sort(to)
		c.Exports = append(c.Exports, canonicalExport{Package: e.Package, To: to})
	}
	slices.SortFunc(c.Exports, func(a, b canonicalExport) int { return cmp.Compare(a.Package, b.Package) })

	// Marshaling plain strings, bools and slices cannot fail.
	data, _ := json.Marshal(c)
	return computeSHA256(data)
}

// computeSHA256 computes the SHA256 hash of data and returns it as a hex string.
func computeSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
