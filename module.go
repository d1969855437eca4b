package hybridmod

import (
	"maps"
	"slices"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/label"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// ReadableUnit is the capability shared by resolved hybrid modules and
// platform modules: something another module can read packages from.
//
// The concrete types are *Module and *PlatformModule.
type ReadableUnit interface {
	// Name returns the module name.
	Name() string

	// UnqualifiedExports returns the packages exported to everyone, sorted.
	UnqualifiedExports() []string

	// QualifiedExportsTo returns the packages exported only to a set of
	// friends that includes reader, sorted.
	QualifiedExportsTo(reader string) []string

	// PackagesVisibleTo returns every package reader may see, sorted.
	// A module sees all of its own packages.
	PackagesVisibleTo(reader string) []string
}

// Compile-time interface compliance checks
var (
	_ ReadableUnit = (*Module)(nil)
	_ ReadableUnit = (*PlatformModule)(nil)
)

// Module is a resolved hybrid module. Modules are built once per ModuleID
// per resolution session and never change afterwards; every module a Module
// refers to was fully built before it.
type Module struct {
	desc *ModuleDescriptor
	id   label.ModuleID

	// Reads available to this module itself, including what its
	// dependencies re-export transitively.
	directHybridReads   map[label.ModuleID]*Module
	directPlatformReads map[string]*PlatformModule

	// Reads this module passes on to anything that requires it.
	transitiveHybridReads   map[label.ModuleID]*Module
	transitivePlatformReads map[string]*PlatformModule

	packagesVisibleByPackageName map[string]ReadableUnit
}

// ID returns the module identity.
func (m *Module) ID() label.ModuleID { return m.id }

// Name returns the module name.
func (m *Module) Name() string { return m.id.Name }

// Version returns the module version.
func (m *Module) Version() version.Version { return m.id.Version }

// String returns "name@version".
func (m *Module) String() string { return m.id.String() }

// MainClassHint returns the opaque entry-point hint from the descriptor.
func (m *Module) MainClassHint() string { return m.desc.MainClass }

// Descriptor returns a copy of the module's descriptor.
func (m *Module) Descriptor() *ModuleDescriptor { return m.desc.Clone() }

// RequirementFor returns the descriptor's requires entry for name, if any.
func (m *Module) RequirementFor(name string) (Requirement, bool) {
	return m.desc.RequirementFor(name)
}

// DefinedPackages returns every package this module defines, sorted.
func (m *Module) DefinedPackages() []string { return m.desc.AllPackages() }

// UnqualifiedExports returns the packages exported to everyone, sorted.
func (m *Module) UnqualifiedExports() []string { return unqualifiedExports(m.desc) }

// QualifiedExportsTo returns the friend-only packages visible to reader, sorted.
func (m *Module) QualifiedExportsTo(reader string) []string {
	return qualifiedExportsTo(m.desc, reader)
}

// PackagesVisibleTo returns every package reader may see, sorted.
func (m *Module) PackagesVisibleTo(reader string) []string {
	return packagesVisibleTo(m.desc, reader)
}

// OwnerOf returns the module supplying pkg to this module, if any.
func (m *Module) OwnerOf(pkg string) (ReadableUnit, bool) {
	u, ok := m.packagesVisibleByPackageName[pkg]
	return u, ok
}

// VisiblePackages returns every package name this module can see, sorted.
func (m *Module) VisiblePackages() []string {
	return slices.Sorted(maps.Keys(m.packagesVisibleByPackageName))
}

// DirectReads returns the hybrid modules this module reads, sorted by ID.
func (m *Module) DirectReads() []*Module { return sortedModules(m.directHybridReads) }

// TransitiveReads returns the hybrid modules that readers of this module
// also read, sorted by ID.
func (m *Module) TransitiveReads() []*Module { return sortedModules(m.transitiveHybridReads) }

// PlatformReads returns the platform modules this module reads, sorted by name.
func (m *Module) PlatformReads() []*PlatformModule {
	return sortedPlatform(m.directPlatformReads)
}

// TransitivePlatformReads returns the platform modules that readers of this
// module also read, sorted by name.
func (m *Module) TransitivePlatformReads() []*PlatformModule {
	return sortedPlatform(m.transitivePlatformReads)
}

// Reads reports whether this module reads u. Every module reads itself.
func (m *Module) Reads(u ReadableUnit) bool {
	switch u := u.(type) {
	case *Module:
		if u == m {
			return true
		}
		return m.directHybridReads[u.id] == u
	case *PlatformModule:
		return m.directPlatformReads[u.Name()] == u
	default:
		return false
	}
}

// PlatformModule is a resolved built-in module. Platform modules are
// version-less from the resolver's point of view and are shared across
// resolution sessions.
type PlatformModule struct {
	desc            *ModuleDescriptor
	reads           map[string]*PlatformModule
	transitiveReads map[string]*PlatformModule
}

// Name returns the platform module name.
func (p *PlatformModule) Name() string { return p.desc.Name }

// Version returns the declared version, usually absent.
func (p *PlatformModule) Version() version.Version { return p.desc.Version }

// String returns the module name.
func (p *PlatformModule) String() string { return p.desc.Name }

// Descriptor returns a copy of the module's descriptor.
func (p *PlatformModule) Descriptor() *ModuleDescriptor { return p.desc.Clone() }

// RequirementFor returns the descriptor's requires entry for name, if any.
func (p *PlatformModule) RequirementFor(name string) (Requirement, bool) {
	return p.desc.RequirementFor(name)
}

// DefinedPackages returns every package this module defines, sorted.
func (p *PlatformModule) DefinedPackages() []string { return p.desc.AllPackages() }

// UnqualifiedExports returns the packages exported to everyone, sorted.
func (p *PlatformModule) UnqualifiedExports() []string { return unqualifiedExports(p.desc) }

// QualifiedExportsTo returns the friend-only packages visible to reader, sorted.
func (p *PlatformModule) QualifiedExportsTo(reader string) []string {
	return qualifiedExportsTo(p.desc, reader)
}

// PackagesVisibleTo returns every package reader may see, sorted.
func (p *PlatformModule) PackagesVisibleTo(reader string) []string {
	return packagesVisibleTo(p.desc, reader)
}

// Reads returns the platform modules this module reads, sorted by name.
func (p *PlatformModule) Reads() []*PlatformModule { return sortedPlatform(p.reads) }

// TransitiveReads returns the platform modules re-exported to readers of
// this module, sorted by name.
func (p *PlatformModule) TransitiveReads() []*PlatformModule {
	return sortedPlatform(p.transitiveReads)
}

func sortedModules(set map[label.ModuleID]*Module) []*Module {
	out := slices.Collect(maps.Values(set))
	slices.SortFunc(out, func(a, b *Module) int { return a.id.Compare(b.id) })
	return out
}

func sortedPlatform(set map[string]*PlatformModule) []*PlatformModule {
	out := slices.Collect(maps.Values(set))
	slices.SortFunc(out, func(a, b *PlatformModule) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}
