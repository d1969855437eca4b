package hybridmod

import (
	"slices"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/label"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// Modifier is a bit set of requirement modifiers.
type Modifier uint8

const (
	// Transitive propagates readability of the required module to anything
	// that reads the requiring module.
	Transitive Modifier = 1 << iota

	// Static marks a compile-time-only requirement. Static requirements are
	// ignored during resolution.
	Static
)

// Has reports whether all bits of m2 are set in m.
func (m Modifier) Has(m2 Modifier) bool { return m&m2 == m2 }

func (m Modifier) String() string {
	var parts []string
	if m.Has(Transitive) {
		parts = append(parts, "transitive")
	}
	if m.Has(Static) {
		parts = append(parts, "static")
	}
	return strings.Join(parts, ",")
}

// Requirement is one requires entry of a ModuleDescriptor.
type Requirement struct {
	// Name is the required module name.
	Name string

	// CompiledVersion is the version the requiring module was built against.
	// Absent for platform modules and for unpinned hybrid requirements.
	CompiledVersion version.Version

	// Modifiers holds Transitive and/or Static.
	Modifiers Modifier
}

// IsTransitive reports whether the requirement propagates readability.
func (r Requirement) IsTransitive() bool { return r.Modifiers.Has(Transitive) }

// IsStatic reports whether the requirement is compile-time only.
func (r Requirement) IsStatic() bool { return r.Modifiers.Has(Static) }

// Export is one exports entry of a ModuleDescriptor.
type Export struct {
	// Package is the exported package name.
	Package string

	// Targets lists the friend modules allowed to read Package. Empty means
	// the package is exported to everyone.
	Targets []string
}

// IsQualified reports whether the export is restricted to named friends.
func (e Export) IsQualified() bool { return len(e.Targets) > 0 }

// ExportsTo reports whether a module named reader may see this export.
func (e Export) ExportsTo(reader string) bool {
	return len(e.Targets) == 0 || slices.Contains(e.Targets, reader)
}

// ModuleDescriptor holds the declared facts about one module version.
//
// Descriptors are values: once handed to a catalog they must not be mutated.
// Duplicate requires or exports are representable so that Validate can
// report them.
type ModuleDescriptor struct {
	// Name is the module name.
	Name string

	// Version is the declared module version, possibly absent.
	Version version.Version

	// Requires lists the declared dependencies.
	Requires []Requirement

	// Exports lists exported packages with their friend targets.
	Exports []Export

	// Packages lists every package the module defines. Exported packages
	// are implicitly included.
	Packages []string

	// MainClass is an opaque entry-point hint passed through to consumers.
	MainClass string
}

// ID returns the descriptor's module identity.
func (d *ModuleDescriptor) ID() label.ModuleID {
	return label.ModuleID{Name: d.Name, Version: d.Version}
}

// displayName is "name@version", or the bare name for an unversioned
// (platform) descriptor.
func (d *ModuleDescriptor) displayName() string {
	if d.Version.IsAbsent() {
		return d.Name
	}
	return d.ID().String()
}

// Validate checks the descriptor for structural errors: an invalid name,
// duplicate requirement names, or duplicate exported packages.
func (d *ModuleDescriptor) Validate() error {
	if err := label.ValidateName(d.Name); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Requires))
	for _, r := range d.Requires {
		if seen[r.Name] {
			return &DuplicateRequiresError{Module: d.displayName(), Requirement: r.Name}
		}
		seen[r.Name] = true
	}

	exported := make(map[string]bool, len(d.Exports))
	for _, e := range d.Exports {
		if exported[e.Package] {
			return &DuplicateExportError{Module: d.displayName(), Package: e.Package}
		}
		exported[e.Package] = true
	}
	return nil
}

// AllPackages returns the defined packages plus any exported package not
// listed explicitly, sorted and deduplicated.
func (d *ModuleDescriptor) AllPackages() []string {
	out := make([]string, 0, len(d.Packages)+len(d.Exports))
	out = append(out, d.Packages...)
	for _, e := range d.Exports {
		out = append(out, e.Package)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// RequirementFor returns the requires entry for name, if any.
func (d *ModuleDescriptor) RequirementFor(name string) (Requirement, bool) {
	for _, r := range d.Requires {
		if r.Name == name {
			return r, true
		}
	}
	return Requirement{}, false
}

// Clone returns a deep copy of d.
func (d *ModuleDescriptor) Clone() *ModuleDescriptor {
	c := *d
	c.Requires = slices.Clone(d.Requires)
	if d.Exports != nil {
		c.Exports = make([]Export, len(d.Exports))
		for i, e := range d.Exports {
			c.Exports[i] = Export{Package: e.Package, Targets: slices.Clone(e.Targets)}
		}
	}
	c.Packages = slices.Clone(d.Packages)
	return &c
}

// DescriptorBuilder assembles a ModuleDescriptor fluently.
//
//	desc := hybridmod.Describe("app", "1.0").
//	    Requires("lib", "2.0", hybridmod.Transitive).
//	    Exports("app.api").
//	    ExportsTo("app.spi", "lib").
//	    Packages("app.internal").
//	    Build()
type DescriptorBuilder struct {
	d ModuleDescriptor
}

// Describe starts a descriptor for name at version v ("" for absent).
func Describe(name, v string) *DescriptorBuilder {
	return &DescriptorBuilder{d: ModuleDescriptor{Name: name, Version: version.Parse(v)}}
}

// Requires adds a requirement. v may be "" for an unpinned or platform requirement.
func (b *DescriptorBuilder) Requires(name, v string, mods ...Modifier) *DescriptorBuilder {
	var m Modifier
	for _, mod := range mods {
		m |= mod
	}
	b.d.Requires = append(b.d.Requires, Requirement{Name: name, CompiledVersion: version.Parse(v), Modifiers: m})
	return b
}

// Exports adds unqualified exports.
func (b *DescriptorBuilder) Exports(pkgs ...string) *DescriptorBuilder {
	for _, p := range pkgs {
		b.d.Exports = append(b.d.Exports, Export{Package: p})
	}
	return b
}

// ExportsTo adds a qualified export of pkg to the given friends.
func (b *DescriptorBuilder) ExportsTo(pkg string, friends ...string) *DescriptorBuilder {
	b.d.Exports = append(b.d.Exports, Export{Package: pkg, Targets: slices.Clone(friends)})
	return b
}

// Packages adds non-exported (or additional) defined packages.
func (b *DescriptorBuilder) Packages(pkgs ...string) *DescriptorBuilder {
	b.d.Packages = append(b.d.Packages, pkgs...)
	return b
}

// MainClass sets the entry-point hint.
func (b *DescriptorBuilder) MainClass(s string) *DescriptorBuilder {
	b.d.MainClass = s
	return b
}

// Build returns the finished descriptor.
func (b *DescriptorBuilder) Build() *ModuleDescriptor {
	return b.d.Clone()
}
