package hybridmod

import (
	"slices"
)

// unqualifiedExports returns the packages d exports to everyone, sorted.
func unqualifiedExports(d *ModuleDescriptor) []string {
	var out []string
	for _, e := range d.Exports {
		if !e.IsQualified() {
			out = append(out, e.Package)
		}
	}
	slices.Sort(out)
	return out
}

// qualifiedExportsTo returns the friend-only packages of d whose targets
// include reader, sorted.
func qualifiedExportsTo(d *ModuleDescriptor, reader string) []string {
	var out []string
	for _, e := range d.Exports {
		if e.IsQualified() && slices.Contains(e.Targets, reader) {
			out = append(out, e.Package)
		}
	}
	slices.Sort(out)
	return out
}

// packagesVisibleTo applies the visibility rule: a module sees everything it
// defines; any other reader sees unqualified exports plus the qualified
// exports naming it.
func packagesVisibleTo(d *ModuleDescriptor, reader string) []string {
	if reader == d.Name {
		return d.AllPackages()
	}
	var out []string
	for _, e := range d.Exports {
		if e.ExportsTo(reader) {
			out = append(out, e.Package)
		}
	}
	slices.Sort(out)
	return out
}

// buildReadabilityIndex maps each package visible to m onto the unit that
// supplies it. Platform modules are inserted first (by name), then hybrid
// dependencies (by ID), then m itself. Any package claimed by two distinct
// units is an ExportCollisionError, whatever the insertion order.
func buildReadabilityIndex(m *Module) (map[string]ReadableUnit, error) {
	index := make(map[string]ReadableUnit)

	insert := func(owner ReadableUnit, ownerName string) error {
		for _, pkg := range owner.PackagesVisibleTo(m.Name()) {
			existing, ok := index[pkg]
			if ok && existing != owner {
				return &ExportCollisionError{
					Module:  m.id,
					Package: pkg,
					Owners:  [2]string{unitString(existing), ownerName},
				}
			}
			index[pkg] = owner
		}
		return nil
	}

	for _, p := range sortedPlatform(m.directPlatformReads) {
		if err := insert(p, p.Name()); err != nil {
			return nil, err
		}
	}
	for _, h := range sortedModules(m.directHybridReads) {
		if err := insert(h, h.id.String()); err != nil {
			return nil, err
		}
	}
	if err := insert(m, m.id.String()); err != nil {
		return nil, err
	}
	return index, nil
}

// unitString names a unit for diagnostics: name@version for hybrid modules,
// the bare name for platform modules.
func unitString(u ReadableUnit) string {
	if m, ok := u.(*Module); ok {
		return m.id.String()
	}
	return u.Name()
}
