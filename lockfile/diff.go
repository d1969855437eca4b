package lockfile

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/version"
)

// ModuleChange represents an added or removed module.
type ModuleChange struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ModuleUpgrade represents a version change of a module present in both
// lockfiles at exactly one version.
type ModuleUpgrade struct {
	Name       string `json:"name"`
	OldVersion string `json:"old_version"`
	NewVersion string `json:"new_version"`
}

// Diff describes the differences between two lockfiles.
type Diff struct {
	// RootsChanged is true when the root sets differ.
	RootsChanged bool `json:"roots_changed,omitempty"`

	// Added contains modules present in new but not in old.
	Added []ModuleChange `json:"added,omitempty"`

	// Removed contains modules present in old but not in new.
	Removed []ModuleChange `json:"removed,omitempty"`

	// Upgraded contains modules where the new version is higher.
	Upgraded []ModuleUpgrade `json:"upgraded,omitempty"`

	// Downgraded contains modules where the new version is lower.
	Downgraded []ModuleUpgrade `json:"downgraded,omitempty"`

	// Changed lists module IDs (and platform module names) present in both
	// lockfiles whose digest, reads or exports differ.
	Changed []string `json:"changed,omitempty"`
}

// IsEmpty returns true if there are no differences.
func (d *Diff) IsEmpty() bool {
	return !d.RootsChanged &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Upgraded) == 0 &&
		len(d.Downgraded) == 0 &&
		len(d.Changed) == 0
}

// TotalChanges returns the number of module-level changes.
func (d *Diff) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Upgraded) + len(d.Downgraded) + len(d.Changed)
}

// String renders the diff one change per line.
func (d *Diff) String() string {
	var sb strings.Builder
	if d.RootsChanged {
		sb.WriteString("~ roots changed\n")
	}
	for _, c := range d.Added {
		fmt.Fprintf(&sb, "+ %s@%s\n", c.Name, c.Version)
	}
	for _, c := range d.Removed {
		fmt.Fprintf(&sb, "- %s@%s\n", c.Name, c.Version)
	}
	for _, u := range d.Upgraded {
		fmt.Fprintf(&sb, "↑ %s %s -> %s\n", u.Name, u.OldVersion, u.NewVersion)
	}
	for _, u := range d.Downgraded {
		fmt.Fprintf(&sb, "↓ %s %s -> %s\n", u.Name, u.OldVersion, u.NewVersion)
	}
	for _, id := range d.Changed {
		fmt.Fprintf(&sb, "~ %s\n", id)
	}
	return sb.String()
}

// Compare compares two lockfiles and returns the differences. nil is
// treated as empty.
//
// A name present at exactly one version on each side whose version changed
// is an upgrade or downgrade, decided by version.Compare. Otherwise versions
// are matched exactly and reported as added or removed.
func Compare(old, new *Lockfile) *Diff {
	if old == nil {
		old = New()
	}
	if new == nil {
		new = New()
	}
	diff := &Diff{RootsChanged: !slices.Equal(old.Roots, new.Roots)}

	oldByName := groupByName(old.Modules)
	newByName := groupByName(new.Modules)
	names := slices.Sorted(maps.Keys(oldByName))
	for name := range newByName {
		if _, ok := oldByName[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		o, n := oldByName[name], newByName[name]
		if len(o) == 1 && len(n) == 1 && o[0].Version != n[0].Version {
			up := ModuleUpgrade{Name: name, OldVersion: o[0].Version, NewVersion: n[0].Version}
			oldV, newV := version.Parse(up.OldVersion), version.Parse(up.NewVersion)
			switch {
			case newV.Equal(oldV):
				diff.Changed = append(diff.Changed, n[0].ID)
			case version.Max(oldV, newV).Equal(newV):
				diff.Upgraded = append(diff.Upgraded, up)
			default:
				diff.Downgraded = append(diff.Downgraded, up)
			}
			continue
		}

		oldIDs := make(map[string]Module, len(o))
		for _, m := range o {
			oldIDs[m.ID] = m
		}
		for _, m := range n {
			prev, ok := oldIDs[m.ID]
			if !ok {
				diff.Added = append(diff.Added, ModuleChange{Name: name, Version: m.Version})
				continue
			}
			if !sameModule(prev, m) {
				diff.Changed = append(diff.Changed, m.ID)
			}
			delete(oldIDs, m.ID)
		}
		for _, m := range o {
			if _, ok := oldIDs[m.ID]; ok {
				diff.Removed = append(diff.Removed, ModuleChange{Name: name, Version: m.Version})
			}
		}
	}

	oldPlatform := make(map[string]PlatformModule, len(old.Platform))
	for _, p := range old.Platform {
		oldPlatform[p.Name] = p
	}
	for _, p := range new.Platform {
		prev, ok := oldPlatform[p.Name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, ModuleChange{Name: p.Name})
		case prev.Digest != p.Digest || !slices.Equal(prev.Reads, p.Reads) || !slices.Equal(prev.Exports, p.Exports):
			diff.Changed = append(diff.Changed, p.Name)
		}
		delete(oldPlatform, p.Name)
	}
	for _, p := range old.Platform {
		if _, ok := oldPlatform[p.Name]; ok {
			diff.Removed = append(diff.Removed, ModuleChange{Name: p.Name})
		}
	}

	sortChanges(diff.Added)
	sortChanges(diff.Removed)
	slices.Sort(diff.Changed)
	return diff
}

func groupByName(mods []Module) map[string][]Module {
	out := make(map[string][]Module)
	for _, m := range mods {
		out[m.Name] = append(out[m.Name], m)
	}
	return out
}

func sameModule(a, b Module) bool {
	return a.Digest == b.Digest &&
		slices.Equal(a.Reads, b.Reads) &&
		slices.Equal(a.TransitiveReads, b.TransitiveReads) &&
		slices.Equal(a.PlatformReads, b.PlatformReads) &&
		slices.Equal(a.TransitivePlatformReads, b.TransitivePlatformReads) &&
		slices.Equal(a.Exports, b.Exports)
}

// sortChanges sorts by name, then version.
func sortChanges(changes []ModuleChange) {
	slices.SortFunc(changes, func(a, b ModuleChange) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return version.Compare(version.Parse(a.Version), version.Parse(b.Version))
	})
}
