// Package label provides validated module identities.
//
// A [ModuleID] is the (name, version) pair that keys resolved modules. IDs are
// immutable, comparable with ==, and totally ordered by [ModuleID.Compare].
//
// # Formatting
//
// IDs render as "name@version". A module without a declared version renders
// as "name@_", mirroring the underscore used for unversioned keys elsewhere.
package label

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/version"
)

// absentMarker stands in for an absent version in string form.
const absentMarker = "_"

// ModuleID identifies one module version.
type ModuleID struct {
	Name    string
	Version version.Version
}

// NewModuleID creates a validated ModuleID.
func NewModuleID(name string, v version.Version) (ModuleID, error) {
	if err := ValidateName(name); err != nil {
		return ModuleID{}, err
	}
	return ModuleID{Name: name, Version: v}, nil
}

// MustModuleID creates a ModuleID or panics. Use only for constants/tests.
func MustModuleID(name, v string) ModuleID {
	id, err := NewModuleID(name, version.Parse(v))
	if err != nil {
		panic(err)
	}
	return id
}

// ValidateName checks that name is usable as a module name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if strings.ContainsRune(name, '@') {
		return fmt.Errorf("invalid module name %q: must not contain '@'", name)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("invalid module name %q: must not contain whitespace", name)
	}
	return nil
}

// ParseModuleID parses "name" or "name@version". A trailing "@_" or a bare
// name yields an absent version.
func ParseModuleID(s string) (ModuleID, error) {
	name, ver, found := strings.Cut(s, "@")
	if found && strings.ContainsRune(ver, '@') {
		return ModuleID{}, fmt.Errorf("invalid module id %q: more than one '@'", s)
	}
	if ver == absentMarker {
		ver = ""
	}
	return NewModuleID(name, version.Parse(ver))
}

// String returns "name@version", or "name@_" when the version is absent.
func (id ModuleID) String() string {
	if id.Version.IsAbsent() {
		return id.Name + "@" + absentMarker
	}
	return id.Name + "@" + id.Version.String()
}

// Compare orders by name, then version. Versions that compare equal but
// differ textually ("1.0" vs "1.0.0") fall back to raw string order so that
// Compare returns 0 only for == IDs.
func (id ModuleID) Compare(other ModuleID) int {
	if c := strings.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	if c := version.Compare(id.Version, other.Version); c != 0 {
		return c
	}
	return strings.Compare(id.Version.String(), other.Version.String())
}
