package hybridmod

import (
	"errors"
	"fmt"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/label"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// Sentinel errors for each resolution failure kind. Every typed error below
// unwraps to exactly one of these, so callers can test with errors.Is.
var (
	// ErrModuleNotFound indicates no descriptor exists for the requested name or version.
	ErrModuleNotFound = errors.New("module not found")

	// ErrAmbiguousVersion indicates an unpinned name has more than one candidate version.
	ErrAmbiguousVersion = errors.New("ambiguous module version")

	// ErrCyclicDependency indicates resolution re-entered a module that is still in progress.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrDuplicateRequires indicates a descriptor requires the same module name twice.
	ErrDuplicateRequires = errors.New("duplicate requires")

	// ErrDuplicateExport indicates a descriptor exports the same package twice.
	ErrDuplicateExport = errors.New("duplicate export")

	// ErrMissingCompiledVersion indicates a hybrid requirement without a pinned version
	// while pinned requirements are enforced.
	ErrMissingCompiledVersion = errors.New("missing compiled version")

	// ErrExportCollision indicates two readable modules supply the same package.
	ErrExportCollision = errors.New("export collision")
)

// NotFoundError is returned when a module name (or name@version) has no descriptor.
type NotFoundError struct {
	// Name is the module name that was looked up.
	Name string
	// Version is the demanded version; absent when the name was unpinned.
	Version version.Version
	// RequiredBy is the module whose requirement triggered the lookup, if any.
	RequiredBy *label.ModuleID
	// Platform is true when the name sits in a reserved platform namespace.
	Platform bool
}

func (e *NotFoundError) Error() string {
	var sb strings.Builder
	if e.Platform {
		sb.WriteString("platform ")
	}
	sb.WriteString("module ")
	sb.WriteString(e.Name)
	if !e.Version.IsAbsent() {
		sb.WriteByte('@')
		sb.WriteString(e.Version.String())
	}
	sb.WriteString(" not found")
	if e.RequiredBy != nil {
		sb.WriteString(" (required by ")
		sb.WriteString(e.RequiredBy.String())
		sb.WriteByte(')')
	}
	return sb.String()
}

func (e *NotFoundError) Unwrap() error { return ErrModuleNotFound }

// AmbiguousVersionError is returned when an unpinned name has several candidates.
type AmbiguousVersionError struct {
	Name string
	// Candidates lists every available version, ascending.
	Candidates []version.Version
}

func (e *AmbiguousVersionError) Error() string {
	vs := make([]string, len(e.Candidates))
	for i, v := range e.Candidates {
		vs[i] = label.ModuleID{Name: e.Name, Version: v}.String()
	}
	return fmt.Sprintf("module %s has %d candidate versions and none was pinned: %s",
		e.Name, len(e.Candidates), strings.Join(vs, ", "))
}

func (e *AmbiguousVersionError) Unwrap() error { return ErrAmbiguousVersion }

// DependencyCycleError is returned when a requires chain loops back on itself.
type DependencyCycleError struct {
	// Cycle contains the dependency path that forms the cycle, starting and
	// ending with the same module.
	// Format: ["a@1.0", "b@1.0", "a@1.0"]
	Cycle []string
}

func (e *DependencyCycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	return fmt.Sprintf("dependency cycle detected: %s", formatCyclePath(e.Cycle))
}

func (e *DependencyCycleError) Unwrap() error { return ErrCyclicDependency }

// formatCyclePath formats a cycle path for display.
// Example: ["A@1.0", "B@1.0", "A@1.0"] -> "A@1.0 -> B@1.0 -> A@1.0"
func formatCyclePath(cycle []string) string {
	return strings.Join(cycle, " -> ")
}

// DuplicateRequiresError is returned when one descriptor requires a name twice.
type DuplicateRequiresError struct {
	Module      string
	Requirement string
}

func (e *DuplicateRequiresError) Error() string {
	return fmt.Sprintf("module %s requires %s more than once", e.Module, e.Requirement)
}

func (e *DuplicateRequiresError) Unwrap() error { return ErrDuplicateRequires }

// DuplicateExportError is returned when one descriptor exports a package twice.
type DuplicateExportError struct {
	Module  string
	Package string
}

func (e *DuplicateExportError) Error() string {
	return fmt.Sprintf("module %s exports package %s more than once", e.Module, e.Package)
}

func (e *DuplicateExportError) Unwrap() error { return ErrDuplicateExport }

// MissingCompiledVersionError is returned in pinned mode when a hybrid
// requirement does not carry a version.
type MissingCompiledVersionError struct {
	Module      label.ModuleID
	Requirement string
}

func (e *MissingCompiledVersionError) Error() string {
	return fmt.Sprintf("module %s requires %s without a compiled version", e.Module, e.Requirement)
}

func (e *MissingCompiledVersionError) Unwrap() error { return ErrMissingCompiledVersion }

// ExportCollisionError is returned when two distinct readable modules supply
// the same package to one module.
type ExportCollisionError struct {
	// Module is the reading module whose index could not be built.
	Module label.ModuleID
	// Package is the contested package name.
	Package string
	// Owners names both suppliers, in insertion order.
	Owners [2]string
}

func (e *ExportCollisionError) Error() string {
	return fmt.Sprintf("module %s reads package %s from both %s and %s",
		e.Module, e.Package, e.Owners[0], e.Owners[1])
}

func (e *ExportCollisionError) Unwrap() error { return ErrExportCollision }

// CatalogError wraps a descriptor source failure that is not a plain miss.
type CatalogError struct {
	// Source identifies the catalog (path or URL).
	Source string
	// Name is the module being looked up.
	Name string
	// StatusCode is set for HTTP catalogs.
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: module %s: status %d", e.Source, e.Name, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: module %s: %v", e.Source, e.Name, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }
