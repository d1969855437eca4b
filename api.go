// Package hybridmod resolves named, versioned modules and their declared
// requirements into a fully linked module graph with package-level
// visibility rules.
//
// # Overview
//
// The package provides four main components:
//
//   - DescriptorCatalog: supplies ModuleDescriptors (in memory, from a
//     directory, over HTTP, or from a YAML manifest)
//   - PlatformRegistry: resolves built-in platform modules, memoized and
//     shared across sessions
//   - Resolver: resolves a root module and its requirements, detecting
//     cycles, version ambiguity and export collisions
//   - Module: the resolved result, answering which module owns each
//     package visible to it
//
// The graph subpackage turns resolved modules into a report model with typed
// edges, and the lockfile subpackage snapshots a session to disk.
//
// # Quick Start
//
//	catalog := hybridmod.NewMemoryCatalog(
//	    hybridmod.Describe("app", "1.0").Requires("lib", "2.0", hybridmod.Transitive).Build(),
//	    hybridmod.Describe("lib", "2.0").Exports("lib.api").Build(),
//	)
//	app, err := hybridmod.Resolve(ctx, catalog, "app@1.0")
//	owner, ok := app.OwnerOf("lib.api") // lib@2.0
//
// # Catalogs
//
// OpenCatalog picks a catalog from a location string:
//
//	hybridmod.OpenCatalog("https://modules.example.com") // RemoteCatalog
//	hybridmod.OpenCatalog("file:///srv/modules")        // LocalCatalog
//	hybridmod.OpenCatalog("./modules")                  // LocalCatalog
//	hybridmod.OpenCatalog("catalog.yaml")               // ManifestCatalog
//
// Several locations chain with first-match-wins per module name:
//
//	catalog, err := hybridmod.OpenCatalogs([]string{"./vendor-modules", "https://modules.example.com"})
//
// # Thread Safety
//
// All public types in this package are safe for concurrent use.
package hybridmod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/go-hybridmod/label"
)

// Resolve resolves root ("name" or "name@version") against catalog in a
// fresh session.
func Resolve(ctx context.Context, catalog DescriptorCatalog, root string, opts ...Option) (*Module, error) {
	id, err := label.ParseModuleID(root)
	if err != nil {
		return nil, fmt.Errorf("parse root: %w", err)
	}
	r, err := NewResolver(catalog, opts...)
	if err != nil {
		return nil, err
	}
	return r.ResolveID(ctx, id)
}

// OpenCatalog opens the catalog at location:
//
//   - http:// or https:// URLs open a RemoteCatalog
//   - file:// URLs and directories open a LocalCatalog
//   - .yaml and .yml files open a ManifestCatalog
//
// Only WithLogger is consulted from opts.
func OpenCatalog(location string, opts ...Option) (DescriptorCatalog, error) {
	cfg, err := newResolverConfig(opts...)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		return NewRemoteCatalog(location, nil, cfg.logger), nil

	case isFileURL(location):
		path, err := parseFileURL(location)
		if err != nil {
			return nil, err
		}
		return openLocal(path)

	case hasManifestExt(location):
		return LoadManifest(location)

	default:
		return openLocal(location)
	}
}

// OpenCatalogs opens every location and chains them in order. A single
// location is returned unwrapped.
func OpenCatalogs(locations []string, opts ...Option) (DescriptorCatalog, error) {
	if len(locations) == 1 {
		return OpenCatalog(locations[0], opts...)
	}
	catalogs := make([]DescriptorCatalog, 0, len(locations))
	for _, loc := range locations {
		c, err := OpenCatalog(loc, opts...)
		if err != nil {
			return nil, fmt.Errorf("open catalog %s: %w", loc, err)
		}
		catalogs = append(catalogs, c)
	}
	return NewChainCatalog(catalogs...)
}

func openLocal(path string) (*LocalCatalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local catalog path does not exist: %s", path)
		}
		return nil, fmt.Errorf("cannot access local catalog path %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local catalog path is not a directory: %s", path)
	}
	return NewLocalCatalog(path), nil
}

func hasManifestExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
