package hybridmod

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/albertocavalcante/go-hybridmod/version"
)

// DescriptorCatalog supplies module descriptors to the resolver.
//
// FindCandidates returns every available version of a hybrid module name.
// An unknown name yields an empty slice, not an error. Results must be
// stable and free of duplicate versions across calls within one session.
//
// FindPlatform returns the descriptor of a built-in platform module, or
// (nil, nil) when name is not a platform module.
type DescriptorCatalog interface {
	FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error)
	FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error)
}

// Compile-time interface compliance checks
var (
	_ DescriptorCatalog = (*MemoryCatalog)(nil)
	_ DescriptorCatalog = (*ChainCatalog)(nil)
)

// MemoryCatalog is a thread-safe in-memory DescriptorCatalog.
type MemoryCatalog struct {
	mu       sync.RWMutex
	modules  map[string][]*ModuleDescriptor
	platform map[string]*ModuleDescriptor
}

// NewMemoryCatalog creates a catalog holding the given hybrid descriptors.
func NewMemoryCatalog(descs ...*ModuleDescriptor) *MemoryCatalog {
	c := &MemoryCatalog{
		modules:  make(map[string][]*ModuleDescriptor),
		platform: make(map[string]*ModuleDescriptor),
	}
	for _, d := range descs {
		c.Add(d)
	}
	return c
}

// Add registers a hybrid descriptor. A descriptor with the same name and
// version replaces the earlier one.
func (c *MemoryCatalog) Add(d *ModuleDescriptor) *MemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	d = d.Clone()
	list := c.modules[d.Name]
	idx := slices.IndexFunc(list, func(x *ModuleDescriptor) bool { return x.Version == d.Version })
	if idx >= 0 {
		list[idx] = d
	} else {
		list = append(list, d)
	}
	sortByVersion(list)
	c.modules[d.Name] = list
	return c
}

// AddPlatform registers a platform module descriptor.
func (c *MemoryCatalog) AddPlatform(d *ModuleDescriptor) *MemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.platform[d.Name] = d.Clone()
	return c
}

// FindCandidates returns the registered versions of name, ascending.
func (c *MemoryCatalog) FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.modules[name]), nil
}

// FindPlatform returns the platform descriptor for name, if registered.
func (c *MemoryCatalog) FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.platform[name], nil
}

// Names returns every hybrid module name in the catalog, sorted.
func (c *MemoryCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.modules))
	for n := range c.modules {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func sortByVersion(list []*ModuleDescriptor) {
	slices.SortFunc(list, func(a, b *ModuleDescriptor) int {
		if c := version.Compare(a.Version, b.Version); c != 0 {
			return c
		}
		return strings.Compare(a.Version.String(), b.Version.String())
	})
}

// ChainCatalog looks descriptors up in an ordered list of catalogs.
//
// Behavior:
//  1. Names are looked up in catalog order (first to last).
//  2. The first catalog returning any candidate for a name provides ALL
//     versions of that name for the rest of the session.
//  3. A catalog error is remembered and returned only if no later catalog
//     knows the name.
//
// Platform lookups follow the same order; the first non-nil descriptor wins.
type ChainCatalog struct {
	catalogs []DescriptorCatalog

	// owner tracks which catalog provides each module (by module name)
	owner   map[string]int
	ownerMu sync.RWMutex
}

// NewChainCatalog creates a chain over catalogs.
func NewChainCatalog(catalogs ...DescriptorCatalog) (*ChainCatalog, error) {
	if len(catalogs) == 0 {
		return nil, errors.New("no catalogs provided")
	}
	return &ChainCatalog{
		catalogs: slices.Clone(catalogs),
		owner:    make(map[string]int),
	}, nil
}

// FindCandidates returns the candidates from the first catalog that knows name.
func (c *ChainCatalog) FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error) {
	c.ownerMu.RLock()
	idx, known := c.owner[name]
	c.ownerMu.RUnlock()
	if known {
		return c.catalogs[idx].FindCandidates(ctx, name)
	}

	var firstErr error
	for i, cat := range c.catalogs {
		descs, err := cat.FindCandidates(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("catalog %d: %w", i, err)
			}
			continue
		}
		if len(descs) == 0 {
			continue
		}
		c.ownerMu.Lock()
		c.owner[name] = i
		c.ownerMu.Unlock()
		return descs, nil
	}
	return nil, firstErr
}

// FindPlatform returns the first platform descriptor found for name.
func (c *ChainCatalog) FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error) {
	var firstErr error
	for i, cat := range c.catalogs {
		d, err := cat.FindPlatform(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("catalog %d: %w", i, err)
			}
			continue
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, firstErr
}
