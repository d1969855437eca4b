package hybridmod

import (
	"context"
	"errors"
	"sync"
)

// Compile-time interface compliance checks
var (
	_ DescriptorCatalog = (*CountingCatalog)(nil)
	_ DescriptorCatalog = (*FailingCatalog)(nil)
)

// CountingCatalog wraps a catalog and counts lookups per module name.
// Useful for asserting memoization in tests.
type CountingCatalog struct {
	DescriptorCatalog

	mu        sync.Mutex
	candidate map[string]int
	platform  map[string]int
}

// NewCountingCatalog wraps c.
func NewCountingCatalog(c DescriptorCatalog) *CountingCatalog {
	return &CountingCatalog{
		DescriptorCatalog: c,
		candidate:         make(map[string]int),
		platform:          make(map[string]int),
	}
}

// FindCandidates records the lookup and delegates.
func (c *CountingCatalog) FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error) {
	c.mu.Lock()
	c.candidate[name]++
	c.mu.Unlock()
	return c.DescriptorCatalog.FindCandidates(ctx, name)
}

// FindPlatform records the lookup and delegates.
func (c *CountingCatalog) FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error) {
	c.mu.Lock()
	c.platform[name]++
	c.mu.Unlock()
	return c.DescriptorCatalog.FindPlatform(ctx, name)
}

// CandidateLookups returns how often FindCandidates was called for name.
func (c *CountingCatalog) CandidateLookups(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidate[name]
}

// PlatformLookups returns how often FindPlatform was called for name.
func (c *CountingCatalog) PlatformLookups(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.platform[name]
}

// FailingCatalog is a catalog that always returns errors.
// Useful for testing error handling paths.
type FailingCatalog struct {
	Err error
}

// NewFailingCatalog creates a catalog that fails with err.
func NewFailingCatalog(err error) *FailingCatalog {
	if err == nil {
		err = errors.New("catalog lookup failed")
	}
	return &FailingCatalog{Err: err}
}

// FindCandidates always returns an error.
func (c *FailingCatalog) FindCandidates(context.Context, string) ([]*ModuleDescriptor, error) {
	return nil, c.Err
}

// FindPlatform always returns an error.
func (c *FailingCatalog) FindPlatform(context.Context, string) (*ModuleDescriptor, error) {
	return nil, c.Err
}
