package hybridmod

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultReservedPrefixes are the name prefixes treated as the platform
// namespace when no WithReservedPrefixes option is given.
var DefaultReservedPrefixes = []string{"platform."}

// Option configures resolution behavior.
type Option func(*resolverConfig) error

// resolverConfig holds all resolution configuration.
type resolverConfig struct {
	reservedPrefixes   []string
	reservedPrefixSet  bool
	pinnedRequirements bool
	platform           *PlatformRegistry
	registerer         prometheus.Registerer

	// logger is the structured logger for debug/info output.
	// If nil, logging is disabled (silent mode).
	logger *slog.Logger
}

// WithLogger sets a structured logger for resolution diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "hybridmod")
//	r, _ := hybridmod.NewResolver(catalog, hybridmod.WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *resolverConfig) error {
		c.logger = l
		return nil
	}
}

// WithMetrics registers resolver metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *resolverConfig) error {
		if reg == nil {
			return errors.New("metrics registerer is nil")
		}
		c.registerer = reg
		return nil
	}
}

// WithReservedPrefixes replaces the platform namespace prefixes. An unknown
// module whose name starts with one of these fails with ErrModuleNotFound
// instead of being tried as a hybrid module. Passing no prefixes disables
// the check.
func WithReservedPrefixes(prefixes ...string) Option {
	return func(c *resolverConfig) error {
		c.reservedPrefixes = append([]string(nil), prefixes...)
		c.reservedPrefixSet = true
		return nil
	}
}

// WithPinnedRequirements makes a hybrid requirement without a compiled
// version fail with ErrMissingCompiledVersion. By default such a
// requirement is resolved like an unpinned root: exactly one candidate
// must exist.
func WithPinnedRequirements() Option {
	return func(c *resolverConfig) error {
		c.pinnedRequirements = true
		return nil
	}
}

// WithPlatformRegistry shares an existing platform registry, so platform
// modules resolved by one session are reused by the next.
func WithPlatformRegistry(p *PlatformRegistry) Option {
	return func(c *resolverConfig) error {
		c.platform = p
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *resolverConfig) validate() error {
	for _, p := range c.reservedPrefixes {
		if strings.TrimSpace(p) == "" {
			return errors.New("reserved prefix must not be empty")
		}
	}
	if c.platform != nil && c.reservedPrefixSet {
		return errors.New("reserved prefixes are owned by the shared platform registry")
	}
	return nil
}

// prefixes returns the effective reserved prefixes.
func (c *resolverConfig) prefixes() []string {
	if c.reservedPrefixSet {
		return c.reservedPrefixes
	}
	return DefaultReservedPrefixes
}

// log returns the configured logger, or a no-op logger if none was set.
// This allows internal code to call logging methods without nil checks.
func (c *resolverConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(discardHandler{})
}

// discardHandler is a slog.Handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// newResolverConfig creates a new resolver configuration by applying
// the given options and validating the result.
func newResolverConfig(opts ...Option) (*resolverConfig, error) {
	c := &resolverConfig{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}
