package hybridmod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrency = 5

// RemoteCatalog fetches descriptors over HTTP with caching and connection
// pooling. It uses the same layout as LocalCatalog:
//
//	{base}/modules/{name}/metadata.json        {"versions": ["1.0", "2.0"]}
//	{base}/modules/{name}/{version}/MODULE.hybrid
//	{base}/platform/{name}/MODULE.hybrid
//
// A 404 means the name is unknown. Any other non-200 status is a *CatalogError.
type RemoteCatalog struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	candidates sync.Map // map[string][]*ModuleDescriptor keyed by module name
	platform   sync.Map // map[string]*ModuleDescriptor keyed by module name
}

var _ DescriptorCatalog = (*RemoteCatalog)(nil)

// moduleMetadata is the metadata.json document listing a module's versions.
type moduleMetadata struct {
	Versions []string `json:"versions"`
}

// NewRemoteCatalog creates a catalog for baseURL. If client is nil a default
// client with pooled connections and a 15s timeout is used. If logger is nil,
// logging is disabled.
func NewRemoteCatalog(baseURL string, client *http.Client, logger *slog.Logger) *RemoteCatalog {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &RemoteCatalog{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// BaseURL returns the catalog base URL.
func (c *RemoteCatalog) BaseURL() string { return c.baseURL }

// FindCandidates lists the versions in metadata.json and fetches each
// descriptor, at most five at a time.
func (c *RemoteCatalog) FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error) {
	if cached, ok := c.candidates.Load(name); ok {
		return cached.([]*ModuleDescriptor), nil
	}

	data, found, err := c.get(ctx, name, fmt.Sprintf("%s/modules/%s/metadata.json", c.baseURL, name))
	if err != nil || !found {
		return nil, err
	}
	var meta moduleMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &CatalogError{Source: c.baseURL, Name: name, Err: fmt.Errorf("parse metadata.json: %w", err)}
	}

	descs := make([]*ModuleDescriptor, len(meta.Versions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultMaxConcurrency)
	for i, v := range meta.Versions {
		g.Go(func() error {
			url := fmt.Sprintf("%s/modules/%s/%s/%s", c.baseURL, name, v, DescriptorFileName)
			d, err := c.fetchDescriptor(gctx, name, url)
			if err != nil {
				return err
			}
			if d == nil {
				return &CatalogError{Source: url, Name: name, StatusCode: http.StatusNotFound}
			}
			if d.Version.String() != v {
				return &CatalogError{Source: url, Name: name, Err: fmt.Errorf("declares version %q, listed as %q", d.Version, v)}
			}
			descs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByVersion(descs)
	c.logger.Debug("fetched candidates", "module", name, "versions", len(descs))
	actual, _ := c.candidates.LoadOrStore(name, descs)
	return actual.([]*ModuleDescriptor), nil
}

// FindPlatform fetches platform/{name}/MODULE.hybrid, returning nil on 404.
func (c *RemoteCatalog) FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error) {
	if cached, ok := c.platform.Load(name); ok {
		return cached.(*ModuleDescriptor), nil
	}
	d, err := c.fetchDescriptor(ctx, name, fmt.Sprintf("%s/platform/%s/%s", c.baseURL, name, DescriptorFileName))
	if err != nil || d == nil {
		return nil, err
	}
	actual, _ := c.platform.LoadOrStore(name, d)
	return actual.(*ModuleDescriptor), nil
}

func (c *RemoteCatalog) fetchDescriptor(ctx context.Context, name, url string) (*ModuleDescriptor, error) {
	data, found, err := c.get(ctx, name, url)
	if err != nil || !found {
		return nil, err
	}
	d, err := parseDescriptor(url, data)
	if err != nil {
		return nil, &CatalogError{Source: url, Name: name, Err: err}
	}
	if d.Name != name {
		return nil, &CatalogError{Source: url, Name: name, Err: fmt.Errorf("declares module %q", d.Name)}
	}
	return d, nil
}

// get fetches url. found is false on 404.
func (c *RemoteCatalog) get(ctx context.Context, name, url string) (data []byte, found bool, err error) {
	if !isPathSafeName(name) {
		return nil, false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, &CatalogError{Source: url, Name: name, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug("catalog miss", "url", url)
		return nil, false, nil
	default:
		return nil, false, &CatalogError{Source: url, Name: name, StatusCode: resp.StatusCode}
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &CatalogError{Source: url, Name: name, Err: err}
	}
	return data, true, nil
}
