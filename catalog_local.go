package hybridmod

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// LocalCatalog reads descriptors from a directory tree. This enables
// offline workflows where descriptors are vendored next to the code.
//
// The directory layout is:
//
//	{root}/modules/{name}/{version}/MODULE.hybrid
//	{root}/platform/{name}/MODULE.hybrid
//
// A descriptor's declared name and version must match its directory.
type LocalCatalog struct {
	rootPath string
	cache    sync.Map // map[string]*ModuleDescriptor keyed by file path
}

var _ DescriptorCatalog = (*LocalCatalog)(nil)

// NewLocalCatalog creates a catalog over a local directory. The path can use
// either forward slashes or the native OS separator.
func NewLocalCatalog(rootPath string) *LocalCatalog {
	return &LocalCatalog{rootPath: filepath.Clean(rootPath)}
}

// Root returns the catalog directory.
func (c *LocalCatalog) Root() string { return c.rootPath }

// BaseURL returns the file:// URL for this catalog.
func (c *LocalCatalog) BaseURL() string {
	urlPath := filepath.ToSlash(c.rootPath)
	if runtime.GOOS == "windows" && len(urlPath) >= 2 && isWindowsDriveLetter(urlPath[0]) && urlPath[1] == ':' {
		urlPath = "/" + urlPath
	}
	return "file://" + urlPath
}

// FindCandidates parses every version directory under modules/{name}.
func (c *LocalCatalog) FindCandidates(ctx context.Context, name string) ([]*ModuleDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isPathSafeName(name) {
		return nil, nil
	}

	dir := filepath.Join(c.rootPath, "modules", name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &CatalogError{Source: pathToFileURL(dir), Name: name, Err: err}
	}

	var out []*ModuleDescriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), DescriptorFileName)
		d, err := c.load(path, name)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		if d.Version.String() != e.Name() {
			return nil, &CatalogError{
				Source: pathToFileURL(path),
				Name:   name,
				Err:    fmt.Errorf("declares version %q in directory %q", d.Version, e.Name()),
			}
		}
		out = append(out, d)
	}
	sortByVersion(out)
	return out, nil
}

// FindPlatform parses platform/{name}/MODULE.hybrid if it exists.
func (c *LocalCatalog) FindPlatform(ctx context.Context, name string) (*ModuleDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isPathSafeName(name) {
		return nil, nil
	}
	return c.load(filepath.Join(c.rootPath, "platform", name, DescriptorFileName), name)
}

// load parses the descriptor at path, returning nil when the file does not exist.
func (c *LocalCatalog) load(path, name string) (*ModuleDescriptor, error) {
	if cached, ok := c.cache.Load(path); ok {
		return cached.(*ModuleDescriptor), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &CatalogError{Source: pathToFileURL(path), Name: name, Err: err}
	}

	d, err := parseDescriptor(path, data)
	if err != nil {
		return nil, &CatalogError{Source: pathToFileURL(path), Name: name, Err: err}
	}
	if d.Name != name {
		return nil, &CatalogError{
			Source: pathToFileURL(path),
			Name:   name,
			Err:    fmt.Errorf("declares module %q", d.Name),
		}
	}

	actual, _ := c.cache.LoadOrStore(path, d)
	return actual.(*ModuleDescriptor), nil
}

// isPathSafeName reports whether a module name can be used as a single
// directory component.
func isPathSafeName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// parseFileURL extracts the path from a file:// URL.
// Handles both Unix (file:///path) and Windows (file:///C:/path) formats.
//
// Examples:
//
//	Unix:    file:///tmp/catalog      -> /tmp/catalog
//	Windows: file:///C:/Users/catalog -> C:/Users/catalog
func parseFileURL(url string) (string, error) {
	if !isFileURL(url) {
		return "", fmt.Errorf("not a file:// URL: %s", url)
	}

	path := strings.TrimPrefix(url, "file://")
	if len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
		path = path[1:]
	}
	return filepath.Clean(path), nil
}

func isFileURL(url string) bool {
	return strings.HasPrefix(url, "file://")
}

// isWindowsDriveLetter returns true if c is a valid Windows drive letter (A-Z, a-z).
func isWindowsDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// pathToFileURL converts a native file path to a file:// URL.
func pathToFileURL(path string) string {
	urlPath := filepath.ToSlash(path)
	if len(urlPath) >= 2 && isWindowsDriveLetter(urlPath[0]) && urlPath[1] == ':' {
		urlPath = "/" + urlPath
	}
	return "file://" + urlPath
}
