package hybridmod

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve_Convenience(t *testing.T) {
	app, err := Resolve(context.Background(), appCatalog(), "app@1.0")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if app.String() != "app@1.0" {
		t.Errorf("Resolve() = %s, want app@1.0", app)
	}

	util, err := Resolve(context.Background(), appCatalog(), "util")
	if err != nil {
		t.Fatalf("Resolve(util) error = %v", err)
	}
	if util.String() != "util@0.1" {
		t.Errorf("Resolve(util) = %s, want util@0.1", util)
	}
}

func TestOpenCatalog(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "modules/lib/1.0", `module(name = "lib", version = "1.0")`)
	manifest := filepath.Join(dir, "catalog.yml")
	if err := os.WriteFile(manifest, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		location string
		wantType string
		wantErr  string
	}{
		{"https", "https://modules.example.com", "*hybridmod.RemoteCatalog", ""},
		{"http", "http://localhost:8080/", "*hybridmod.RemoteCatalog", ""},
		{"directory", dir, "*hybridmod.LocalCatalog", ""},
		{"file url", "file://" + filepath.ToSlash(dir), "*hybridmod.LocalCatalog", ""},
		{"manifest", manifest, "*hybridmod.ManifestCatalog", ""},
		{"missing directory", filepath.Join(dir, "nope"), "", "does not exist"},
		{"regular file", file, "", "not a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := OpenCatalog(tt.location)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("OpenCatalog() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenCatalog() error = %v", err)
			}
			if got := typeName(c); got != tt.wantType {
				t.Errorf("OpenCatalog() type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(c DescriptorCatalog) string {
	switch c.(type) {
	case *RemoteCatalog:
		return "*hybridmod.RemoteCatalog"
	case *LocalCatalog:
		return "*hybridmod.LocalCatalog"
	case *ManifestCatalog:
		return "*hybridmod.ManifestCatalog"
	case *ChainCatalog:
		return "*hybridmod.ChainCatalog"
	default:
		return "unknown"
	}
}

func TestOpenCatalogs(t *testing.T) {
	vendored := t.TempDir()
	writeDescriptor(t, vendored, "modules/lib/1.0", `module(name = "lib", version = "1.0")
exports(package = "lib.vendored")`)

	manifest := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(manifest, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	single, err := OpenCatalogs([]string{vendored})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := single.(*LocalCatalog); !ok {
		t.Errorf("OpenCatalogs(one) = %T, want unwrapped *LocalCatalog", single)
	}

	c, err := OpenCatalogs([]string{vendored, manifest})
	if err != nil {
		t.Fatalf("OpenCatalogs() error = %v", err)
	}
	if _, ok := c.(*ChainCatalog); !ok {
		t.Fatalf("OpenCatalogs() = %T, want *ChainCatalog", c)
	}

	libs, err := c.FindCandidates(context.Background(), "lib")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1.0"}, versionsOf(libs)); diff != "" {
		t.Errorf("lib comes from the first catalog (-want +got):\n%s", diff)
	}
	if util, _ := c.FindCandidates(context.Background(), "util"); len(util) != 1 {
		t.Errorf("util candidates = %d, want 1 from the manifest", len(util))
	}

	if _, err := OpenCatalogs([]string{vendored, filepath.Join(vendored, "nope")}); err == nil {
		t.Error("OpenCatalogs() with a missing location succeeded")
	}
}

func TestOpenCatalog_UsesLogger(t *testing.T) {
	c, err := OpenCatalog("https://modules.example.com", WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	rc := c.(*RemoteCatalog)
	if rc.client == nil || rc.logger == nil {
		t.Error("RemoteCatalog missing default client or logger")
	}
	if _, ok := rc.client.Transport.(*http.Transport); !ok {
		t.Errorf("default transport = %T", rc.client.Transport)
	}
}
