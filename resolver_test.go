package hybridmod

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/go-hybridmod/label"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// appCatalog is the catalog most resolver tests start from:
//
//	app@1.0 -> lib@2.0 (transitive), util (unpinned), platform.base
//	lib@2.0 -> core@1.0 (transitive)
func appCatalog() *MemoryCatalog {
	c := NewMemoryCatalog(
		Describe("app", "1.0").
			Requires("lib", "2.0", Transitive).
			Requires("util", "").
			Requires("platform.base", "").
			Exports("app.api").
			Packages("app.internal").
			MainClass("app.Main").
			Build(),
		Describe("lib", "2.0").
			Requires("core", "1.0", Transitive).
			Exports("lib.api").
			ExportsTo("lib.spi", "app").
			Packages("lib.impl").
			Build(),
		Describe("core", "1.0").Exports("core.api").Build(),
		Describe("util", "0.1").Exports("util.api").Build(),
	)
	c.AddPlatform(Describe("platform.base", "").Exports("platform.lang").Build())
	return c
}

func newTestResolver(t *testing.T, c DescriptorCatalog, opts ...Option) *Resolver {
	t.Helper()
	r, err := NewResolver(c, opts...)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func ids(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.String()
	}
	return out
}

func names(mods []*PlatformModule) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name()
	}
	return out
}

func TestResolve_AppScenario(t *testing.T) {
	r := newTestResolver(t, appCatalog())
	app, err := r.Resolve(context.Background(), "app", version.Parse("1.0"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if diff := cmp.Diff([]string{"core@1.0", "lib@2.0", "util@0.1"}, ids(app.DirectReads())); diff != "" {
		t.Errorf("DirectReads mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"core@1.0", "lib@2.0"}, ids(app.TransitiveReads())); diff != "" {
		t.Errorf("TransitiveReads mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"platform.base"}, names(app.PlatformReads())); diff != "" {
		t.Errorf("PlatformReads mismatch (-want +got):\n%s", diff)
	}

	wantVisible := []string{"app.api", "app.internal", "core.api", "lib.api", "lib.spi", "platform.lang", "util.api"}
	if diff := cmp.Diff(wantVisible, app.VisiblePackages()); diff != "" {
		t.Errorf("VisiblePackages mismatch (-want +got):\n%s", diff)
	}

	owners := map[string]string{
		"app.internal":  "app",
		"core.api":      "core",
		"lib.spi":       "lib",
		"platform.lang": "platform.base",
		"util.api":      "util",
	}
	for pkg, want := range owners {
		u, ok := app.OwnerOf(pkg)
		if !ok {
			t.Errorf("OwnerOf(%q) not found", pkg)
			continue
		}
		if u.Name() != want {
			t.Errorf("OwnerOf(%q) = %s, want %s", pkg, u.Name(), want)
		}
	}
	if _, ok := app.OwnerOf("lib.impl"); ok {
		t.Error("OwnerOf(lib.impl) found a non-exported package")
	}

	if app.MainClassHint() != "app.Main" {
		t.Errorf("MainClassHint() = %q", app.MainClassHint())
	}
	if diff := cmp.Diff([]string{"app@1.0", "core@1.0", "lib@2.0", "util@0.1"}, ids(r.Modules())); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ReadsRelation(t *testing.T) {
	r := newTestResolver(t, appCatalog())
	app, err := r.Resolve(context.Background(), "app", version.Parse("1.0"))
	if err != nil {
		t.Fatal(err)
	}
	lib, _ := r.Lookup(label.MustModuleID("lib", "2.0"))
	core, _ := r.Lookup(label.MustModuleID("core", "1.0"))
	util, _ := r.Lookup(label.MustModuleID("util", "0.1"))
	base := app.PlatformReads()[0]

	tests := []struct {
		name   string
		reader *Module
		unit   ReadableUnit
		want   bool
	}{
		{"self", app, app, true},
		{"direct", app, lib, true},
		{"through transitive", app, core, true},
		{"platform", app, base, true},
		{"lib reads core", lib, core, true},
		{"lib does not read util", lib, util, false},
		{"core reads nothing", core, lib, false},
		{"core does not read platform", core, base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reader.Reads(tt.unit); got != tt.want {
				t.Errorf("%s.Reads(%s) = %v, want %v", tt.reader, tt.unit.Name(), got, tt.want)
			}
		})
	}
}

func TestResolve_TransitivePropagation(t *testing.T) {
	tests := []struct {
		name       string
		aRequiresB []Modifier
		bRequiresC []Modifier
		wantD      []string
	}{
		{"chain of transitive", []Modifier{Transitive}, []Modifier{Transitive}, []string{"a@1", "b@1", "c@1"}},
		{"broken at a", nil, []Modifier{Transitive}, []string{"a@1"}},
		{"broken at b", []Modifier{Transitive}, nil, []string{"a@1", "b@1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryCatalog(
				Describe("d", "1").Requires("a", "1").Build(),
				Describe("a", "1").Requires("b", "1", tt.aRequiresB...).Build(),
				Describe("b", "1").Requires("c", "1", tt.bRequiresC...).Build(),
				Describe("c", "1").Build(),
			)
			d, err := Resolve(context.Background(), c, "d@1")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantD, ids(d.DirectReads())); diff != "" {
				t.Errorf("d reads mismatch (-want +got):\n%s", diff)
			}
			if got := d.TransitiveReads(); len(got) != 0 {
				t.Errorf("d passes on %v, want nothing", ids(got))
			}
		})
	}
}

func TestResolve_PlatformTransitive(t *testing.T) {
	c := NewMemoryCatalog(
		Describe("lib", "1").Requires("platform.sql", "", Transitive).Build(),
		Describe("app", "1").Requires("lib", "1").Build(),
	)
	c.AddPlatform(Describe("platform.base", "").Exports("platform.lang").Build())
	c.AddPlatform(Describe("platform.sql", "").Requires("platform.base", "", Transitive).Exports("platform.sql").Build())

	app, err := Resolve(context.Background(), c, "app@1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"platform.base", "platform.sql"}, names(app.PlatformReads())); diff != "" {
		t.Errorf("PlatformReads mismatch (-want +got):\n%s", diff)
	}
	if got := app.TransitivePlatformReads(); len(got) != 0 {
		t.Errorf("TransitivePlatformReads = %v, want none", names(got))
	}
	if u, ok := app.OwnerOf("platform.lang"); !ok || u.Name() != "platform.base" {
		t.Errorf("OwnerOf(platform.lang) = %v, %v", u, ok)
	}
}

func TestResolve_Errors(t *testing.T) {
	app1 := label.MustModuleID("app", "1")

	tests := []struct {
		name    string
		catalog *MemoryCatalog
		root    string
		opts    []Option
		wantIs  error
		wantErr error
	}{
		{
			name:    "root not found",
			catalog: NewMemoryCatalog(),
			root:    "missing",
			wantIs:  ErrModuleNotFound,
			wantErr: &NotFoundError{Name: "missing"},
		},
		{
			name:    "pinned version not found",
			catalog: NewMemoryCatalog(Describe("x", "1").Build()),
			root:    "x@2",
			wantIs:  ErrModuleNotFound,
			wantErr: &NotFoundError{Name: "x", Version: version.Parse("2")},
		},
		{
			name: "requirement not found",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("ghost", "1").Build(),
			),
			root:    "app@1",
			wantIs:  ErrModuleNotFound,
			wantErr: &NotFoundError{Name: "ghost", Version: version.Parse("1"), RequiredBy: &app1},
		},
		{
			name: "ambiguous root",
			catalog: NewMemoryCatalog(
				Describe("util", "0.2").Build(),
				Describe("util", "0.1").Build(),
			),
			root:    "util",
			wantIs:  ErrAmbiguousVersion,
			wantErr: &AmbiguousVersionError{Name: "util", Candidates: []version.Version{version.Parse("0.1"), version.Parse("0.2")}},
		},
		{
			name: "ambiguous requirement",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("util", "").Build(),
				Describe("util", "0.1").Build(),
				Describe("util", "0.2").Build(),
			),
			root:    "app@1",
			wantIs:  ErrAmbiguousVersion,
			wantErr: &AmbiguousVersionError{Name: "util", Candidates: []version.Version{version.Parse("0.1"), version.Parse("0.2")}},
		},
		{
			name: "duplicate requires",
			catalog: NewMemoryCatalog(
				Describe("m", "1").Requires("x", "1").Requires("x", "2").Build(),
			),
			root:    "m@1",
			wantIs:  ErrDuplicateRequires,
			wantErr: &DuplicateRequiresError{Module: "m@1", Requirement: "x"},
		},
		{
			name: "duplicate export",
			catalog: NewMemoryCatalog(
				Describe("m", "1").Exports("p").ExportsTo("p", "friend").Build(),
			),
			root:    "m@1",
			wantIs:  ErrDuplicateExport,
			wantErr: &DuplicateExportError{Module: "m@1", Package: "p"},
		},
		{
			name: "cycle",
			catalog: NewMemoryCatalog(
				Describe("a", "1").Requires("b", "1").Build(),
				Describe("b", "1").Requires("a", "1").Build(),
			),
			root:    "a@1",
			wantIs:  ErrCyclicDependency,
			wantErr: &DependencyCycleError{Cycle: []string{"a@1", "b@1", "a@1"}},
		},
		{
			name: "self cycle",
			catalog: NewMemoryCatalog(
				Describe("a", "1").Requires("a", "1").Build(),
			),
			root:    "a@1",
			wantIs:  ErrCyclicDependency,
			wantErr: &DependencyCycleError{Cycle: []string{"a@1", "a@1"}},
		},
		{
			name: "export collision between dependencies",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("m2", "1").Requires("m1", "1").Build(),
				Describe("m1", "1").Exports("p").Build(),
				Describe("m2", "1").Exports("p").Build(),
			),
			root:    "app@1",
			wantIs:  ErrExportCollision,
			wantErr: &ExportCollisionError{Module: app1, Package: "p", Owners: [2]string{"m1@1", "m2@1"}},
		},
		{
			name: "export collision with own package",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("m1", "1").Packages("p").Build(),
				Describe("m1", "1").Exports("p").Build(),
			),
			root:    "app@1",
			wantIs:  ErrExportCollision,
			wantErr: &ExportCollisionError{Module: app1, Package: "p", Owners: [2]string{"m1@1", "app@1"}},
		},
		{
			name: "export collision with platform package",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("platform.base", "").Requires("lib", "1").Build(),
				Describe("lib", "1").Exports("platform.lang").Build(),
			).AddPlatform(Describe("platform.base", "").Exports("platform.lang").Build()),
			root:    "app@1",
			wantIs:  ErrExportCollision,
			wantErr: &ExportCollisionError{Module: app1, Package: "platform.lang", Owners: [2]string{"platform.base", "lib@1"}},
		},
		{
			name: "missing compiled version in pinned mode",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("util", "").Build(),
				Describe("util", "0.1").Build(),
			),
			root:    "app@1",
			opts:    []Option{WithPinnedRequirements()},
			wantIs:  ErrMissingCompiledVersion,
			wantErr: &MissingCompiledVersionError{Module: app1, Requirement: "util"},
		},
		{
			name: "unknown reserved platform module",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("platform.ghost", "").Build(),
			),
			root:    "app@1",
			wantIs:  ErrModuleNotFound,
			wantErr: &NotFoundError{Name: "platform.ghost", RequiredBy: &app1, Platform: true},
		},
		{
			name: "reserved prefixes disabled",
			catalog: NewMemoryCatalog(
				Describe("app", "1").Requires("platform.ghost", "").Build(),
			),
			root:    "app@1",
			opts:    []Option{WithReservedPrefixes()},
			wantIs:  ErrModuleNotFound,
			wantErr: &NotFoundError{Name: "platform.ghost", RequiredBy: &app1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(context.Background(), tt.catalog, tt.root, tt.opts...)
			if err == nil {
				t.Fatal("Resolve() succeeded, want error")
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if diff := cmp.Diff(tt.wantErr, err); diff != "" {
				t.Errorf("error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_ErrorMessages(t *testing.T) {
	app1 := label.MustModuleID("app", "1")
	tests := []struct {
		err  error
		want string
	}{
		{&NotFoundError{Name: "x"}, "module x not found"},
		{&NotFoundError{Name: "x", Version: version.Parse("2"), RequiredBy: &app1}, "module x@2 not found (required by app@1)"},
		{&NotFoundError{Name: "platform.x", Platform: true}, "platform module platform.x not found"},
		{&DependencyCycleError{Cycle: []string{"a@1", "b@1", "a@1"}}, "dependency cycle detected: a@1 -> b@1 -> a@1"},
		{&ExportCollisionError{Module: app1, Package: "p", Owners: [2]string{"m1@1", "m2@1"}}, "module app@1 reads package p from both m1@1 and m2@1"},
		{&AmbiguousVersionError{Name: "u", Candidates: []version.Version{version.Parse("1"), version.Parse("2")}}, "module u has 2 candidate versions and none was pinned: u@1, u@2"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_StaticRequirementsIgnored(t *testing.T) {
	c := NewMemoryCatalog(
		Describe("app", "1").
			Requires("ghost", "1", Static).
			Requires("platform.ghost", "", Static, Transitive).
			Build(),
	)
	app, err := Resolve(context.Background(), c, "app@1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(app.DirectReads()) != 0 || len(app.PlatformReads()) != 0 {
		t.Errorf("static requirements produced reads: %v %v", ids(app.DirectReads()), names(app.PlatformReads()))
	}
}

func TestResolve_EquivalentVersionSpelling(t *testing.T) {
	c := NewMemoryCatalog(
		Describe("app", "1").Requires("lib", "1.0.0").Build(),
		Describe("lib", "1.0").Build(),
	)
	app, err := Resolve(context.Background(), c, "app@1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"lib@1.0"}, ids(app.DirectReads())); diff != "" {
		t.Errorf("DirectReads mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_FailureCommitsNothing(t *testing.T) {
	c := NewMemoryCatalog(
		Describe("app", "1").Requires("good", "1").Requires("bad", "1").Build(),
		Describe("good", "1").Build(),
		Describe("bad", "1").Requires("missing", "1").Build(),
	)
	r := newTestResolver(t, c)

	if _, err := r.Resolve(context.Background(), "app", version.Parse("1")); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("Resolve(app) error = %v, want not found", err)
	}
	if got := r.Modules(); len(got) != 0 {
		t.Errorf("Modules() after failure = %v, want none", ids(got))
	}
	if _, ok := r.Lookup(label.MustModuleID("good", "1")); ok {
		t.Error("Lookup(good@1) found a module from a failed resolution")
	}

	good, err := r.Resolve(context.Background(), "good", version.Parse("1"))
	if err != nil {
		t.Fatalf("Resolve(good) error = %v", err)
	}
	if got, ok := r.Lookup(good.ID()); !ok || got != good {
		t.Error("Lookup(good@1) did not return the committed module")
	}
}

func TestResolve_SharedModules(t *testing.T) {
	c := NewCountingCatalog(NewMemoryCatalog(
		Describe("a", "1").Requires("shared", "1").Requires("platform.base", "").Build(),
		Describe("b", "1").Requires("shared", "1").Requires("platform.base", "").Build(),
		Describe("shared", "1").Requires("platform.base", "").Exports("shared.api").Build(),
	).AddPlatform(Describe("platform.base", "").Build()))

	r := newTestResolver(t, c)
	ctx := context.Background()
	a, err := r.Resolve(ctx, "a", version.Parse("1"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(ctx, "b", version.Parse("1"))
	if err != nil {
		t.Fatal(err)
	}

	if a.DirectReads()[0] != b.DirectReads()[0] {
		t.Error("a and b read different instances of shared@1")
	}
	if a.PlatformReads()[0] != b.PlatformReads()[0] {
		t.Error("a and b read different instances of platform.base")
	}
	if n := c.CandidateLookups("shared"); n != 1 {
		t.Errorf("FindCandidates(shared) called %d times, want 1", n)
	}
	if n := c.PlatformLookups("platform.base"); n != 1 {
		t.Errorf("FindPlatform(platform.base) called %d times, want 1", n)
	}
	if n := c.PlatformLookups("shared"); n != 1 {
		t.Errorf("FindPlatform(shared) called %d times, want 1", n)
	}

	again, err := r.Resolve(ctx, "a", version.Parse("1"))
	if err != nil {
		t.Fatal(err)
	}
	if again != a {
		t.Error("resolving a@1 twice built two modules")
	}
}

func TestResolve_SharedPlatformRegistry(t *testing.T) {
	c := NewCountingCatalog(NewMemoryCatalog(
		Describe("app", "1").Requires("platform.base", "").Build(),
	).AddPlatform(Describe("platform.base", "").Build()))

	reg, err := NewPlatformRegistry(c)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		r := newTestResolver(t, c, WithPlatformRegistry(reg))
		if _, err := r.Resolve(context.Background(), "app", version.Parse("1")); err != nil {
			t.Fatal(err)
		}
		if r.Platform() != reg {
			t.Fatal("Platform() is not the shared registry")
		}
	}
	if n := c.PlatformLookups("platform.base"); n != 1 {
		t.Errorf("FindPlatform(platform.base) called %d times across sessions, want 1", n)
	}
	if n := c.CandidateLookups("app"); n != 3 {
		t.Errorf("FindCandidates(app) called %d times, want 3 (one per session)", n)
	}
}

func TestResolveAll(t *testing.T) {
	r := newTestResolver(t, appCatalog())
	roots := []label.ModuleID{
		label.MustModuleID("app", "1.0"),
		label.MustModuleID("lib", "2.0"),
		label.MustModuleID("util", ""),
	}
	got, err := r.ResolveAll(context.Background(), roots...)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if diff := cmp.Diff([]string{"app@1.0", "lib@2.0", "util@0.1"}, ids(got)); diff != "" {
		t.Errorf("ResolveAll() mismatch (-want +got):\n%s", diff)
	}
	app := got[0]
	if app.DirectReads()[1] != got[1] {
		t.Error("app reads a different lib@2.0 than ResolveAll returned")
	}

	_, err = r.ResolveAll(context.Background(), label.MustModuleID("app", "1.0"), label.MustModuleID("nope", "1"))
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("ResolveAll() error = %v, want not found", err)
	}
	if !strings.Contains(err.Error(), "resolve nope@1") {
		t.Errorf("ResolveAll() error = %q, want root in message", err)
	}
}

func TestResolver_Concurrent(t *testing.T) {
	r := newTestResolver(t, appCatalog())
	var wg sync.WaitGroup
	results := make([]*Module, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Resolve(context.Background(), "app", version.Parse("1.0"))
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = m
		}()
	}
	wg.Wait()
	for i, m := range results {
		if m != results[0] {
			t.Errorf("result %d is a different module instance", i)
		}
	}
}

func TestResolve_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, appCatalog(), "app@1.0")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestResolve_CatalogError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Resolve(context.Background(), NewFailingCatalog(boom), "app@1")
	if !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want wrapped boom", err)
	}
}

func TestNewResolver_Validation(t *testing.T) {
	if _, err := NewResolver(nil); err == nil {
		t.Error("NewResolver(nil) succeeded")
	}
	if _, err := NewResolver(NewMemoryCatalog(), WithReservedPrefixes(" ")); err == nil {
		t.Error("blank reserved prefix accepted")
	}
	reg, _ := NewPlatformRegistry(NewMemoryCatalog())
	if _, err := NewResolver(NewMemoryCatalog(), WithPlatformRegistry(reg), WithReservedPrefixes("x.")); err == nil {
		t.Error("reserved prefixes accepted alongside a shared registry")
	}
	if _, err := NewResolver(NewMemoryCatalog(), WithMetrics(nil)); err == nil {
		t.Error("nil metrics registerer accepted")
	}
	if _, err := Resolve(context.Background(), NewMemoryCatalog(), "a@b@c"); err == nil {
		t.Error("malformed root accepted")
	}
}
