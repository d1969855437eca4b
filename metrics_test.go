package hybridmod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/albertocavalcante/go-hybridmod/version"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestResolver(t, appCatalog(), WithMetrics(reg))
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "app", version.Parse("1.0")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(ctx, "missing", version.Absent()); err == nil {
		t.Fatal("Resolve(missing) succeeded")
	}

	if got := testutil.ToFloat64(r.metrics.resolutions.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.metrics.resolutions.WithLabelValues("not_found")); got != 1 {
		t.Errorf("not_found resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.metrics.modulesResolved); got != 4 {
		t.Errorf("modules resolved = %v, want 4", got)
	}
	if n := testutil.CollectAndCount(reg, "hybridmod_resolution_duration_seconds"); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(r.metrics.platformLookups.WithLabelValues("miss")); got == 0 {
		t.Error("no platform lookup misses recorded")
	}

	// A second resolver on the same registry shares the collectors.
	r2 := newTestResolver(t, appCatalog(), WithMetrics(reg))
	if _, err := r2.Resolve(ctx, "app", version.Parse("1.0")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(r.metrics.resolutions.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok resolutions after second resolver = %v, want 2", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *resolverMetrics
	m.observeResolution(nil, 0)
	m.moduleCommitted(3)
	m.platformLookup("hit")
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&NotFoundError{Name: "x"}, "not_found"},
		{fmt.Errorf("wrapped: %w", &AmbiguousVersionError{Name: "x"}), "ambiguous_version"},
		{&DependencyCycleError{}, "cyclic_dependency"},
		{&DuplicateRequiresError{}, "duplicate_requires"},
		{&DuplicateExportError{}, "duplicate_export"},
		{&MissingCompiledVersionError{}, "missing_compiled_version"},
		{&ExportCollisionError{}, "export_collision"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := outcome(tt.err); got != tt.want {
				t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newTestResolver(t, appCatalog(), WithLogger(logger))

	if _, err := r.Resolve(context.Background(), "app", version.Parse("1.0")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(context.Background(), "ghost", version.Absent()); err == nil {
		t.Fatal("Resolve(ghost) succeeded")
	}

	out := buf.String()
	for _, want := range []string{
		"resolution committed",
		"root=app@1.0",
		"platform module resolved",
		"resolution failed",
		"outcome=not_found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
