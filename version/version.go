// Package version implements module version parsing and ordering.
//
// A version is one of three kinds:
//
//   - Absent: no version was declared (the empty string).
//   - Invalid: a non-empty string without a leading digit sequence, such as
//     "not-a-version". Parsing never fails; such strings are kept verbatim.
//   - Valid: a dotted decimal release ("1", "1.2", "1.2.3.4") optionally
//     followed by a qualifier ("-rc1", "+build.5", ".final").
//
// Ordering: absent < invalid < valid. Invalid versions compare by raw string.
// Valid versions compare numeric components left to right (missing trailing
// components count as zero), then the qualifier lexicographically.
package version

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Kind classifies a Version.
type Kind uint8

const (
	// KindAbsent means no version was declared.
	KindAbsent Kind = iota
	// KindInvalid means a version string was declared but does not parse.
	KindInvalid
	// KindValid means the version parsed into numeric components.
	KindValid
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindInvalid:
		return "invalid"
	case KindValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Version is an immutable, comparable version value.
//
// Two Versions are == when their raw strings are identical. Compare may
// still report 0 for distinct raw strings ("1.0" and "1.0.0").
type Version struct {
	kind Kind
	raw  string
}

// Absent returns the absent version.
func Absent() Version {
	return Version{}
}

// Parse classifies s. The empty string yields the absent version.
func Parse(s string) Version {
	if s == "" {
		return Version{}
	}
	if _, ok := parseRelease(s); !ok {
		return Version{kind: KindInvalid, raw: s}
	}
	return Version{kind: KindValid, raw: s}
}

// Kind returns the version kind.
func (v Version) Kind() Kind { return v.kind }

// IsAbsent reports whether no version was declared.
func (v Version) IsAbsent() bool { return v.kind == KindAbsent }

// IsValid reports whether the version parsed into numeric components.
func (v Version) IsValid() bool { return v.kind == KindValid }

// String returns the raw version string ("" when absent).
func (v Version) String() string { return v.raw }

// Components returns the numeric release components of a valid version.
func (v Version) Components() []uint64 {
	if v.kind != KindValid {
		return nil
	}
	r, _ := parseRelease(v.raw)
	return r.components
}

// Qualifier returns the pre-release/build suffix of a valid version,
// without its leading separator.
func (v Version) Qualifier() string {
	if v.kind != KindValid {
		return ""
	}
	r, _ := parseRelease(v.raw)
	return r.qualifier
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	return Compare(v, other)
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0
}

type release struct {
	components []uint64
	qualifier  string
}

// parseRelease splits s into its leading dotted numeric run and the
// qualifier that follows. ok is false when s has no leading digit.
func parseRelease(s string) (release, bool) {
	var r release
	rest := s
	for {
		n := leadingDigits(rest)
		if n == 0 {
			break
		}
		num, err := strconv.ParseUint(rest[:n], 10, 64)
		if err != nil {
			// Overflowing components are not structured versions.
			return release{}, false
		}
		r.components = append(r.components, num)
		rest = rest[n:]
		if len(rest) < 2 || rest[0] != '.' || leadingDigits(rest[1:]) == 0 {
			break
		}
		rest = rest[1:]
	}
	if len(r.components) == 0 {
		return release{}, false
	}
	r.qualifier = strings.TrimLeft(rest, ".-+_")
	return r, true
}

func leadingDigits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// Compare orders two versions: absent < invalid < valid.
func Compare(a, b Version) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindAbsent:
		return 0
	case KindInvalid:
		return strings.Compare(a.raw, b.raw)
	}

	ra, _ := parseRelease(a.raw)
	rb, _ := parseRelease(b.raw)
	if c := compareComponents(ra.components, rb.components); c != 0 {
		return c
	}
	return strings.Compare(ra.qualifier, rb.qualifier)
}

// compareComponents compares left to right, padding the shorter list with zeros.
func compareComponents(a, b []uint64) int {
	for i := range max(len(a), len(b)) {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// Sort sorts versions in ascending order. Ties keep raw-string order so the
// result is deterministic.
func Sort(versions []Version) {
	slices.SortFunc(versions, func(a, b Version) int {
		if c := Compare(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.raw, b.raw)
	})
}

// Max returns the higher of two versions.
func Max(a, b Version) Version {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}
