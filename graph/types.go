package graph

import (
	"fmt"
)

// EdgeType classifies a read edge.
type EdgeType int

const (
	// Direct is a plain requires.
	Direct EdgeType = iota

	// DirectTransitive is a requires carrying the transitive modifier.
	DirectTransitive

	// Implicit is a read inherited through another module's transitive
	// requirement, with no requires entry of its own. Self-edges are
	// implicit too.
	Implicit
)

func (t EdgeType) String() string {
	switch t {
	case Direct:
		return "DIRECT"
	case DirectTransitive:
		return "DIRECT_TRANSITIVE"
	case Implicit:
		return "IMPLICIT"
	default:
		return fmt.Sprintf("EdgeType(%d)", int(t))
	}
}

// MarshalText encodes the edge type by name.
func (t EdgeType) MarshalText() ([]byte, error) {
	switch t {
	case Direct, DirectTransitive, Implicit:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown edge type %d", int(t))
	}
}

// UnmarshalText decodes an edge type name.
func (t *EdgeType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "DIRECT":
		*t = Direct
	case "DIRECT_TRANSITIVE":
		*t = DirectTransitive
	case "IMPLICIT":
		*t = Implicit
	default:
		return fmt.Errorf("unknown edge type %q", b)
	}
	return nil
}

// NodeKind distinguishes hybrid modules from platform modules.
type NodeKind string

const (
	// KindHybrid is a resolved hybrid module, keyed "name@version".
	KindHybrid NodeKind = "hybrid"

	// KindPlatform is a platform module, keyed by bare name.
	KindPlatform NodeKind = "platform"
)

// Node represents a module in the graph.
type Node struct {
	// Key uniquely identifies the node: "name@version" for hybrid modules,
	// the bare name for platform modules.
	Key string `json:"key"`

	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Kind    NodeKind `json:"kind"`

	// Root is true for the modules the graph was built from.
	Root bool `json:"root,omitempty"`

	// Exports lists the node's unqualified exports, sorted. Only set when
	// the graph was built with IncludeExports.
	Exports []string `json:"exports,omitempty"`
}

// Edge is a read edge From -> To.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`

	// VisiblePackages lists the packages of To that From may see, sorted.
	// On a self-edge it lists the module's unexported packages. Only set
	// when the graph was built with IncludeExports.
	VisiblePackages []string `json:"visiblePackages,omitempty"`
}

// IsSelf reports whether the edge is a module's trivial read of itself.
func (e Edge) IsSelf() bool { return e.From == e.To }

// Params controls what Build includes.
type Params struct {
	// IncludeSelf emits each module's implicit self-read edge.
	IncludeSelf bool

	// IncludeExports attaches unqualified exports to nodes and visible
	// packages to edges.
	IncludeExports bool

	// ExcludeUnreadable restricts the graph to what the roots can reach.
	// Otherwise every module of the universe is included.
	ExcludeUnreadable bool

	// ExcludePlatform drops platform nodes and every edge to them.
	ExcludePlatform bool

	// Exclude lists node keys to prune: "name@version" for hybrid modules,
	// the bare name for platform modules. Pruned nodes are not traversed.
	Exclude []string
}

// Graph is a report-only snapshot of resolved modules. Nodes and edges are
// sorted so that building twice from the same input yields identical graphs.
type Graph struct {
	// Roots lists the root node keys, sorted like HybridNodes.
	Roots []string `json:"roots"`

	// HybridNodes are sorted by module ID.
	HybridNodes []*Node `json:"hybridNodes"`

	// PlatformNodes are sorted by name.
	PlatformNodes []*Node `json:"platformNodes"`

	// Edges are sorted by source node, then target node, then type.
	Edges []Edge `json:"edges"`

	nodes map[string]*Node
	out   map[string][]Edge
	in    map[string][]Edge
}

// Stats summarizes a graph.
type Stats struct {
	HybridModules   int
	PlatformModules int
	Edges           map[EdgeType]int
}
