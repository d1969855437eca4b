package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const separatorWidth = 60 // Width of separator lines in text output

// ToJSON outputs the graph as indented JSON.
func (g *Graph) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ToDOT outputs the graph in Graphviz DOT format. Roots are bold, platform
// modules are ellipses, transitive edges are bold and implicit edges dashed.
// Visible packages, when present, label the edges.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer

	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box];\n\n")

	for _, n := range g.HybridNodes {
		label := n.Name
		if n.Version != "" {
			label += "\n" + n.Version
		}
		// %q escapes quotes and renders the newline as DOT's \n line break.
		attrs := fmt.Sprintf("label=%q", label)
		if n.Root {
			attrs += ", style=bold"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key, attrs)
	}
	for _, n := range g.PlatformNodes {
		fmt.Fprintf(&buf, "  %q [shape=ellipse];\n", n.Key)
	}

	buf.WriteString("\n")

	for _, e := range g.Edges {
		var attrs []string
		switch e.Type {
		case DirectTransitive:
			attrs = append(attrs, "style=bold")
		case Implicit:
			attrs = append(attrs, "style=dashed")
		}
		if len(e.VisiblePackages) > 0 {
			attrs = append(attrs, fmt.Sprintf("label=%q", strings.Join(e.VisiblePackages, "\n")))
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ToText outputs a human-readable listing of nodes and their edges.
func (g *Graph) ToText() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Module Graph (roots: %s)\n", strings.Join(g.Roots, ", "))
	buf.WriteString(strings.Repeat("=", separatorWidth) + "\n\n")

	stats := g.Stats()
	fmt.Fprintf(&buf, "Hybrid modules: %d\n", stats.HybridModules)
	fmt.Fprintf(&buf, "Platform modules: %d\n", stats.PlatformModules)
	for _, t := range []EdgeType{Direct, DirectTransitive, Implicit} {
		if n := stats.Edges[t]; n > 0 {
			fmt.Fprintf(&buf, "%s edges: %d\n", t, n)
		}
	}
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		buf.WriteString(n.Key)
		if n.Root {
			buf.WriteString(" (root)")
		}
		if n.Kind == KindPlatform {
			buf.WriteString(" (platform)")
		}
		buf.WriteString("\n")
		if len(n.Exports) > 0 {
			fmt.Fprintf(&buf, "    exports: %s\n", strings.Join(n.Exports, ", "))
		}
		for _, e := range g.EdgesFrom(n.Key) {
			fmt.Fprintf(&buf, "    -> %s [%s]", e.To, e.Type)
			if len(e.VisiblePackages) > 0 {
				fmt.Fprintf(&buf, " %s", strings.Join(e.VisiblePackages, ", "))
			}
			buf.WriteString("\n")
		}
	}
	return buf.String()
}
