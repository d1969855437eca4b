// Package graph provides a report model of resolved hybrid modules: nodes,
// typed read edges and per-edge visible packages.
//
// # Building a Graph
//
// A Graph is built from resolved root modules. The resolver doubles as the
// universe of everything else in the session:
//
//	r, _ := hybridmod.NewResolver(catalog)
//	app, _ := r.Resolve(ctx, "app", version.Parse("1.0"))
//	g := graph.Build(r, []*hybridmod.Module{app}, graph.Params{
//	    IncludeExports:    true,
//	    ExcludeUnreadable: true,
//	})
//
// Edges are DIRECT for a plain requires, DIRECT_TRANSITIVE for a requires
// with the transitive modifier, and IMPLICIT for reads inherited from a
// dependency's transitive requirements (and for self-edges).
//
// # Querying the Graph
//
//	edges := g.EdgesFrom("app@1.0")
//	readers := g.Readers("lib@2.0")
//	path := g.Path("app@1.0", "platform.base")
//
// # Output Formats
//
//	jsonBytes, _ := g.ToJSON()
//	dotString := g.ToDOT()
//	textString := g.ToText()
//
// Node and edge order is deterministic, so the output of two builds over the
// same session is byte-identical.
package graph
