package graph

// index builds the lookup tables used by the query methods.
func (g *Graph) index() {
	g.nodes = make(map[string]*Node, len(g.HybridNodes)+len(g.PlatformNodes))
	for _, n := range g.HybridNodes {
		g.nodes[n.Key] = n
	}
	for _, n := range g.PlatformNodes {
		g.nodes[n.Key] = n
	}
	g.out = make(map[string][]Edge)
	g.in = make(map[string][]Edge)
	for _, e := range g.Edges {
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}
}

// Node returns the node for key, if present.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Contains returns true if the graph contains a node with the given key.
func (g *Graph) Contains(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// Nodes returns hybrid nodes followed by platform nodes.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.HybridNodes)+len(g.PlatformNodes))
	out = append(out, g.HybridNodes...)
	return append(out, g.PlatformNodes...)
}

// EdgesFrom returns the edges leaving key, in graph order.
func (g *Graph) EdgesFrom(key string) []Edge {
	return g.out[key]
}

// Readers returns the edges entering key, in graph order.
func (g *Graph) Readers(key string) []Edge {
	return g.in[key]
}

// Path finds the shortest read path from one node to another.
// Returns nil if no path exists.
func (g *Graph) Path(from, to string) []string {
	if !g.Contains(from) || !g.Contains(to) {
		return nil
	}
	if from == to {
		return []string{from}
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range g.out[current] {
			if _, seen := prev[e.To]; seen {
				continue
			}
			prev[e.To] = current
			if e.To == to {
				return unwind(prev, from, to)
			}
			queue = append(queue, e.To)
		}
	}
	return nil
}

func unwind(prev map[string]string, from, to string) []string {
	var path []string
	for at := to; at != from; at = prev[at] {
		path = append(path, at)
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Stats returns node and edge counts.
func (g *Graph) Stats() Stats {
	s := Stats{
		HybridModules:   len(g.HybridNodes),
		PlatformModules: len(g.PlatformNodes),
		Edges:           make(map[EdgeType]int),
	}
	for _, e := range g.Edges {
		s.Edges[e.Type]++
	}
	return s
}
