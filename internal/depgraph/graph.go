// Package depgraph implements the Dependency Graph (spec §4.D): a directed
// graph over workspace packages, forward edge pkg -> dep meaning "pkg
// depends on dep". It exposes one operation, ReverseClosure, which answers
// "given a dirty set, which packages transitively depend on it".
package depgraph

import (
	"sort"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/cargosave/cargo-save/internal/workspace"
)

type pkgNode struct {
	id   int64
	name string
}

func (n *pkgNode) ID() int64 { return n.id }

// Graph is a transient view over workspace package names only, built once
// per invocation and discarded after.
type Graph struct {
	g      *simple.DirectedGraph
	byName map[string]*pkgNode
}

// Build constructs forward edges pkg -> dep from the workspace's declared
// intra-workspace dependencies, in a single pass.
func Build(pkgs []workspace.Package) *Graph {
	g := simple.NewDirectedGraph()
	byName := make(map[string]*pkgNode, len(pkgs))

	var id int64
	for _, p := range pkgs {
		n := &pkgNode{id: id, name: p.Name}
		id++
		byName[p.Name] = n
		g.AddNode(n)
	}

	for _, p := range pkgs {
		from, ok := byName[p.Name]
		if !ok {
			continue
		}
		for _, dep := range p.Deps {
			to, ok := byName[dep]
			if !ok || to == from {
				continue // external or self-edge, not represented
			}
			if g.HasEdgeFromTo(from.ID(), to.ID()) {
				continue
			}
			g.SetEdge(g.NewEdge(from, to))
		}
	}

	return &Graph{g: g, byName: byName}
}

// ReverseClosure returns seed ∪ {nodes that transitively depend on any
// member of seed}, i.e. the transitive reverse-reachable set (spec §4.D).
// Unknown names in seed are passed through unchanged (they may be packages
// the caller already knows about from another source).
//
// The traversal is defensively bounded against cycles: a visited set
// ensures termination even if the external builder's no-cycles invariant is
// ever violated (spec §9), it does not rely on the graph actually being a
// DAG.
func (gr *Graph) ReverseClosure(seed []string) []string {
	visited := make(map[int64]bool)
	result := make(map[string]bool)
	queue := make([]int64, 0, len(seed))

	for _, name := range seed {
		result[name] = true
		if n, ok := gr.byName[name]; ok && !visited[n.ID()] {
			visited[n.ID()] = true
			queue = append(queue, n.ID())
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		preds := gr.g.To(id)
		for preds.Next() {
			p := preds.Node()
			pn, ok := p.(*pkgNode)
			if !ok {
				continue
			}
			result[pn.name] = true
			if !visited[pn.ID()] {
				visited[pn.ID()] = true
				queue = append(queue, pn.ID())
			}
		}
	}

	out := make([]string, 0, len(result))
	for name := range result {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dependents returns the direct (non-transitive) set of packages that
// declare name as a workspace dependency.
func (gr *Graph) Dependents(name string) []string {
	n, ok := gr.byName[name]
	if !ok {
		return nil
	}
	var out []string
	preds := gr.g.To(n.ID())
	for preds.Next() {
		if pn, ok := preds.Node().(*pkgNode); ok {
			out = append(out, pn.name)
		}
	}
	sort.Strings(out)
	return out
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)

// AssertAcyclic returns an error if the graph contains a cycle among
// workspace-internal edges. The external builder enforces acyclicity, but
// this lets callers (e.g. `doctor`-style diagnostics) surface a clear error
// instead of silently degrading.
func (gr *Graph) AssertAcyclic() error {
	if _, err := topoSort(gr.g); err != nil {
		return xerrors.Errorf("workspace dependency graph has a cycle: %w", err)
	}
	return nil
}
