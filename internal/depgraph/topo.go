package depgraph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// topoSort wraps topo.Sort the way internal/batch/batch.go's cycle-breaking
// pass does in the teacher: a topo.Unorderable error names the cyclic
// components without the caller needing to implement its own cycle
// detection.
func topoSort(g graph.Directed) ([]graph.Node, error) {
	return topo.Sort(g)
}
