package routingalgorithm_test

import (
	"testing"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/routingalgorithm"

	"github.com/stretchr/testify/assert"
)

type testGraph struct {
	out   map[datastructure.NodeID][]datastructure.Edge
	edges map[datastructure.EdgeID]datastructure.Edge
}

func newTestGraph() *testGraph {
	return &testGraph{
		out:   make(map[datastructure.NodeID][]datastructure.Edge),
		edges: make(map[datastructure.EdgeID]datastructure.Edge),
	}
}

func (g *testGraph) addEdge(id datastructure.EdgeID, from, to datastructure.NodeID, length float64) {
	e := datastructure.Edge{ID: id, From: from, To: to, Length: length}
	g.out[from] = append(g.out[from], e)
	g.edges[id] = e
}

func (g *testGraph) OutgoingEdges(id datastructure.NodeID) []datastructure.Edge {
	return g.out[id]
}

func (g *testGraph) candidate(edgeID datastructure.EdgeID, offset float64) datastructure.Candidate {
	e := g.edges[edgeID]
	return datastructure.Candidate{EdgeID: e.ID, From: e.From, To: e.To, EdgeLength: e.Length, Offset: offset}
}

/*
1 --10--> 2 --20--> 3 --50--> 7
1 <--11-- 2 <--21-- 3
          2 --40--> 5 --50--> 7   (40: 100)
          2 --41--> 6 --42--> 5   (50 + 50)
*/
func buildTestGraph() *testGraph {
	g := newTestGraph()
	g.addEdge(10, 1, 2, 100)
	g.addEdge(11, 2, 1, 100)
	g.addEdge(20, 2, 3, 100)
	g.addEdge(21, 3, 2, 100)
	g.addEdge(41, 2, 6, 50)
	g.addEdge(40, 2, 5, 100)
	g.addEdge(42, 6, 5, 50)
	g.addEdge(50, 5, 7, 80)
	g.addEdge(60, 3, 7, 300)
	return g
}

func TestLocalSearch(t *testing.T) {
	g := buildTestGraph()
	ls := routingalgorithm.NewLocalSearch(g, 1000, 1000)

	t.Run("same edge forward", func(t *testing.T) {
		r := ls.Search(g.candidate(10, 20), g.candidate(10, 70), 0)
		assert.True(t, r.Feasible)
		assert.Equal(t, 50.0, r.Distance)
		assert.Empty(t, r.Nodes)
		assert.Equal(t, []datastructure.EdgeID{10}, r.Edges)
	})

	t.Run("adjacent edge", func(t *testing.T) {
		r := ls.Search(g.candidate(10, 80), g.candidate(20, 30), 0)
		assert.True(t, r.Feasible)
		assert.Equal(t, 50.0, r.Distance)
		assert.Equal(t, []datastructure.NodeID{2}, r.Nodes)
		assert.Equal(t, []datastructure.EdgeID{10, 20}, r.Edges)
	})

	t.Run("same edge backward needs a loop", func(t *testing.T) {
		r := ls.Search(g.candidate(10, 70), g.candidate(10, 20), 0)
		assert.True(t, r.Feasible)
		assert.Equal(t, 150.0, r.Distance)
		assert.Equal(t, []datastructure.NodeID{2, 1}, r.Nodes)
		assert.Equal(t, []datastructure.EdgeID{10, 11, 10}, r.Edges)
	})

	t.Run("equal length prefers fewer nodes", func(t *testing.T) {
		r := ls.Search(g.candidate(10, 100), g.candidate(50, 10), 0)
		assert.True(t, r.Feasible)
		assert.Equal(t, 110.0, r.Distance)
		assert.Equal(t, []datastructure.NodeID{2, 5}, r.Nodes)
		assert.Equal(t, []datastructure.EdgeID{10, 40, 50}, r.Edges)
	})

	t.Run("bound makes route infeasible", func(t *testing.T) {
		r := ls.Search(g.candidate(10, 80), g.candidate(20, 30), 40)
		assert.False(t, r.Feasible)

		r = ls.Search(g.candidate(10, 20), g.candidate(10, 70), 40)
		assert.False(t, r.Feasible)
	})

	t.Run("unreachable target", func(t *testing.T) {
		r := ls.Search(g.candidate(50, 10), g.candidate(10, 10), 0)
		assert.False(t, r.Feasible)
	})

	t.Run("many targets in one search", func(t *testing.T) {
		targets := []datastructure.Candidate{
			g.candidate(20, 50),
			g.candidate(10, 90),
			g.candidate(60, 10),
			g.candidate(11, 0),
		}
		routes := ls.SearchMany(g.candidate(10, 50), targets, 0)
		assert.Len(t, routes, 4)
		assert.Equal(t, 100.0, routes[0].Distance)
		assert.Equal(t, 40.0, routes[1].Distance)
		assert.Equal(t, 160.0, routes[2].Distance)
		assert.Equal(t, []datastructure.NodeID{2, 3}, routes[2].Nodes)
		assert.Equal(t, 50.0, routes[3].Distance)
		for _, r := range routes {
			assert.True(t, r.Feasible)
		}
	})

	t.Run("reused search gives identical results", func(t *testing.T) {
		a := ls.Search(g.candidate(10, 80), g.candidate(50, 10), 0)
		b := ls.Search(g.candidate(10, 80), g.candidate(50, 10), 0)
		assert.Equal(t, a, b)
	})
}

func TestLocalSearchMaxExpansions(t *testing.T) {
	g := buildTestGraph()

	limited := routingalgorithm.NewLocalSearch(g, 1000, 1)
	r := limited.Search(g.candidate(10, 50), g.candidate(20, 10), 0)
	assert.True(t, r.Feasible)
	r = limited.Search(g.candidate(10, 50), g.candidate(60, 10), 0)
	assert.False(t, r.Feasible)

	unlimited := routingalgorithm.NewLocalSearch(g, 1000, 0)
	r = unlimited.Search(g.candidate(10, 50), g.candidate(60, 10), 0)
	assert.True(t, r.Feasible)
	assert.Equal(t, 1000.0, unlimited.MaxDistance())
}
