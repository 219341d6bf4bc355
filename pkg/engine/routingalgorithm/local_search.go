package routingalgorithm

import (
	"math"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/util"
)

// sameEdgeTolerance toleransi offset mundur sedikit di edge yang sama (noise proyeksi).
const sameEdgeTolerance = 1e-9

type Graph interface {
	OutgoingEdges(id datastructure.NodeID) []datastructure.Edge
}

type cameFromPair struct {
	Edge datastructure.EdgeID
	Node datastructure.NodeID
}

/*
LocalSearch bounded one-to-many dijkstra antar candidate di road network.
search mulai dari node To milik edge candidate asal (cost awal = sisa panjang edge asal),
dan target tercapai di node From milik edge candidate tujuan (ditambah offset candidate tujuan).
search berhenti kalau semua target sudah ketemu, cost node berikutnya > bound, atau jumlah node
yang di-expand melebihi maxExpansions.

LocalSearch tidak goroutine-safe karena heap & map dipakai ulang antar pemanggilan.

time complexity: O((V+E)logV) dalam bound, priority queue pakai binary heap.
*/
type LocalSearch struct {
	g             Graph
	maxDistance   float64
	maxExpansions int

	pq       *datastructure.MinHeap[datastructure.NodeID]
	cost     map[datastructure.NodeID]float64
	hops     map[datastructure.NodeID]int
	cameFrom map[datastructure.NodeID]cameFromPair
	settled  map[datastructure.NodeID]bool
}

func NewLocalSearch(g Graph, maxDistance float64, maxExpansions int) *LocalSearch {
	return &LocalSearch{
		g:             g,
		maxDistance:   maxDistance,
		maxExpansions: maxExpansions,
		pq:            datastructure.NewMinHeap[datastructure.NodeID](),
		cost:          make(map[datastructure.NodeID]float64),
		hops:          make(map[datastructure.NodeID]int),
		cameFrom:      make(map[datastructure.NodeID]cameFromPair),
		settled:       make(map[datastructure.NodeID]bool),
	}
}

func (ls *LocalSearch) MaxDistance() float64 {
	return ls.maxDistance
}

// Search shortest route dari src ke dst. bound <= 0 berarti pakai maxDistance.
func (ls *LocalSearch) Search(src, dst datastructure.Candidate, bound float64) datastructure.Route {
	return ls.SearchMany(src, []datastructure.Candidate{dst}, bound)[0]
}

// SearchMany shortest route dari src ke setiap target, satu dijkstra untuk semua target.
// hasil ke-i untuk targets[i]. route dengan panjang sama dipilih yang lewat node lebih sedikit.
func (ls *LocalSearch) SearchMany(src datastructure.Candidate, targets []datastructure.Candidate, bound float64) []datastructure.Route {
	if bound <= 0 {
		bound = ls.maxDistance
	}
	results := make([]datastructure.Route, len(targets))

	// target dikelompokkan per node From edge-nya.
	pending := make(map[datastructure.NodeID][]int)
	pendingCount := 0
	for i, t := range targets {
		if t.EdgeID == src.EdgeID && t.Offset >= src.Offset-sameEdgeTolerance {
			d := math.Max(0, t.Offset-src.Offset)
			if d <= bound {
				results[i] = datastructure.Route{
					Distance: d,
					Feasible: true,
					Edges:    []datastructure.EdgeID{src.EdgeID},
				}
			}
			continue
		}
		pending[t.From] = append(pending[t.From], i)
		pendingCount++
	}
	if pendingCount == 0 {
		return results
	}

	start := src.Remaining()
	if start > bound {
		return results
	}

	ls.reset()
	ls.cost[src.To] = start
	ls.hops[src.To] = 0
	ls.pq.Insert(datastructure.PriorityQueueNode[datastructure.NodeID]{Rank: start, Item: src.To})

	expansions := 0
	for ls.pq.Size() > 0 && pendingCount > 0 {
		curr, _ := ls.pq.ExtractMin()
		if curr.Rank > bound {
			break
		}
		u := curr.Item
		ls.settled[u] = true

		if idxs, ok := pending[u]; ok {
			for _, i := range idxs {
				t := targets[i]
				total := curr.Rank + t.Offset
				if total <= bound {
					results[i] = ls.buildRoute(src, t, u, total)
				}
			}
			pendingCount -= len(idxs)
			delete(pending, u)
			if pendingCount == 0 {
				break
			}
		}

		expansions++
		if ls.maxExpansions > 0 && expansions > ls.maxExpansions {
			break
		}

		for _, e := range ls.g.OutgoingEdges(u) {
			v := e.To
			if ls.settled[v] {
				continue
			}
			newCost := curr.Rank + e.Length
			if newCost > bound {
				continue
			}
			newHops := curr.Hops + 1
			neighborNode := datastructure.PriorityQueueNode[datastructure.NodeID]{Rank: newCost, Hops: newHops, Item: v}

			oldCost, ok := ls.cost[v]
			if !ok {
				ls.cost[v] = newCost
				ls.hops[v] = newHops
				ls.cameFrom[v] = cameFromPair{Edge: e.ID, Node: u}
				ls.pq.Insert(neighborNode)
			} else if newCost < oldCost || (newCost == oldCost && newHops < ls.hops[v]) {
				ls.cost[v] = newCost
				ls.hops[v] = newHops
				ls.cameFrom[v] = cameFromPair{Edge: e.ID, Node: u}
				ls.pq.DecreaseKey(neighborNode)
			}
		}
	}

	return results
}

func (ls *LocalSearch) reset() {
	ls.pq.Reset()
	clear(ls.cost)
	clear(ls.hops)
	clear(ls.cameFrom)
	clear(ls.settled)
}

// buildRoute rekonstruksi path dari node u balik ke src.To.
func (ls *LocalSearch) buildRoute(src, dst datastructure.Candidate, u datastructure.NodeID, total float64) datastructure.Route {
	nodes := []datastructure.NodeID{u}
	edges := []datastructure.EdgeID{dst.EdgeID}
	curr := u
	for curr != src.To {
		cf := ls.cameFrom[curr]
		edges = append(edges, cf.Edge)
		nodes = append(nodes, cf.Node)
		curr = cf.Node
	}
	edges = append(edges, src.EdgeID)
	util.ReverseG(nodes)
	util.ReverseG(edges)

	return datastructure.Route{
		Distance: total,
		Feasible: true,
		Nodes:    nodes,
		Edges:    edges,
	}
}
