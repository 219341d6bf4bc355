package mapstore

import (
	"math"
	"sort"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"

	"github.com/paulmach/orb/geojson"
)

// BoundingBox bounding box semua node & geometry edge.
func (g *Graph) BoundingBox() datastructure.BoundingBox {
	pts := make([]datastructure.Coordinate, 0, len(g.nodes))
	for _, id := range g.nodeIDs {
		pts = append(pts, g.nodes[id].Coord)
	}
	for _, id := range g.edgeIDs {
		pts = append(pts, g.edges[id].Geometry...)
	}
	if len(pts) == 0 {
		return datastructure.BoundingBox{}
	}
	return boundsOf(pts)
}

func (g *Graph) Stats() datastructure.GraphStats {
	st := datastructure.GraphStats{
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
	}
	for _, id := range g.edgeIDs {
		st.TotalLen += g.edges[id].Length
	}
	for _, id := range g.nodeIDs {
		if d := len(g.out[id]); d > st.MaxOutEdge {
			st.MaxOutEdge = d
		}
	}
	if st.NodeCount > 0 {
		st.MeanDegree = float64(st.EdgeCount) / float64(st.NodeCount)
	}
	return st
}

// Purge hapus node yang tidak punya edge sama sekali. return jumlah node yang dihapus.
func (g *Graph) Purge() int {
	kept := g.nodeIDs[:0]
	removed := 0
	for _, id := range g.nodeIDs {
		if len(g.out[id]) == 0 && len(g.in[id]) == 0 {
			delete(g.nodes, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	g.nodeIDs = kept
	if removed > 0 {
		g.invalidate()
	}
	return removed
}

// NearbyNodes node dalam maxDist dari p, paling dekat dulu. maxElements <= 0 berarti tanpa batas.
func (g *Graph) NearbyNodes(p datastructure.Coordinate, maxDist float64, maxElements int) []datastructure.NodeHit {
	_, nodeIndex := g.indexes()
	ids := searchBoxes(nodeIndex, g.metric.Boxes(p, maxDist))
	hits := make([]datastructure.NodeHit, 0, len(ids))
	for _, id := range ids {
		n := g.nodes[datastructure.NodeID(id)]
		d := g.metric.Distance(p, n.Coord)
		if d > maxDist {
			continue
		}
		hits = append(hits, datastructure.NodeHit{Node: n, Dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Dist != hits[j].Dist {
			return hits[i].Dist < hits[j].Dist
		}
		return hits[i].Node.ID < hits[j].Node.ID
	})
	if maxElements > 0 && len(hits) > maxElements {
		hits = hits[:maxElements]
	}
	return hits
}

// Neighbours node yang terhubung langsung (edge masuk atau keluar), urut naik.
func (g *Graph) Neighbours(id datastructure.NodeID) []datastructure.NodeID {
	seen := make(map[datastructure.NodeID]bool)
	for _, e := range g.out[id] {
		seen[e.To] = true
	}
	for _, eid := range g.in[id] {
		seen[g.edges[eid].From] = true
	}
	delete(seen, id)
	res := make([]datastructure.NodeID, 0, len(seen))
	for n := range seen {
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// ToXY salinan graph dalam web mercator (meter) dengan metric euclidean. panjang edge dihitung ulang.
func (g *Graph) ToXY() (*Graph, error) {
	xy := NewGraph(geo.Euclidean{}, WithIndex(g.indexKind))
	for _, id := range g.nodeIDs {
		if err := xy.AddNode(id, geo.ToMercator(g.nodes[id].Coord)); err != nil {
			return nil, err
		}
	}
	for _, id := range g.edgeIDs {
		e := g.edges[id]
		geom := make([]datastructure.Coordinate, len(e.Geometry))
		for i, c := range e.Geometry {
			geom[i] = geo.ToMercator(c)
		}
		e.Geometry = geom
		e.Length = 0
		if err := xy.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return xy, nil
}

// FeatureCollection semua edge sebagai geojson LineString.
func (g *Graph) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range g.edgeIDs {
		e := g.edges[id]
		f := geojson.NewFeature(geo.ToLineString(e.Geometry))
		f.Properties["id"] = int64(e.ID)
		f.Properties["from"] = int64(e.From)
		f.Properties["to"] = int64(e.To)
		f.Properties["length"] = math.Round(e.Length*100) / 100
		fc.Append(f)
	}
	return fc
}
