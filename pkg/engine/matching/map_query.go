package matching

import (
	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
)

// MapQuery read-only view road network yang dipakai matcher.
// implementasi harus konsisten: edge yang dikembalikan NearbyEdges harus ada di Edge & OutgoingEdges node From-nya.
type MapQuery interface {
	// NearbyEdges semua edge yang jaraknya <= radius dari p, beserta proyeksi p ke edge.
	NearbyEdges(p datastructure.Coordinate, radius float64) []datastructure.EdgeHit
	Edge(id datastructure.EdgeID) (datastructure.Edge, bool)
	EdgeLength(id datastructure.EdgeID) (float64, bool)
	NodeCoordinate(id datastructure.NodeID) (datastructure.Coordinate, bool)
	OutgoingEdges(id datastructure.NodeID) []datastructure.Edge
	Metric() geo.Metric
}
