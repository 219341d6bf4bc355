package mapstore

import (
	"errors"
	"math"
	"sort"
	"sync"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/server"
)

var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrDuplicateEdge = errors.New("duplicate edge")
	ErrInvalidEdge   = errors.New("invalid edge")
)

/*
Graph road network in-memory: directed edge + polyline geometry + spatial index edge.
semua method read aman dipanggil dari banyak goroutine setelah graph selesai dibangun.
AddNode/AddEdge/AddRoad/Purge tidak boleh dipanggil bersamaan dengan query.
*/
type Graph struct {
	metric    geo.Metric
	indexKind IndexKind

	nodes   map[datastructure.NodeID]datastructure.Node
	nodeIDs []datastructure.NodeID
	edges   map[datastructure.EdgeID]datastructure.Edge
	edgeIDs []datastructure.EdgeID
	out     map[datastructure.NodeID][]datastructure.Edge
	in      map[datastructure.NodeID][]datastructure.EdgeID

	mu        sync.RWMutex
	edgeIndex SpatialIndex
	nodeIndex SpatialIndex
}

type Option func(*Graph)

func WithIndex(kind IndexKind) Option {
	return func(g *Graph) {
		g.indexKind = kind
	}
}

func NewGraph(metric geo.Metric, opts ...Option) *Graph {
	if metric == nil {
		metric = geo.Haversine{}
	}
	g := &Graph{
		metric:    metric,
		indexKind: IndexRtreego,
		nodes:     make(map[datastructure.NodeID]datastructure.Node),
		edges:     make(map[datastructure.EdgeID]datastructure.Edge),
		out:       make(map[datastructure.NodeID][]datastructure.Edge),
		in:        make(map[datastructure.NodeID][]datastructure.EdgeID),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) Metric() geo.Metric {
	return g.metric
}

func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

func (g *Graph) AddNode(id datastructure.NodeID, coord datastructure.Coordinate) error {
	if _, ok := g.nodes[id]; ok {
		return server.WrapErrorf(ErrDuplicateNode, server.ErrInvalidInput, "node %d already exists", id)
	}
	if !coord.IsFinite() {
		return server.WrapErrorf(ErrInvalidEdge, server.ErrInvalidInput, "node %d has non-finite coordinate", id)
	}
	g.nodes[id] = datastructure.Node{ID: id, Coord: coord}
	g.nodeIDs = append(g.nodeIDs, id)
	g.invalidate()
	return nil
}

// AddEdge tambah directed edge. geometry kosong diganti garis lurus antar node,
// Length <= 0 diganti panjang geometry menurut metric graph.
func (g *Graph) AddEdge(e datastructure.Edge) error {
	if _, ok := g.edges[e.ID]; ok {
		return server.WrapErrorf(ErrDuplicateEdge, server.ErrInvalidInput, "edge %d already exists", e.ID)
	}
	from, ok := g.nodes[e.From]
	if !ok {
		return server.WrapErrorf(ErrUnknownNode, server.ErrInvalidInput, "edge %d: node %d", e.ID, e.From)
	}
	to, ok := g.nodes[e.To]
	if !ok {
		return server.WrapErrorf(ErrUnknownNode, server.ErrInvalidInput, "edge %d: node %d", e.ID, e.To)
	}
	if math.IsNaN(e.Length) || math.IsInf(e.Length, 0) || e.Length < 0 {
		return server.WrapErrorf(ErrInvalidEdge, server.ErrInvalidInput, "edge %d has invalid length %f", e.ID, e.Length)
	}

	geometry := make([]datastructure.Coordinate, 0, len(e.Geometry)+2)
	if len(e.Geometry) == 0 || e.Geometry[0] != from.Coord {
		geometry = append(geometry, from.Coord)
	}
	geometry = append(geometry, e.Geometry...)
	if geometry[len(geometry)-1] != to.Coord {
		geometry = append(geometry, to.Coord)
	}
	e.Geometry = geometry
	if e.Length == 0 {
		e.Length = geo.PolylineLength(g.metric, geometry)
	}

	g.edges[e.ID] = e
	g.edgeIDs = append(g.edgeIDs, e.ID)
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e.ID)
	g.invalidate()
	return nil
}

// Road jalan dua arah (atau satu arah kalau OneWay) di antara dua node.
type Road struct {
	ID        datastructure.EdgeID
	ReverseID datastructure.EdgeID
	From      datastructure.NodeID
	To        datastructure.NodeID
	Geometry  []datastructure.Coordinate
	Length    float64
	OneWay    bool
}

// AddRoad tambah edge ID (From -> To) dan, kalau bukan one-way, edge ReverseID (To -> From).
func (g *Graph) AddRoad(r Road) error {
	reverseID := r.ReverseID
	if r.OneWay {
		reverseID = datastructure.InvalidEdgeID
	}
	err := g.AddEdge(datastructure.Edge{
		ID:        r.ID,
		From:      r.From,
		To:        r.To,
		Length:    r.Length,
		Geometry:  r.Geometry,
		OneWay:    r.OneWay,
		ReverseID: reverseID,
	})
	if err != nil || r.OneWay {
		return err
	}

	rev := make([]datastructure.Coordinate, len(r.Geometry))
	for i, c := range r.Geometry {
		rev[len(rev)-1-i] = c
	}
	return g.AddEdge(datastructure.Edge{
		ID:        r.ReverseID,
		From:      r.To,
		To:        r.From,
		Length:    r.Length,
		Geometry:  rev,
		ReverseID: r.ID,
	})
}

func (g *Graph) invalidate() {
	g.mu.Lock()
	g.edgeIndex = nil
	g.nodeIndex = nil
	g.mu.Unlock()
}

// Build bangun spatial index. dipanggil otomatis di query pertama kalau belum.
func (g *Graph) Build() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buildLocked()
}

func (g *Graph) buildLocked() {
	if g.edgeIndex != nil && g.nodeIndex != nil {
		return
	}
	edgeIndex := newSpatialIndex(g.indexKind)
	for _, id := range g.edgeIDs {
		edgeIndex.Insert(int64(id), boundsOf(g.edges[id].Geometry))
	}
	nodeIndex := newSpatialIndex(g.indexKind)
	for _, id := range g.nodeIDs {
		c := g.nodes[id].Coord
		nodeIndex.Insert(int64(id), datastructure.BoundingBox{Min: c, Max: c})
	}
	g.edgeIndex = edgeIndex
	g.nodeIndex = nodeIndex
}

func (g *Graph) indexes() (SpatialIndex, SpatialIndex) {
	g.mu.RLock()
	ei, ni := g.edgeIndex, g.nodeIndex
	g.mu.RUnlock()
	if ei != nil && ni != nil {
		return ei, ni
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buildLocked()
	return g.edgeIndex, g.nodeIndex
}

func boundsOf(pts []datastructure.Coordinate) datastructure.BoundingBox {
	box := datastructure.BoundingBox{
		Min: datastructure.NewCoordinate(math.Inf(1), math.Inf(1)),
		Max: datastructure.NewCoordinate(math.Inf(-1), math.Inf(-1)),
	}
	for _, p := range pts {
		box.Min.Lat = math.Min(box.Min.Lat, p.Lat)
		box.Min.Lon = math.Min(box.Min.Lon, p.Lon)
		box.Max.Lat = math.Max(box.Max.Lat, p.Lat)
		box.Max.Lon = math.Max(box.Max.Lon, p.Lon)
	}
	return box
}

// NearbyEdges semua edge dalam radius dari p, urut jarak lalu edge id.
func (g *Graph) NearbyEdges(p datastructure.Coordinate, radius float64) []datastructure.EdgeHit {
	edgeIndex, _ := g.indexes()
	ids := searchBoxes(edgeIndex, g.metric.Boxes(p, radius))

	hits := make([]datastructure.EdgeHit, 0, len(ids))
	for _, id := range ids {
		e := g.edges[datastructure.EdgeID(id)]
		proj, offset, dist := geo.ProjectOnPolyline(g.metric, p, e.Geometry)
		if dist > radius {
			continue
		}
		if geomLen := geo.PolylineLength(g.metric, e.Geometry); geomLen > 0 {
			offset = offset * e.Length / geomLen
		}
		hits = append(hits, datastructure.EdgeHit{Edge: e, Offset: offset, Point: proj, Dist: dist})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Dist != hits[j].Dist {
			return hits[i].Dist < hits[j].Dist
		}
		return hits[i].Edge.ID < hits[j].Edge.ID
	})
	return hits
}

func (g *Graph) Edge(id datastructure.EdgeID) (datastructure.Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

func (g *Graph) EdgeLength(id datastructure.EdgeID) (float64, bool) {
	e, ok := g.edges[id]
	if !ok {
		return 0, false
	}
	return e.Length, true
}

func (g *Graph) Node(id datastructure.NodeID) (datastructure.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) NodeCoordinate(id datastructure.NodeID) (datastructure.Coordinate, bool) {
	n, ok := g.nodes[id]
	return n.Coord, ok
}

// OutgoingEdges edge keluar dari node id, urut sesuai urutan insert.
func (g *Graph) OutgoingEdges(id datastructure.NodeID) []datastructure.Edge {
	return g.out[id]
}

func (g *Graph) IncomingEdges(id datastructure.NodeID) []datastructure.Edge {
	ids := g.in[id]
	edges := make([]datastructure.Edge, 0, len(ids))
	for _, eid := range ids {
		edges = append(edges, g.edges[eid])
	}
	return edges
}

// Nodes semua node urut sesuai urutan insert.
func (g *Graph) Nodes() []datastructure.Node {
	nodes := make([]datastructure.Node, 0, len(g.nodeIDs))
	for _, id := range g.nodeIDs {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges semua edge urut sesuai urutan insert.
func (g *Graph) Edges() []datastructure.Edge {
	edges := make([]datastructure.Edge, 0, len(g.edgeIDs))
	for _, id := range g.edgeIDs {
		edges = append(edges, g.edges[id])
	}
	return edges
}
