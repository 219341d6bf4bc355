package datastructure

import (
	"github.com/twpayne/go-polyline"
)

type NodeID int64

type EdgeID int64

const InvalidEdgeID EdgeID = -1

type Node struct {
	ID    NodeID     `json:"id"`
	Coord Coordinate `json:"coord"`
}

// Edge directed arc from From to To. Geometry selalu diawali koordinat From dan diakhiri koordinat To.
type Edge struct {
	ID       EdgeID       `json:"id"`
	From     NodeID       `json:"from"`
	To       NodeID       `json:"to"`
	Length   float64      `json:"length"`
	Geometry []Coordinate `json:"geometry"`
	OneWay   bool         `json:"one_way"`
	// ReverseID edge kembaran arah sebaliknya (InvalidEdgeID kalau one-way).
	ReverseID EdgeID `json:"reverse_id"`
}

// IsReverseOf true kalau e kembaran arah sebaliknya dari other.
func (e Edge) IsReverseOf(other Edge) bool {
	return e.From == other.To && e.To == other.From
}

// EdgeHit edge hasil spatial query beserta proyeksi titik query ke edge tersebut.
type EdgeHit struct {
	Edge Edge
	// Offset jarak dari From ke titik proyeksi, diukur sepanjang edge.
	Offset float64
	Point  Coordinate
	// Dist jarak titik query ke titik proyeksi.
	Dist float64
}

type NodeHit struct {
	Node Node
	Dist float64
}

type GraphStats struct {
	NodeCount  int     `json:"node_count"`
	EdgeCount  int     `json:"edge_count"`
	MeanDegree float64 `json:"mean_degree"`
	TotalLen   float64 `json:"total_length"`
	MaxOutEdge int     `json:"max_out_degree"`
}

type BoundingBox struct {
	Min Coordinate `json:"min"`
	Max Coordinate `json:"max"`
}

func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.Min.Lat && c.Lat <= b.Max.Lat && c.Lon >= b.Min.Lon && c.Lon <= b.Max.Lon
}

// RenderPath encode path jadi google polyline string.
func RenderPath(path []Coordinate) string {
	s := ""
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	s = string(polyline.EncodeCoords(coords))
	return s
}
