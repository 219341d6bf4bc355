package datastructure

type StatePosition int

const (
	// VirtualNode candidate ada di tengah edge.
	VirtualNode StatePosition = iota
	// GraphNode candidate di-snap ke salah satu ujung edge.
	GraphNode
)

func (s StatePosition) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s StatePosition) String() string {
	switch s {
	case GraphNode:
		return "graph_node"
	default:
		return "virtual_node"
	}
}

// Candidate posisi hipotetis observation di road network: edge + offset dari node From.
type Candidate struct {
	EdgeID     EdgeID     `json:"edge_id"`
	From       NodeID     `json:"from"`
	To         NodeID     `json:"to"`
	EdgeLength float64    `json:"edge_length"`
	Offset     float64    `json:"offset"`
	Point      Coordinate `json:"point"`
	// Dist jarak observation ke Point.
	Dist     float64       `json:"dist"`
	Position StatePosition `json:"position"`
	// SnapNode node tempat candidate di-snap, cuma valid kalau Position == GraphNode.
	SnapNode NodeID `json:"snap_node,omitempty"`
}

// Remaining sisa panjang edge dari titik candidate sampai node To.
func (c Candidate) Remaining() float64 {
	r := c.EdgeLength - c.Offset
	if r < 0 {
		return 0
	}
	return r
}

func (c Candidate) Fraction() float64 {
	if c.EdgeLength <= 0 {
		return 0
	}
	return c.Offset / c.EdgeLength
}
