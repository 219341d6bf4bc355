package mapstore

import (
	"io"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/kv"
	"lintang/mapmatchx/pkg/server"
)

type snapshot struct {
	Metric string
	Index  string
	Nodes  []datastructure.Node
	Edges  []datastructure.Edge
}

// Save tulis graph sebagai binary snapshot (kelindar/binary + zstd).
func (g *Graph) Save(w io.Writer) error {
	bb, err := kv.EncodeCompressed(snapshot{
		Metric: g.metric.Name(),
		Index:  string(g.indexKind),
		Nodes:  g.Nodes(),
		Edges:  g.Edges(),
	})
	if err != nil {
		return server.WrapErrorf(err, server.ErrInternalServerError, "encode graph snapshot")
	}
	_, err = w.Write(bb)
	return err
}

// Load baca snapshot hasil Save.
func Load(r io.Reader) (*Graph, error) {
	bb, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	snap, err := kv.DecodeCompressed[snapshot](bb)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrInvalidInput, "decode graph snapshot")
	}
	metric, ok := geo.MetricByName(snap.Metric)
	if !ok {
		return nil, server.WrapErrorf(ErrInvalidEdge, server.ErrInvalidInput, "unknown metric %q in snapshot", snap.Metric)
	}

	g := NewGraph(metric, WithIndex(IndexKind(snap.Index)))
	for _, n := range snap.Nodes {
		if err := g.AddNode(n.ID, n.Coord); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	g.Build()
	return g, nil
}
