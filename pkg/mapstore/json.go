package mapstore

import (
	"encoding/json"
	"io"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/server"
)

type jsonNode struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type jsonRoad struct {
	ID        int64        `json:"id"`
	ReverseID int64        `json:"reverse_id"`
	From      int64        `json:"from"`
	To        int64        `json:"to"`
	Length    float64      `json:"length"`
	OneWay    bool         `json:"oneway"`
	Geometry  [][2]float64 `json:"geometry"` // [lat, lon]
}

type jsonMap struct {
	Metric string     `json:"metric"`
	Nodes  []jsonNode `json:"nodes"`
	Roads  []jsonRoad `json:"roads"`
}

// LoadJSON import road network dari dokumen json {metric, nodes, roads}.
func LoadJSON(r io.Reader, opts ...Option) (*Graph, error) {
	var doc jsonMap
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, server.WrapErrorf(err, server.ErrInvalidInput, "decode map json")
	}
	metric, ok := geo.MetricByName(doc.Metric)
	if !ok {
		return nil, server.WrapErrorf(ErrInvalidEdge, server.ErrInvalidInput, "unknown metric %q", doc.Metric)
	}

	g := NewGraph(metric, opts...)
	for _, n := range doc.Nodes {
		if err := g.AddNode(datastructure.NodeID(n.ID), datastructure.NewCoordinate(n.Lat, n.Lon)); err != nil {
			return nil, err
		}
	}
	for _, rd := range doc.Roads {
		geom := make([]datastructure.Coordinate, len(rd.Geometry))
		for i, c := range rd.Geometry {
			geom[i] = datastructure.NewCoordinate(c[0], c[1])
		}
		err := g.AddRoad(Road{
			ID:        datastructure.EdgeID(rd.ID),
			ReverseID: datastructure.EdgeID(rd.ReverseID),
			From:      datastructure.NodeID(rd.From),
			To:        datastructure.NodeID(rd.To),
			Geometry:  geom,
			Length:    rd.Length,
			OneWay:    rd.OneWay,
		})
		if err != nil {
			return nil, err
		}
	}
	g.Build()
	return g, nil
}
