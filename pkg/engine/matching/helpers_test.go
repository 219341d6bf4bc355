package matching_test

import (
	"testing"
	"time"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/mapstore"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 8, 17, 7, 0, 0, 0, time.UTC)

// semua test graph pakai koordinat planar: Lon = x, Lat = y.
func xy(x, y float64) datastructure.Coordinate {
	return datastructure.NewCoordinate(y, x)
}

func obsAt(index int, x, y float64) datastructure.Observation {
	return datastructure.Observation{Index: index, Coord: xy(x, y)}
}

func timedObs(index int, x, y float64, sec int) datastructure.Observation {
	o := obsAt(index, x, y)
	o.Time = t0.Add(time.Duration(sec) * time.Second)
	return o
}

func testConfig() matching.Config {
	cfg := matching.DefaultConfig()
	cfg.InitialSearchRadius = 5
	cfg.MaxSearchRadius = 20
	cfg.RadiusGrowthFactor = 2
	cfg.SigmaZ = 0.2
	cfg.Beta = 0.5
	cfg.BeamWidth = 0
	cfg.MaxCandidates = 0
	cfg.MaxRouteSearchDistance = 1000
	cfg.MaxRouteExpansions = 1000
	return cfg
}

// abcGraph A(0,0) - B(100,0) - C(200,0). AB = 1, BA = 2, BC = 3, CB = 4.
func abcGraph(t *testing.T) *mapstore.Graph {
	g := mapstore.NewGraph(geo.Euclidean{})
	require.Nil(t, g.AddNode(1, xy(0, 0)))
	require.Nil(t, g.AddNode(2, xy(100, 0)))
	require.Nil(t, g.AddNode(3, xy(200, 0)))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 1, ReverseID: 2, From: 1, To: 2}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 3, ReverseID: 4, From: 2, To: 3}))
	g.Build()
	return g
}

// squareGraph persegi 100x100 dengan titik tengah, semua jalan dua arah.
func squareGraph(t *testing.T) *mapstore.Graph {
	g := mapstore.NewGraph(geo.Euclidean{})
	require.Nil(t, g.AddNode(1, xy(0, 0)))
	require.Nil(t, g.AddNode(2, xy(100, 0)))
	require.Nil(t, g.AddNode(3, xy(100, 100)))
	require.Nil(t, g.AddNode(4, xy(0, 100)))
	require.Nil(t, g.AddNode(5, xy(50, 50)))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 10, ReverseID: 11, From: 1, To: 2}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 20, ReverseID: 21, From: 2, To: 3}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 30, ReverseID: 31, From: 3, To: 4}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 40, ReverseID: 41, From: 4, To: 1}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 50, ReverseID: 51, From: 1, To: 5}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 60, ReverseID: 61, From: 5, To: 3}))
	g.Build()
	return g
}

func newMatcher(t *testing.T, mq matching.MapQuery, cfg matching.Config, opts ...matching.Option) *matching.Matcher {
	m, err := matching.NewMatcher(mq, cfg, opts...)
	require.Nil(t, err)
	return m
}
