package matching_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/mapstore"
	"lintang/mapmatchx/pkg/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchInvalidObservations(t *testing.T) {
	g := abcGraph(t)

	cases := []struct {
		name string
		obs  []datastructure.Observation
	}{
		{"index not increasing", []datastructure.Observation{obsAt(3, 0, 0), obsAt(3, 10, 0)}},
		{"index decreasing", []datastructure.Observation{obsAt(5, 0, 0), obsAt(2, 10, 0)}},
		{"nan coordinate", []datastructure.Observation{obsAt(0, 0, 0), obsAt(1, math.NaN(), 0)}},
		{"inf coordinate", []datastructure.Observation{obsAt(0, math.Inf(1), 0)}},
		{"time goes backwards", []datastructure.Observation{timedObs(0, 0, 0, 10), timedObs(1, 10, 0, 5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMatcher(t, g, testConfig())
			res, err := m.Match(context.Background(), tc.obs)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, matching.ErrInvalidObservations))
			assert.Equal(t, server.ErrInvalidInput, server.CodeOf(err))
		})
	}
}

func TestMatchGeographicRange(t *testing.T) {
	g := mapstore.NewGraph(geo.Haversine{})
	require.Nil(t, g.AddNode(1, datastructure.NewCoordinate(-7.55, 110.80)))
	require.Nil(t, g.AddNode(2, datastructure.NewCoordinate(-7.55, 110.81)))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 1, ReverseID: 2, From: 1, To: 2}))
	g.Build()

	m := newMatcher(t, g, matching.DefaultConfig())
	_, err := m.Match(context.Background(), []datastructure.Observation{
		datastructure.NewObservation(0, -7.55, 110.805),
		datastructure.NewObservation(1, 95, 110.805),
	})
	assert.True(t, errors.Is(err, matching.ErrInvalidObservations))
}

func TestMatchTimestampsOptional(t *testing.T) {
	g := abcGraph(t)
	m := newMatcher(t, g, testConfig())
	res, err := m.Match(context.Background(), []datastructure.Observation{
		timedObs(0, 10, 0, 0),
		obsAt(1, 50, 0),
		timedObs(2, 90, 0, 3),
	})
	require.Nil(t, err)
	assert.Equal(t, 3, res.MatchedCount())
}

func TestMatchFailsBeforeMatching(t *testing.T) {
	g := abcGraph(t)
	m := newMatcher(t, g, testConfig())
	_, err := m.Match(context.Background(), []datastructure.Observation{obsAt(0, 10, 0), obsAt(1, 20, 0), obsAt(1, 30, 0)})
	require.Error(t, err)
	assert.Empty(t, m.Result().Points)
}

func TestPushInvalidKeepsState(t *testing.T) {
	g := abcGraph(t)
	m := newMatcher(t, g, testConfig())
	require.Nil(t, m.Push(context.Background(), obsAt(4, 10, 0)))

	err := m.Push(context.Background(), obsAt(4, 20, 0))
	assert.True(t, errors.Is(err, matching.ErrInvalidObservations))

	require.Nil(t, m.Push(context.Background(), obsAt(5, 20, 0)))
	assert.Len(t, m.Result().Points, 2)
}

func TestMatchCancelled(t *testing.T) {
	g := abcGraph(t)
	m := newMatcher(t, g, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Match(ctx, []datastructure.Observation{obsAt(0, 10, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMatcherInvalidConfig(t *testing.T) {
	g := abcGraph(t)
	cfg := testConfig()
	cfg.SigmaZ = 0

	_, err := matching.NewMatcher(g, cfg)
	assert.True(t, errors.Is(err, matching.ErrInvalidConfig))
	assert.Equal(t, server.ErrInvalidInput, server.CodeOf(err))

	_, err = matching.NewMatcher(nil, testConfig())
	assert.True(t, errors.Is(err, matching.ErrMapContractViolation))
}

// brokenMap MapQuery yang melaporkan edge yang tidak dikenal map-nya sendiri.
type brokenMap struct {
	*mapstore.Graph
	hit datastructure.EdgeHit
}

func (b brokenMap) NearbyEdges(p datastructure.Coordinate, radius float64) []datastructure.EdgeHit {
	return append(b.Graph.NearbyEdges(p, radius), b.hit)
}

func TestMatchMapContractViolation(t *testing.T) {
	g := abcGraph(t)
	edge, _ := g.Edge(1)

	cases := []struct {
		name string
		hit  datastructure.EdgeHit
	}{
		{"unknown edge", datastructure.EdgeHit{Edge: datastructure.Edge{ID: 999}, Dist: 1}},
		{"offset beyond length", datastructure.EdgeHit{Edge: edge, Offset: 150, Dist: 1}},
		{"distance beyond radius", datastructure.EdgeHit{Edge: edge, Offset: 10, Dist: 500}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMatcher(t, brokenMap{Graph: g, hit: tc.hit}, testConfig())
			_, err := m.Match(context.Background(), []datastructure.Observation{obsAt(0, 10, 0)})
			assert.True(t, errors.Is(err, matching.ErrMapContractViolation))
			assert.Equal(t, server.ErrInvalidInput, server.CodeOf(err))
		})
	}
}

// hit duplikat yang konsisten tetap diterima, candidate-nya cuma satu per edge.
func TestMatchRepeatedEdgeHit(t *testing.T) {
	g := abcGraph(t)
	hits := g.NearbyEdges(xy(10, 0), 5)
	require.Len(t, hits, 2)

	m := newMatcher(t, brokenMap{Graph: g, hit: hits[0]}, testConfig())
	res, err := m.Match(context.Background(), []datastructure.Observation{obsAt(0, 10, 0)})
	require.Nil(t, err)
	assert.Equal(t, 2, res.Points[0].Candidates)
	assert.Equal(t, datastructure.EdgeID(1), res.Points[0].Candidate.EdgeID)
}
