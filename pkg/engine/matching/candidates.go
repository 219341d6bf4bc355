package matching

import (
	"math"
	"sort"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/server"
)

// offsetTolerance toleransi relatif offset di luar [0, length] karena pembulatan proyeksi.
const offsetTolerance = 1e-6

type candidate struct {
	datastructure.Candidate
	emission float64
}

// findCandidates cari candidate edge untuk satu observation. radius diperbesar sesuai RadiusPolicy
// sampai ada edge yang ketemu atau radius maksimum tercapai.
func (m *Matcher) findCandidates(obs datastructure.Observation) ([]candidate, float64, error) {
	radius := m.radius.Initial()
	var hits []datastructure.EdgeHit
	for {
		hits = m.mq.NearbyEdges(obs.Coord, radius)
		if len(hits) > 0 {
			break
		}
		next, ok := m.radius.Next(radius)
		if !ok {
			break
		}
		radius = next
	}

	seen := make(map[datastructure.EdgeID]bool, len(hits))
	cands := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		// semua hit divalidasi dulu, termasuk duplikat edge yang sama
		c, err := m.toCandidate(obs, hit, radius)
		if err != nil {
			return nil, radius, err
		}
		if seen[hit.Edge.ID] {
			continue
		}
		seen[hit.Edge.ID] = true
		cands = append(cands, c)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Dist != cands[j].Dist {
			return cands[i].Dist < cands[j].Dist
		}
		return cands[i].EdgeID < cands[j].EdgeID
	})
	if m.cfg.MaxCandidates > 0 && len(cands) > m.cfg.MaxCandidates {
		cands = cands[:m.cfg.MaxCandidates]
	}
	return cands, radius, nil
}

// toCandidate validasi hasil spatial query terhadap kontrak MapQuery lalu bikin candidate.
func (m *Matcher) toCandidate(obs datastructure.Observation, hit datastructure.EdgeHit, radius float64) (candidate, error) {
	edge, ok := m.mq.Edge(hit.Edge.ID)
	if !ok {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: nearby edge %d is unknown to the map", obs.Index, hit.Edge.ID)
	}
	length, ok := m.mq.EdgeLength(edge.ID)
	if !ok || math.IsNaN(length) || length < 0 {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: edge %d has no valid length", obs.Index, edge.ID)
	}
	tol := offsetTolerance * math.Max(1, length)
	if math.IsNaN(hit.Offset) || hit.Offset < -tol || hit.Offset > length+tol {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: offset %f outside edge %d of length %f", obs.Index, hit.Offset, edge.ID, length)
	}
	if math.IsNaN(hit.Dist) || hit.Dist > radius*(1+offsetTolerance) {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: edge %d reported at distance %f beyond radius %f", obs.Index, edge.ID, hit.Dist, radius)
	}
	fromCoord, ok := m.mq.NodeCoordinate(edge.From)
	if !ok {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: edge %d starts at unknown node %d", obs.Index, edge.ID, edge.From)
	}
	toCoord, ok := m.mq.NodeCoordinate(edge.To)
	if !ok {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: edge %d ends at unknown node %d", obs.Index, edge.ID, edge.To)
	}
	if !containsEdge(m.mq.OutgoingEdges(edge.From), edge.ID) {
		return candidate{}, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput,
			"observation %d: edge %d missing from adjacency of node %d", obs.Index, edge.ID, edge.From)
	}

	offset := math.Min(math.Max(hit.Offset, 0), length)
	c := datastructure.Candidate{
		EdgeID:     edge.ID,
		From:       edge.From,
		To:         edge.To,
		EdgeLength: length,
		Offset:     offset,
		Point:      hit.Point,
		Dist:       hit.Dist,
		Position:   datastructure.VirtualNode,
	}
	if snap := m.cfg.NodeSnapDistance; snap > 0 {
		switch {
		case offset <= snap:
			c.Offset = 0
			c.Point = fromCoord
			c.Position = datastructure.GraphNode
			c.SnapNode = edge.From
		case length-offset <= snap:
			c.Offset = length
			c.Point = toCoord
			c.Position = datastructure.GraphNode
			c.SnapNode = edge.To
		}
	}

	return candidate{
		Candidate: c,
		emission:  m.model.EmissionLogProb(hit.Dist),
	}, nil
}

func containsEdge(edges []datastructure.Edge, id datastructure.EdgeID) bool {
	for _, e := range edges {
		if e.ID == id {
			return true
		}
	}
	return false
}
