package matching

import (
	"math"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/util"
)

type Status int

const (
	StatusMatched Status = iota
	// StatusGap observation di-skip di antara dua observation yang matched.
	StatusGap
	// StatusUnmatched observation di awal/akhir trace yang tidak bisa di-match, atau setelah lattice exhausted.
	StatusUnmatched
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusGap:
		return "gap"
	default:
		return "unmatched"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoCandidates
	ReasonInfeasibleTransition
	ReasonLatticeExhausted
	// ReasonBypassed observation punya state di lattice tapi path terbaik melewatinya.
	ReasonBypassed
)

func (r Reason) String() string {
	switch r {
	case ReasonNoCandidates:
		return "no_candidates"
	case ReasonInfeasibleTransition:
		return "infeasible_transition"
	case ReasonLatticeExhausted:
		return "lattice_exhausted"
	case ReasonBypassed:
		return "bypassed"
	default:
		return ""
	}
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type Alternative struct {
	Candidate datastructure.Candidate `json:"candidate"`
	LogProb   float64                 `json:"log_prob"`
}

type MatchedPoint struct {
	ObservationIndex int                      `json:"observation_index"`
	Observation      datastructure.Coordinate `json:"observation"`
	Status           Status                   `json:"status"`
	Reason           Reason                   `json:"reason,omitempty"`
	Candidate        *datastructure.Candidate `json:"candidate,omitempty"`
	// LogProb skor kumulatif path terpilih sampai point ini.
	LogProb float64 `json:"log_prob"`
	// Confidence porsi probabilitas candidate terpilih di antara semua candidate step ini.
	Confidence float64 `json:"confidence"`
	// Route dari matched point sebelumnya ke point ini.
	Route        *datastructure.Route `json:"route,omitempty"`
	SearchRadius float64              `json:"search_radius"`
	Candidates   int                  `json:"candidates"`
	Alternatives []Alternative        `json:"alternatives,omitempty"`
}

type MatchResult struct {
	Points []MatchedPoint `json:"points"`
	// Path urutan edge yang dilewati dari matched point pertama sampai terakhir.
	Path []datastructure.EdgeID `json:"path"`
	// NodePath node-node non-emitting sepanjang Path.
	NodePath []datastructure.NodeID `json:"node_path"`
	// LogProb skor path, termasuk penalti skip untuk setiap observation yang tidak matched.
	LogProb float64 `json:"log_prob"`
	// Found false kalau tidak ada observation yang matched.
	Found bool `json:"found"`
	// Partial true kalau matching berhenti lebih awal karena terlalu banyak observation di-skip.
	Partial bool `json:"partial"`
	// LastMatchedIndex index observation terakhir yang matched, -1 kalau tidak ada.
	LastMatchedIndex int `json:"last_matched_index"`
}

func (r *MatchResult) MatchedCount() int {
	n := 0
	for _, p := range r.Points {
		if p.Status == StatusMatched {
			n++
		}
	}
	return n
}

func (r *MatchResult) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, p := range r.Points {
		counts[p.Status]++
	}
	return counts
}

// Result hasil viterbi dari observation yang sudah di-push. tidak mengubah state matcher.
func (m *Matcher) Result() *MatchResult {
	res := &MatchResult{
		Points:           make([]MatchedPoint, len(m.obs)),
		LastMatchedIndex: -1,
		Partial:          m.exhausted,
	}
	for i, ps := range m.points {
		res.Points[i] = MatchedPoint{
			ObservationIndex: m.obs[i].Index,
			Observation:      m.obs[i].Coord,
			Status:           ps.status,
			Reason:           ps.reason,
			SearchRadius:     ps.radius,
			Candidates:       ps.candidates,
		}
	}
	if m.lat.empty() {
		return res
	}

	last, score, ok := m.lat.end(len(m.obs), m.model.SkipLogProb())
	if !ok {
		return res
	}
	chain := m.lat.backtrack(last)
	onPath := make(map[int]bool, len(chain))
	for i, link := range chain {
		step := &m.lat.steps[link.step]
		n := step.nodes[link.slot]
		mp := &res.Points[step.obsPos]
		onPath[step.obsPos] = true

		cand := n.cand.Candidate
		mp.Status, mp.Reason = StatusMatched, ReasonNone
		mp.Candidate = &cand
		mp.LogProb = n.score
		mp.Confidence = math.Exp(n.score - util.LogSumExp(step.scores()))
		mp.Alternatives = m.alternatives(step)

		if i == 0 {
			res.Path = append(res.Path, cand.EdgeID)
			continue
		}
		rt := n.route
		mp.Route = &rt
		for _, e := range rt.Edges {
			if len(res.Path) == 0 || res.Path[len(res.Path)-1] != e {
				res.Path = append(res.Path, e)
			}
		}
		res.NodePath = append(res.NodePath, rt.Nodes...)
	}

	first := m.lat.steps[chain[0].step].obsPos
	end := m.lat.steps[last.step].obsPos
	for i := range res.Points {
		p := &res.Points[i]
		if onPath[i] || p.Reason == ReasonLatticeExhausted {
			continue
		}
		if p.Reason == ReasonNone {
			p.Reason = ReasonBypassed
		}
		// observation di luar matched point pertama & terakhir tidak punya penutup, jadi unmatched.
		if i < first || i > end {
			p.Status = StatusUnmatched
		} else {
			p.Status = StatusGap
		}
	}

	res.LogProb = score
	res.Found = true
	res.LastMatchedIndex = m.obs[end].Index
	return res
}

func (m *Matcher) alternatives(step *latticeStep) []Alternative {
	if m.cfg.Alternatives <= 0 {
		return nil
	}
	ranked := step.ranked()
	if len(ranked) > m.cfg.Alternatives {
		ranked = ranked[:m.cfg.Alternatives]
	}
	alts := make([]Alternative, 0, len(ranked))
	for _, slot := range ranked {
		n := step.nodes[slot]
		alts = append(alts, Alternative{Candidate: n.cand.Candidate, LogProb: n.score})
	}
	return alts
}

// Record satu baris hasil per observation, buat output tabular.
type Record struct {
	ObservationIndex int                  `json:"observation_index"`
	Status           string               `json:"status"`
	Reason           string               `json:"reason,omitempty"`
	EdgeID           datastructure.EdgeID `json:"edge_id"`
	Offset           float64              `json:"offset"`
	Lat              float64              `json:"lat"`
	Lon              float64              `json:"lon"`
	LogProb          float64              `json:"log_prob"`
}

func (r *MatchResult) Records() []Record {
	records := make([]Record, len(r.Points))
	for i, p := range r.Points {
		rec := Record{
			ObservationIndex: p.ObservationIndex,
			Status:           p.Status.String(),
			Reason:           p.Reason.String(),
			EdgeID:           datastructure.InvalidEdgeID,
		}
		if p.Candidate != nil {
			rec.EdgeID = p.Candidate.EdgeID
			rec.Offset = p.Candidate.Offset
			rec.Lat = p.Candidate.Point.Lat
			rec.Lon = p.Candidate.Point.Lon
			rec.LogProb = p.LogProb
		}
		records[i] = rec
	}
	return records
}

// Geometry polyline jalan yang dilewati path hasil matching, dari candidate pertama sampai terakhir.
func (r *MatchResult) Geometry(mq MapQuery) []datastructure.Coordinate {
	metric := mq.Metric()
	var out []datastructure.Coordinate
	add := func(pts ...datastructure.Coordinate) {
		for _, p := range pts {
			if len(out) > 0 && out[len(out)-1] == p {
				continue
			}
			out = append(out, p)
		}
	}

	var prev *datastructure.Candidate
	for _, p := range r.Points {
		if p.Candidate == nil {
			continue
		}
		if prev == nil || p.Route == nil {
			add(p.Candidate.Point)
			prev = p.Candidate
			continue
		}
		edges := p.Route.Edges
		for i, id := range edges {
			e, ok := mq.Edge(id)
			if !ok {
				continue
			}
			from, to := 0.0, e.Length
			if i == 0 {
				from = prev.Offset
			}
			if i == len(edges)-1 {
				to = p.Candidate.Offset
			}
			if len(edges) == 1 && to < from {
				to = from
			}
			add(edgeSection(metric, e, from, to)...)
		}
		add(p.Candidate.Point)
		prev = p.Candidate
	}
	return out
}

// edgeSection potongan geometry edge antara offset from & to (dalam satuan Length edge).
func edgeSection(metric geo.Metric, e datastructure.Edge, from, to float64) []datastructure.Coordinate {
	geomLen := geo.PolylineLength(metric, e.Geometry)
	scale := 1.0
	if e.Length > 0 {
		scale = geomLen / e.Length
	}
	return geo.SubPolyline(metric, e.Geometry, from*scale, to*scale)
}
