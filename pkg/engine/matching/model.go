package matching

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// TransitionInput data satu transisi antar candidate di dua step berurutan.
type TransitionInput struct {
	RouteDistance float64
	// DirectDistance great-circle distance antar observation (diakumulasi kalau ada observation yang di-skip).
	DirectDistance float64
	Elapsed        time.Duration
	// NonEmitting jumlah node yang dilewati route.
	NonEmitting int
	GoingBack   bool
}

// Model emission & transition dalam log-space. -Inf = tidak mungkin.
// implementasi harus pure: input sama harus selalu kasih output sama.
type Model interface {
	EmissionLogProb(dist float64) float64
	TransitionLogProb(in TransitionInput) float64
	// SkipLogProb penalti untuk setiap observation yang tidak masuk path (gap atau unmatched). harus finite.
	SkipLogProb() float64
	// MaxTransitionLogProb batas atas TransitionLogProb untuk input apapun.
	MaxTransitionLogProb() float64
}

/*
HMMModel model Newson & Krumm, "Hidden Markov Map Matching Through Noise and Sparseness".
emission: gaussian zero-mean atas jarak observation ke candidate.
transition: exponential atas |route distance - great circle distance|.
route yang lebih pendek dari great circle sampai 2*sigmaZ dianggap noise dan tidak dipenalti.
observation yang di-skip kena penalti emission di radius maksimum + transisi dengan detour sejauh max route search distance.

nilai yang dikembalikan log-density, bukan log-probability, jadi bisa > 0 kalau sigma/beta kecil.
*/
type HMMModel struct {
	sigmaZ             float64
	beta               float64
	maxSpeed           float64
	nonEmittingPenalty float64
	goingBackPenalty   float64
	skip               float64

	emission   distuv.Normal
	transition distuv.Exponential
}

func NewHMMModel(cfg Config) *HMMModel {
	m := &HMMModel{
		sigmaZ:             cfg.SigmaZ,
		beta:               cfg.Beta,
		maxSpeed:           cfg.MaxSpeed,
		nonEmittingPenalty: cfg.NonEmittingPenalty,
		goingBackPenalty:   cfg.GoingBackPenalty,
		emission:           distuv.Normal{Mu: 0, Sigma: cfg.SigmaZ},
		transition:         distuv.Exponential{Rate: 1 / cfg.Beta},
	}
	m.skip = m.emission.LogProb(cfg.MaxSearchRadius) + m.transition.LogProb(cfg.MaxRouteSearchDistance)
	return m
}

func (m *HMMModel) EmissionLogProb(dist float64) float64 {
	return m.emission.LogProb(dist)
}

func (m *HMMModel) TransitionLogProb(in TransitionInput) float64 {
	if math.IsNaN(in.RouteDistance) || math.IsInf(in.RouteDistance, 0) {
		return math.Inf(-1)
	}
	if m.maxSpeed > 0 && in.Elapsed > 0 && in.RouteDistance/in.Elapsed.Seconds() > m.maxSpeed {
		return math.Inf(-1)
	}

	detour := in.RouteDistance - in.DirectDistance
	if detour < 0 {
		// route lebih pendek dari great circle, cuma dipenalti kalau selisihnya lebih dari 2 sigma.
		detour = math.Max(0, -detour-2*m.sigmaZ)
	}

	lp := m.transition.LogProb(detour)
	lp -= m.nonEmittingPenalty * float64(in.NonEmitting)
	if in.GoingBack {
		lp -= m.goingBackPenalty
	}
	return lp
}

func (m *HMMModel) SkipLogProb() float64 {
	return m.skip
}

// MaxTransitionLogProb density exponential di detour 0, penalti lain cuma mengurangi.
func (m *HMMModel) MaxTransitionLogProb() float64 {
	return m.transition.LogProb(0)
}
