package matching

import (
	"context"
	"math"
	"time"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/routingalgorithm"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/server"

	"go.uber.org/zap"
)

type pointState struct {
	status     Status
	reason     Reason
	step       int
	radius     float64
	candidates int
}

/*
Matcher hmm map matcher (viterbi) dengan lattice yang tumbuh per observation.
setiap observation yang punya candidate & transisi feasible jadi satu step lattice.
state di step baru boleh disambung ke step manapun dalam MaxSkippedObservations terakhir,
dengan jarak great-circle yang diakumulasi dan penalti SkipLogProb per observation yang dilewati.
jadi skip observation bagian dari path yang dioptimasi viterbi, bukan keputusan greedy,
dan pruning yang lebih ketat tidak pernah menghasilkan skor lebih tinggi dari search tanpa pruning.

Matcher tidak goroutine-safe. buat matching paralel pakai satu Matcher per goroutine (lihat MatchBatch).
*/
type Matcher struct {
	mq     MapQuery
	metric geo.Metric
	cfg    Config
	model  Model
	pruner Pruner
	radius RadiusPolicy
	search *routingalgorithm.LocalSearch
	log    *zap.Logger

	obs    []datastructure.Observation
	points []pointState
	// cum jarak great-circle kumulatif dari observation pertama.
	cum       []float64
	lat       lattice
	skipped   int
	exhausted bool
}

type Option func(*Matcher)

func WithLogger(log *zap.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

func WithPruner(p Pruner) Option {
	return func(m *Matcher) {
		if p != nil {
			m.pruner = p
		}
	}
}

func WithRadiusPolicy(r RadiusPolicy) Option {
	return func(m *Matcher) {
		if r != nil {
			m.radius = r
		}
	}
}

func WithModel(model Model) Option {
	return func(m *Matcher) {
		if model != nil {
			m.model = model
		}
	}
}

func NewMatcher(mq MapQuery, cfg Config, opts ...Option) (*Matcher, error) {
	if mq == nil || mq.Metric() == nil {
		return nil, server.WrapErrorf(ErrMapContractViolation, server.ErrInvalidInput, "map query is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{
		mq:     mq,
		metric: mq.Metric(),
		cfg:    cfg,
		model:  NewHMMModel(cfg),
		pruner: PrunerFromConfig(cfg),
		radius: RadiusFromConfig(cfg),
		search: routingalgorithm.NewLocalSearch(mq, cfg.MaxRouteSearchDistance, cfg.MaxRouteExpansions),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Matcher) Config() Config {
	return m.cfg
}

// Reset buang semua state trace sebelumnya.
func (m *Matcher) Reset() {
	m.obs = m.obs[:0]
	m.points = m.points[:0]
	m.cum = m.cum[:0]
	m.lat.reset()
	m.skipped = 0
	m.exhausted = false
}

// Match map matching satu trace penuh. semua observation divalidasi & dicarikan candidate
// lebih dulu, jadi input tidak valid selalu gagal sebelum lattice dibangun.
func (m *Matcher) Match(ctx context.Context, obs []datastructure.Observation) (*MatchResult, error) {
	m.Reset()

	for i := range obs {
		var prev *datastructure.Observation
		if i > 0 {
			prev = &obs[i-1]
		}
		if err := m.validateObservation(prev, obs[i]); err != nil {
			return nil, err
		}
	}

	cands := make([][]candidate, len(obs))
	radii := make([]float64, len(obs))
	for i, o := range obs {
		c, r, err := m.findCandidates(o)
		if err != nil {
			return nil, err
		}
		cands[i] = c
		radii[i] = r
	}

	for i, o := range obs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.push(o, cands[i], radii[i])
	}

	res := m.Result()
	m.log.Debug("trace matched",
		zap.Int("observations", len(obs)),
		zap.Int("matched", res.MatchedCount()),
		zap.Bool("partial", res.Partial),
		zap.Float64("log_prob", res.LogProb))
	return res, nil
}

// Push tambah satu observation ke lattice (mode incremental). hasil sementara bisa diambil lewat Result.
func (m *Matcher) Push(ctx context.Context, o datastructure.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var prev *datastructure.Observation
	if len(m.obs) > 0 {
		prev = &m.obs[len(m.obs)-1]
	}
	if err := m.validateObservation(prev, o); err != nil {
		return err
	}
	cands, radius, err := m.findCandidates(o)
	if err != nil {
		return err
	}
	m.push(o, cands, radius)
	return nil
}

func (m *Matcher) validateObservation(prev *datastructure.Observation, o datastructure.Observation) error {
	if !o.Coord.IsFinite() {
		return server.WrapErrorf(ErrInvalidObservations, server.ErrInvalidInput,
			"observation %d has non-finite coordinate", o.Index)
	}
	if _, ok := m.metric.(geo.Haversine); ok && !o.Coord.IsGeographic() {
		return server.WrapErrorf(ErrInvalidObservations, server.ErrInvalidInput,
			"observation %d coordinate (%f, %f) out of range", o.Index, o.Coord.Lat, o.Coord.Lon)
	}
	if prev == nil {
		return nil
	}
	if o.Index <= prev.Index {
		return server.WrapErrorf(ErrInvalidObservations, server.ErrInvalidInput,
			"observation index %d after %d is not increasing", o.Index, prev.Index)
	}
	if prev.HasTime() && o.HasTime() && o.Time.Before(prev.Time) {
		return server.WrapErrorf(ErrInvalidObservations, server.ErrInvalidInput,
			"observation %d timestamp goes backwards", o.Index)
	}
	return nil
}

func (m *Matcher) push(o datastructure.Observation, cands []candidate, radius float64) {
	pos := len(m.obs)
	dist := 0.0
	if pos > 0 {
		dist = m.cum[pos-1] + m.metric.Distance(m.obs[pos-1].Coord, o.Coord)
	}
	m.obs = append(m.obs, o)
	m.cum = append(m.cum, dist)
	ps := pointState{step: -1, radius: radius, candidates: len(cands)}

	switch {
	case m.exhausted:
		ps.status, ps.reason = StatusUnmatched, ReasonLatticeExhausted
	case m.lat.empty():
		if m.start(pos, cands) {
			ps.status, ps.step = StatusMatched, len(m.lat.steps)-1
		} else {
			ps.status, ps.reason = StatusUnmatched, ReasonNoCandidates
		}
	case len(cands) == 0:
		ps.status, ps.reason = StatusGap, ReasonNoCandidates
		m.skipped++
	default:
		if m.extend(pos, cands) {
			ps.status, ps.step = StatusMatched, len(m.lat.steps)-1
			m.skipped = 0
		} else {
			ps.status, ps.reason = StatusGap, ReasonInfeasibleTransition
			m.skipped++
		}
	}
	m.points = append(m.points, ps)

	if ps.status == StatusGap {
		m.log.Debug("observation skipped",
			zap.Int("index", o.Index),
			zap.String("reason", ps.reason.String()),
			zap.Float64("radius", radius))
		if m.cfg.MaxSkippedObservations > 0 && m.skipped > m.cfg.MaxSkippedObservations {
			m.exhaust()
		}
	}
}

// start bikin step pertama dari emission candidate. observation sebelumnya sudah pasti unmatched.
func (m *Matcher) start(pos int, cands []candidate) bool {
	if len(cands) == 0 {
		return false
	}
	leading := m.model.SkipLogProb() * float64(pos)
	step := latticeStep{obsPos: pos, nodes: make([]latticeNode, len(cands))}
	for i, c := range cands {
		step.nodes[i] = latticeNode{cand: c, score: leading + c.emission, prevStep: -1, prev: -1}
	}
	step.applyPruner(m.pruner)
	if !step.anyAlive() {
		return false
	}
	m.lat.steps = append(m.lat.steps, step)
	return true
}

// extend sambung candidate observation pos ke step-step sebelumnya. kalau tidak ada transisi feasible,
// state yang sudah di-prune di step-step itu dihidupkan lagi dengan pruner yang lebih longgar.
func (m *Matcher) extend(pos int, cands []candidate) bool {
	preds := m.predecessors(pos)
	step := latticeStep{obsPos: pos, nodes: m.expand(preds, pos, cands)}

	if !step.anyAlive() && m.cfg.MaxLatticeWidthRetries > 0 {
		saved := make([][]bool, len(preds))
		for i, si := range preds {
			nodes := m.lat.steps[si].nodes
			saved[i] = make([]bool, len(nodes))
			for j, n := range nodes {
				saved[i][j] = n.alive
			}
		}
		pruner := m.pruner
		for retry := 0; retry < m.cfg.MaxLatticeWidthRetries && !step.anyAlive(); retry++ {
			pruner = pruner.Widen()
			revived := false
			for _, si := range preds {
				if m.revive(&m.lat.steps[si], pruner) {
					revived = true
				}
			}
			if !revived {
				break
			}
			step.nodes = m.expand(preds, pos, cands)
			m.log.Debug("lattice widened",
				zap.Int("index", m.obs[pos].Index),
				zap.Int("retry", retry+1),
				zap.Bool("recovered", step.anyAlive()))
		}
		if !step.anyAlive() {
			for i, si := range preds {
				nodes := m.lat.steps[si].nodes
				for j := range nodes {
					nodes[j].alive = saved[i][j]
				}
			}
		}
	}
	if !step.anyAlive() {
		return false
	}

	step.applyPruner(m.pruner)
	m.lat.steps = append(m.lat.steps, step)
	return true
}

// predecessors step yang boleh jadi predecessor observation pos, step terbaru dulu.
func (m *Matcher) predecessors(pos int) []int {
	preds := make([]int, 0, 1)
	for i := len(m.lat.steps) - 1; i >= 0; i-- {
		skipped := pos - m.lat.steps[i].obsPos - 1
		if m.cfg.MaxSkippedObservations > 0 && skipped > m.cfg.MaxSkippedObservations {
			break
		}
		preds = append(preds, i)
	}
	return preds
}

// revive hidupkan lagi state yang lolos pruner p. false kalau tidak ada state baru.
func (m *Matcher) revive(s *latticeStep, p Pruner) bool {
	keep := p.Prune(s.scores())
	changed := false
	for i := range s.nodes {
		if keep[i] && !s.nodes[i].alive {
			s.nodes[i].alive = true
			changed = true
		}
	}
	return changed
}

// expand hitung skor viterbi setiap candidate dari semua state alive di step-step preds.
// predecessor dengan skor sama: step terbaru lalu slot terkecil menang.
func (m *Matcher) expand(preds []int, pos int, cands []candidate) []latticeNode {
	nodes := make([]latticeNode, len(cands))
	for k, c := range cands {
		nodes[k] = latticeNode{cand: c, score: math.Inf(-1), prevStep: -1, prev: -1}
	}

	o := m.obs[pos]
	maxTransition := m.model.MaxTransitionLogProb()
	targets := make([]datastructure.Candidate, 0, len(cands))
	idx := make([]int, 0, len(cands))

	for _, si := range preds {
		prev := &m.lat.steps[si]
		prevObs := m.obs[prev.obsPos]

		spanned := pos - prev.obsPos
		skipCost := m.model.SkipLogProb() * float64(spanned-1)
		bound := m.cfg.MaxRouteSearchDistance * float64(spanned)
		direct := m.cum[pos] - m.cum[prev.obsPos]
		var elapsed time.Duration
		if prevObs.HasTime() && o.HasTime() {
			elapsed = o.Time.Sub(prevObs.Time)
		}

		for p := range prev.nodes {
			pn := &prev.nodes[p]
			if !pn.alive {
				continue
			}
			// target yang skornya tidak mungkin naik lewat pn tidak perlu dicari route-nya.
			upper := pn.score + skipCost + maxTransition
			targets, idx = targets[:0], idx[:0]
			for k := range cands {
				if upper+cands[k].emission > nodes[k].score {
					targets = append(targets, cands[k].Candidate)
					idx = append(idx, k)
				}
			}
			if len(targets) == 0 {
				continue
			}

			routes := m.search.SearchMany(pn.cand.Candidate, targets, bound)
			for j, rt := range routes {
				if !rt.Feasible {
					continue
				}
				k := idx[j]
				tr := m.model.TransitionLogProb(TransitionInput{
					RouteDistance:  rt.Distance,
					DirectDistance: direct,
					Elapsed:        elapsed,
					NonEmitting:    len(rt.Nodes),
					GoingBack:      m.cfg.AvoidGoingBack && m.isGoingBack(rt),
				})
				if math.IsInf(tr, -1) || math.IsNaN(tr) {
					continue
				}
				s := pn.score + skipCost + tr + cands[k].emission
				if s > nodes[k].score {
					nodes[k].score = s
					nodes[k].prevStep = si
					nodes[k].prev = p
					nodes[k].route = rt
				}
			}
		}
	}

	for k := range nodes {
		nodes[k].alive = !math.IsInf(nodes[k].score, -1) && !math.IsNaN(nodes[k].score)
	}
	return nodes
}

// isGoingBack true kalau route langsung putar balik ke edge kembaran arah sebaliknya.
func (m *Matcher) isGoingBack(rt datastructure.Route) bool {
	for i := 1; i < len(rt.Edges); i++ {
		a, okA := m.mq.Edge(rt.Edges[i-1])
		b, okB := m.mq.Edge(rt.Edges[i])
		if okA && okB && a.ID != b.ID && b.IsReverseOf(a) {
			return true
		}
	}
	return false
}

// exhaust hentikan matching: observation setelah step terakhir jadi unmatched.
func (m *Matcher) exhaust() {
	m.exhausted = true
	from := 0
	if !m.lat.empty() {
		from = m.lat.last().obsPos + 1
	}
	for i := from; i < len(m.points); i++ {
		m.points[i].status = StatusUnmatched
		m.points[i].reason = ReasonLatticeExhausted
	}
	m.log.Warn("lattice exhausted",
		zap.Int("skipped", m.skipped),
		zap.Int("max_skipped", m.cfg.MaxSkippedObservations),
		zap.Int("matched_steps", len(m.lat.steps)))
}
