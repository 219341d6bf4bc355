package matching

import (
	"math"
	"sort"

	"lintang/mapmatchx/pkg/datastructure"
)

// latticeNode satu state hmm. predecessor ada di step prevStep slot prev (-1 kalau state awal).
// prevStep tidak harus step tepat sebelumnya: observation di antaranya di-skip dan kena SkipLogProb.
// node yang di-prune tetap disimpan supaya backtrack & retry tetap bisa jalan.
type latticeNode struct {
	cand     candidate
	score    float64
	prevStep int
	prev     int
	// route dari state predecessor ke state ini, termasuk node-node non-emitting.
	route datastructure.Route
	alive bool
}

// latticeStep semua state untuk satu observation yang berhasil di-match.
type latticeStep struct {
	obsPos int
	nodes  []latticeNode
}

type lattice struct {
	steps []latticeStep
}

func (l *lattice) reset() {
	l.steps = l.steps[:0]
}

func (l *lattice) empty() bool {
	return len(l.steps) == 0
}

func (l *lattice) last() *latticeStep {
	return &l.steps[len(l.steps)-1]
}

func (s *latticeStep) scores() []float64 {
	scores := make([]float64, len(s.nodes))
	for i, n := range s.nodes {
		scores[i] = n.score
	}
	return scores
}

// applyPruner set flag alive sesuai pruner.
func (s *latticeStep) applyPruner(p Pruner) {
	keep := p.Prune(s.scores())
	for i := range s.nodes {
		s.nodes[i].alive = keep[i]
	}
}

func (s *latticeStep) anyAlive() bool {
	for _, n := range s.nodes {
		if n.alive {
			return true
		}
	}
	return false
}

// best slot dengan skor tertinggi di antara state yang alive. skor sama: slot terkecil.
func (s *latticeStep) best() (int, bool) {
	bestSlot := -1
	bestScore := math.Inf(-1)
	for i, n := range s.nodes {
		if !n.alive {
			continue
		}
		if bestSlot < 0 || n.score > bestScore {
			bestSlot = i
			bestScore = n.score
		}
	}
	return bestSlot, bestSlot >= 0
}

// ranked slot state dengan skor finite, urut skor menurun.
func (s *latticeStep) ranked() []int {
	idx := make([]int, 0, len(s.nodes))
	for i, n := range s.nodes {
		if !math.IsInf(n.score, -1) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return s.nodes[idx[i]].score > s.nodes[idx[j]].score
	})
	return idx
}

// chainLink satu state di path terpilih.
type chainLink struct {
	step int
	slot int
}

// end state akhir path terbaik. observation setelah step akhir dihitung skip,
// jadi skornya skor state + skip*(jumlah observation sisanya). skor sama: step lebih akhir menang.
func (l *lattice) end(observations int, skip float64) (chainLink, float64, bool) {
	found := false
	var bestLink chainLink
	bestScore := math.Inf(-1)
	for i := len(l.steps) - 1; i >= 0; i-- {
		slot, ok := l.steps[i].best()
		if !ok {
			continue
		}
		trailing := observations - 1 - l.steps[i].obsPos
		score := l.steps[i].nodes[slot].score + skip*float64(trailing)
		if !found || score > bestScore {
			found = true
			bestLink = chainLink{step: i, slot: slot}
			bestScore = score
		}
	}
	return bestLink, bestScore, found
}

// backtrack state-state path terpilih dari state awal sampai last.
func (l *lattice) backtrack(last chainLink) []chainLink {
	var chain []chainLink
	for link := last; link.slot >= 0; {
		chain = append(chain, link)
		n := l.steps[link.step].nodes[link.slot]
		link = chainLink{step: n.prevStep, slot: n.prev}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
