package matching

import (
	"math"
	"sort"
)

// Pruner nentuin state mana di satu step yang dipertahankan.
// scores[i] skor kumulatif state i, -Inf berarti state mati dan tidak boleh dipertahankan.
type Pruner interface {
	Prune(scores []float64) []bool
	// Widen versi pruner yang lebih longgar, dipakai kalau lattice buntu.
	Widen() Pruner
}

func keepFinite(scores []float64) []bool {
	keep := make([]bool, len(scores))
	for i, s := range scores {
		keep[i] = !math.IsInf(s, -1) && !math.IsNaN(s)
	}
	return keep
}

// NoPruner pertahankan semua state yang masih hidup.
type NoPruner struct{}

func (NoPruner) Prune(scores []float64) []bool { return keepFinite(scores) }

func (p NoPruner) Widen() Pruner { return p }

// BeamPruner pertahankan Width state dengan skor tertinggi. kalau skor sama, slot lebih kecil menang.
type BeamPruner struct {
	Width int
}

func (b BeamPruner) Prune(scores []float64) []bool {
	keep := keepFinite(scores)
	if b.Width <= 0 {
		return keep
	}
	idx := make([]int, 0, len(scores))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	if len(idx) <= b.Width {
		return keep
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	for _, i := range idx[b.Width:] {
		keep[i] = false
	}
	return keep
}

func (b BeamPruner) Widen() Pruner {
	if b.Width <= 0 {
		return b
	}
	return BeamPruner{Width: b.Width * 2}
}

// MarginPruner buang state yang skornya lebih rendah dari skor terbaik - Margin.
type MarginPruner struct {
	Margin float64
}

func (m MarginPruner) Prune(scores []float64) []bool {
	keep := keepFinite(scores)
	best := math.Inf(-1)
	for i, s := range scores {
		if keep[i] && s > best {
			best = s
		}
	}
	for i, s := range scores {
		if keep[i] && s < best-m.Margin {
			keep[i] = false
		}
	}
	return keep
}

func (m MarginPruner) Widen() Pruner {
	return MarginPruner{Margin: m.Margin * 2}
}

// ChainPruner state dipertahankan kalau semua pruner setuju.
type ChainPruner []Pruner

func (c ChainPruner) Prune(scores []float64) []bool {
	keep := keepFinite(scores)
	for _, p := range c {
		k := p.Prune(scores)
		for i := range keep {
			keep[i] = keep[i] && k[i]
		}
	}
	return keep
}

func (c ChainPruner) Widen() Pruner {
	w := make(ChainPruner, len(c))
	for i, p := range c {
		w[i] = p.Widen()
	}
	return w
}

// PrunerFromConfig beam + margin sesuai config. NoPruner kalau dua-duanya mati.
func PrunerFromConfig(cfg Config) Pruner {
	chain := ChainPruner{}
	if cfg.BeamWidth > 0 {
		chain = append(chain, BeamPruner{Width: cfg.BeamWidth})
	}
	if cfg.PruningMargin > 0 {
		chain = append(chain, MarginPruner{Margin: cfg.PruningMargin})
	}
	switch len(chain) {
	case 0:
		return NoPruner{}
	case 1:
		return chain[0]
	}
	return chain
}
