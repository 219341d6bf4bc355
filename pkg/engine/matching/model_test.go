package matching_test

import (
	"math"
	"testing"
	"time"

	"lintang/mapmatchx/pkg/engine/matching"

	"github.com/stretchr/testify/assert"
)

func TestHMMModelEmission(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.SigmaZ = 4
	m := matching.NewHMMModel(cfg)

	want := -math.Log(4 * math.Sqrt(2*math.Pi))
	assert.InDelta(t, want, m.EmissionLogProb(0), 1e-12)
	assert.InDelta(t, want-0.5, m.EmissionLogProb(4), 1e-12)
	assert.Greater(t, m.EmissionLogProb(1), m.EmissionLogProb(2))
}

func TestHMMModelTransition(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.SigmaZ = 4
	cfg.Beta = 2
	m := matching.NewHMMModel(cfg)
	base := -math.Log(2)

	tests := []struct {
		name string
		in   matching.TransitionInput
		want float64
	}{
		{"no detour", matching.TransitionInput{RouteDistance: 100, DirectDistance: 100}, base},
		{"detour", matching.TransitionInput{RouteDistance: 110, DirectDistance: 100}, base - 5},
		{"shorter within noise", matching.TransitionInput{RouteDistance: 95, DirectDistance: 100}, base},
		{"shorter beyond noise", matching.TransitionInput{RouteDistance: 80, DirectDistance: 100}, base - 6},
		{"infinite route", matching.TransitionInput{RouteDistance: math.Inf(1), DirectDistance: 100}, math.Inf(-1)},
		{"nan route", matching.TransitionInput{RouteDistance: math.NaN(), DirectDistance: 100}, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.TransitionLogProb(tt.in)
			if math.IsInf(tt.want, -1) {
				assert.True(t, math.IsInf(got, -1))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestHMMModelPenalties(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.Beta = 1
	cfg.NonEmittingPenalty = 0.5
	cfg.GoingBackPenalty = 3
	cfg.MaxSpeed = 10
	m := matching.NewHMMModel(cfg)

	in := matching.TransitionInput{RouteDistance: 50, DirectDistance: 50}
	assert.InDelta(t, 0.0, m.TransitionLogProb(in), 1e-12)

	in.NonEmitting = 4
	assert.InDelta(t, -2.0, m.TransitionLogProb(in), 1e-12)

	in.GoingBack = true
	assert.InDelta(t, -5.0, m.TransitionLogProb(in), 1e-12)

	in.Elapsed = 10 * time.Second
	assert.InDelta(t, -5.0, m.TransitionLogProb(in), 1e-12)

	in.Elapsed = 2 * time.Second
	assert.True(t, math.IsInf(m.TransitionLogProb(in), -1))
}

func TestHMMModelSkip(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.SigmaZ = 4
	cfg.Beta = 2
	cfg.MaxSearchRadius = 20
	cfg.MaxRouteSearchDistance = 100
	m := matching.NewHMMModel(cfg)

	assert.InDelta(t, m.EmissionLogProb(20)+(-math.Log(2)-50), m.SkipLogProb(), 1e-12)
	assert.InDelta(t, -math.Log(2), m.MaxTransitionLogProb(), 1e-12)

	for _, in := range []matching.TransitionInput{
		{RouteDistance: 100, DirectDistance: 100},
		{RouteDistance: 80, DirectDistance: 100},
		{RouteDistance: 300, DirectDistance: 100, NonEmitting: 3, GoingBack: true},
	} {
		assert.LessOrEqual(t, m.TransitionLogProb(in), m.MaxTransitionLogProb())
	}
}
