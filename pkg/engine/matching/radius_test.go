package matching_test

import (
	"testing"

	"lintang/mapmatchx/pkg/engine/matching"

	"github.com/stretchr/testify/assert"
)

func TestGeometricRadius(t *testing.T) {
	r := matching.GeometricRadius{InitialRadius: 25, Max: 150, Factor: 2}

	var seq []float64
	for curr, ok := r.Initial(), true; ok; curr, ok = r.Next(curr) {
		seq = append(seq, curr)
	}
	assert.Equal(t, []float64{25, 50, 100, 150}, seq)

	_, ok := matching.GeometricRadius{InitialRadius: 25, Max: 150, Factor: 1}.Next(25)
	assert.False(t, ok)
}

func TestRadiusFromConfig(t *testing.T) {
	cfg := matching.DefaultConfig()
	r := matching.RadiusFromConfig(cfg)
	assert.Equal(t, cfg.InitialSearchRadius, r.Initial())
	assert.Equal(t, cfg.MaxSearchRadius, r.Max)
}
