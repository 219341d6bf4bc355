package matching_test

import (
	"errors"
	"testing"

	"lintang/mapmatchx/pkg/engine/matching"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigValid(t *testing.T) {
	assert.Nil(t, matching.DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *matching.Config)
	}{
		{"zero radius", func(c *matching.Config) { c.InitialSearchRadius = 0 }},
		{"max radius below initial", func(c *matching.Config) { c.MaxSearchRadius = c.InitialSearchRadius - 1 }},
		{"growth factor", func(c *matching.Config) { c.RadiusGrowthFactor = 1 }},
		{"negative beam", func(c *matching.Config) { c.BeamWidth = -1 }},
		{"zero sigma", func(c *matching.Config) { c.SigmaZ = 0 }},
		{"zero beta", func(c *matching.Config) { c.Beta = 0 }},
		{"route distance", func(c *matching.Config) { c.MaxRouteSearchDistance = 0 }},
		{"negative skipped", func(c *matching.Config) { c.MaxSkippedObservations = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := matching.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, matching.ErrInvalidConfig))
		})
	}
}

func TestConfigYAML(t *testing.T) {
	cfg := matching.DefaultConfig()
	err := yaml.Unmarshal([]byte("sigma_z: 10\nbeam_width: 3\navoid_going_back: true\n"), &cfg)
	assert.Nil(t, err)
	assert.Equal(t, 10.0, cfg.SigmaZ)
	assert.Equal(t, 3, cfg.BeamWidth)
	assert.True(t, cfg.AvoidGoingBack)
	assert.Equal(t, matching.DefaultConfig().Beta, cfg.Beta)
}
