package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lintang/mapmatchx/pkg/config"
	"lintang/mapmatchx/pkg/engine/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  listen_addr: ":6060"
  workers: 8
log:
  level: debug
map:
  backend: memory
  json_path: ./data/solo.json
  spatial_index: tidwall
matching:
  sigma_z: 5
  beam_width: 4
  avoid_going_back: true
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.Nil(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := config.Load(path)
	require.Nil(t, err)

	assert.Equal(t, ":6060", cfg.Server.ListenAddr)
	assert.Equal(t, 8, cfg.Server.Workers)
	assert.Equal(t, 100, cfg.Server.MaxBatchTraces)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "tidwall", cfg.Map.SpatialIndex)
	assert.Equal(t, 5.0, cfg.Matching.SigmaZ)
	assert.Equal(t, 4, cfg.Matching.BeamWidth)
	assert.True(t, cfg.Matching.AvoidGoingBack)
	assert.Equal(t, matching.DefaultConfig().Beta, cfg.Matching.Beta)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad yaml", "server: [\n"},
		{"unknown backend", "map:\n  backend: postgres\n  json_path: a.json\n"},
		{"memory without source", "map:\n  backend: memory\n"},
		{"kv without path", "map:\n  backend: kv\n"},
		{"bad log level", "log:\n  level: loud\nmap:\n  json_path: a.json\n"},
		{"bad matching", "map:\n  json_path: a.json\nmatching:\n  beta: 0\n"},
		{"zero workers", "server:\n  workers: 0\nmap:\n  json_path: a.json\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, matching.ErrInvalidConfig))
		})
	}
}

func TestParseKV(t *testing.T) {
	cfg, err := config.Parse([]byte("map:\n  backend: kv\n  kv_path: ./mapmatchxDB\n"))
	require.Nil(t, err)
	assert.Equal(t, config.BackendKV, cfg.Map.Backend)
	assert.Equal(t, "./mapmatchxDB", cfg.Map.KVPath)
}
