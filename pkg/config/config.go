package config

import (
	"fmt"
	"os"

	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/server"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendKV     = "kv"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Map      MapConfig       `yaml:"map"`
	Matching matching.Config `yaml:"matching"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
	// Workers jumlah goroutine untuk batch matching.
	Workers        int `yaml:"workers" validate:"gte=1"`
	MaxBatchTraces int `yaml:"max_batch_traces" validate:"gte=1"`
	MaxTraceLength int `yaml:"max_trace_length" validate:"gte=1"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type MapConfig struct {
	Backend      string `yaml:"backend" validate:"oneof=memory kv"`
	JSONPath     string `yaml:"json_path"`
	SnapshotPath string `yaml:"snapshot_path"`
	KVPath       string `yaml:"kv_path" validate:"required_if=Backend kv"`
	SpatialIndex string `yaml:"spatial_index" validate:"omitempty,oneof=rtreego tidwall"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:     ":5000",
			Workers:        4,
			MaxBatchTraces: 100,
			MaxTraceLength: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Map: MapConfig{
			Backend:      BackendMemory,
			SpatialIndex: "rtreego",
		},
		Matching: matching.DefaultConfig(),
	}
}

var validate = validator.New()

// Load baca config yaml dari path. field yang tidak ada di file pakai nilai Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, server.WrapErrorf(matching.ErrInvalidConfig, server.ErrInvalidInput, "parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c.Server); err != nil {
		return server.WrapErrorf(matching.ErrInvalidConfig, server.ErrInvalidInput, "server: %v", err)
	}
	if err := validate.Struct(c.Log); err != nil {
		return server.WrapErrorf(matching.ErrInvalidConfig, server.ErrInvalidInput, "log: %v", err)
	}
	if err := validate.Struct(c.Map); err != nil {
		return server.WrapErrorf(matching.ErrInvalidConfig, server.ErrInvalidInput, "map: %v", err)
	}
	if c.Map.Backend == BackendMemory && c.Map.JSONPath == "" && c.Map.SnapshotPath == "" {
		return server.WrapErrorf(matching.ErrInvalidConfig, server.ErrInvalidInput,
			"map: memory backend needs json_path or snapshot_path")
	}
	return c.Matching.Validate()
}
