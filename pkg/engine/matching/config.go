package matching

import (
	"lintang/mapmatchx/pkg/server"

	"github.com/go-playground/validator/v10"
)

// Config parameter matcher. jarak dalam satuan metric MapQuery (meter untuk haversine).
type Config struct {
	InitialSearchRadius float64 `yaml:"initial_search_radius" validate:"gt=0"`
	MaxSearchRadius     float64 `yaml:"max_search_radius" validate:"gtefield=InitialSearchRadius"`
	RadiusGrowthFactor  float64 `yaml:"radius_growth_factor" validate:"gt=1"`

	// BeamWidth 0 = tanpa batas jumlah state per step.
	BeamWidth int `yaml:"beam_width" validate:"gte=0"`
	// PruningMargin 0 = margin pruning mati.
	PruningMargin float64 `yaml:"pruning_margin" validate:"gte=0"`

	MaxRouteSearchDistance float64 `yaml:"max_route_search_distance" validate:"gt=0"`
	MaxRouteExpansions     int     `yaml:"max_route_expansions" validate:"gte=0"`

	SigmaZ float64 `yaml:"sigma_z" validate:"gt=0"`
	Beta   float64 `yaml:"beta" validate:"gt=0"`

	// MaxSpeed (satuan jarak per detik). 0 = tidak dicek.
	MaxSpeed           float64 `yaml:"max_speed" validate:"gte=0"`
	NonEmittingPenalty float64 `yaml:"non_emitting_penalty" validate:"gte=0"`
	AvoidGoingBack     bool    `yaml:"avoid_going_back"`
	GoingBackPenalty   float64 `yaml:"going_back_penalty" validate:"gte=0"`
	NodeSnapDistance   float64 `yaml:"node_snap_distance" validate:"gte=0"`

	// MaxCandidates 0 = semua edge dalam radius dipakai.
	MaxCandidates int `yaml:"max_candidates" validate:"gte=0"`
	// MaxSkippedObservations jumlah observation berturut-turut yang boleh di-skip sebelum matching berhenti. 0 = tanpa batas.
	MaxSkippedObservations int `yaml:"max_skipped_observations" validate:"gte=0"`
	Alternatives           int `yaml:"alternatives" validate:"gte=0"`
	MaxLatticeWidthRetries int `yaml:"max_lattice_width_retries" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		InitialSearchRadius:    50,
		MaxSearchRadius:        200,
		RadiusGrowthFactor:     2,
		BeamWidth:              10,
		PruningMargin:          0,
		MaxRouteSearchDistance: 2000,
		MaxRouteExpansions:     5000,
		SigmaZ:                 4.07,
		Beta:                   3,
		MaxSpeed:               0,
		NonEmittingPenalty:     0,
		AvoidGoingBack:         false,
		GoingBackPenalty:       5,
		NodeSnapDistance:       0,
		MaxCandidates:          8,
		MaxSkippedObservations: 10,
		Alternatives:           0,
		MaxLatticeWidthRetries: 1,
	}
}

var configValidator = validator.New()

func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return server.WrapErrorf(ErrInvalidConfig, server.ErrInvalidInput, "%v", err)
	}
	return nil
}
