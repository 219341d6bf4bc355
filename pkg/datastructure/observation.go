package datastructure

import "time"

// Observation satu titik GPS noisy. Index harus naik strictly di dalam satu trace.
type Observation struct {
	Index int        `json:"index"`
	Coord Coordinate `json:"coord"`
	Time  time.Time  `json:"time,omitempty"`
}

func NewObservation(index int, lat, lon float64) Observation {
	return Observation{
		Index: index,
		Coord: NewCoordinate(lat, lon),
	}
}

func (o Observation) HasTime() bool {
	return !o.Time.IsZero()
}
