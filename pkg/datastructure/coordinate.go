package datastructure

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

// IsFinite false kalau salah satu komponen NaN/Inf.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) &&
		!math.IsInf(c.Lat, 0) && !math.IsInf(c.Lon, 0)
}

// IsGeographic true kalau lat/lon ada di rentang WGS84.
func (c Coordinate) IsGeographic() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
