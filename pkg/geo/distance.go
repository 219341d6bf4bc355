package geo

import "math"

// haversine distance
const earthRadiusM = 6371000.0

type Location struct {
	Latitude  float64
	Longitude float64
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

// NewLocation lat/lon dalam derajat, disimpan dalam radian.
func NewLocation(latDegree float64, lonDegree float64) Location {
	return Location{
		Latitude:  degreeToRadians(latDegree),
		Longitude: degreeToRadians(lonDegree),
	}
}

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func havFormula(locationOne Location, locationTwo Location) float64 {
	latitudeDiff := locationOne.Latitude - locationTwo.Latitude
	longitudeDiff := locationOne.Longitude - locationTwo.Longitude

	havLatitude := havFunction(latitudeDiff)
	havLongitude := havFunction(longitudeDiff)

	return havLatitude + math.Cos(locationOne.Latitude)*math.Cos(locationTwo.Latitude)*havLongitude
}

func archavFunction(hav float64) float64 {
	if hav > 1 {
		hav = 1
	}
	return 2 * math.Asin(math.Sqrt(hav))
}

// HaversineDistance great-circle distance dalam meter.
func HaversineDistance(locationOne Location, locationTwo Location) float64 {
	return earthRadiusM * archavFunction(havFormula(locationOne, locationTwo))
}

// EuclideanDistance jarak planar antara (x1,y1) dan (x2,y2).
func EuclideanDistance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
