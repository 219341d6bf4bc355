package geo

import (
	"math"

	"lintang/mapmatchx/pkg/datastructure"

	"github.com/golang/geo/s2"
)

// Metric cara ngukur jarak & proyeksi di satu coordinate system.
// Semua jarak yang dipakai matcher (emission, route, great-circle) harus dari Metric yang sama.
type Metric interface {
	Name() string
	Distance(a, b datastructure.Coordinate) float64
	// Project proyeksi p ke segment a-b. frac posisi proyeksi di segment (0 = a, 1 = b).
	Project(p, a, b datastructure.Coordinate) (proj datastructure.Coordinate, frac float64)
	Interpolate(a, b datastructure.Coordinate, frac float64) datastructure.Coordinate
	// Boxes bounding box yang mencakup semua titik dalam radius r dari p.
	// bisa lebih dari satu kalau radius melewati batas koordinat (antimeridian).
	Boxes(p datastructure.Coordinate, r float64) []datastructure.BoundingBox
}

func MetricByName(name string) (Metric, bool) {
	switch name {
	case "haversine", "":
		return Haversine{}, true
	case "euclidean":
		return Euclidean{}, true
	}
	return nil, false
}

// Haversine metric buat koordinat WGS84 (derajat), jarak dalam meter.
type Haversine struct{}

func (Haversine) Name() string { return "haversine" }

func (Haversine) Distance(a, b datastructure.Coordinate) float64 {
	return HaversineDistance(NewLocation(a.Lat, a.Lon), NewLocation(b.Lat, b.Lon))
}

func toS2(c datastructure.Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

func fromS2(p s2.Point) datastructure.Coordinate {
	ll := s2.LatLngFromPoint(p)
	return datastructure.NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

func (h Haversine) Project(p, a, b datastructure.Coordinate) (datastructure.Coordinate, float64) {
	segLen := h.Distance(a, b)
	if segLen == 0 {
		return a, 0
	}
	proj := fromS2(s2.Project(toS2(p), toS2(a), toS2(b)))
	frac := h.Distance(a, proj) / segLen
	return proj, clamp01(frac)
}

func (Haversine) Interpolate(a, b datastructure.Coordinate, frac float64) datastructure.Coordinate {
	if frac <= 0 {
		return a
	}
	if frac >= 1 {
		return b
	}
	return fromS2(s2.Interpolate(frac, toS2(a), toS2(b)))
}

// Boxes di dekat antimeridian box dipecah dua: sisi barat +180 dan sisi timur -180.
func (Haversine) Boxes(p datastructure.Coordinate, r float64) []datastructure.BoundingBox {
	dLat := r / earthRadiusM * 180 / math.Pi
	cos := math.Cos(degreeToRadians(p.Lat))
	if cos < 1e-6 {
		cos = 1e-6
	}
	dLon := dLat / cos
	minLat, maxLat := math.Max(p.Lat-dLat, -90), math.Min(p.Lat+dLat, 90)
	minLon, maxLon := p.Lon-dLon, p.Lon+dLon

	box := func(lo, hi float64) datastructure.BoundingBox {
		return datastructure.BoundingBox{
			Min: datastructure.NewCoordinate(minLat, lo),
			Max: datastructure.NewCoordinate(maxLat, hi),
		}
	}
	switch {
	case dLon >= 180:
		return []datastructure.BoundingBox{box(-180, 180)}
	case minLon < -180:
		return []datastructure.BoundingBox{box(-180, maxLon), box(minLon+360, 180)}
	case maxLon > 180:
		return []datastructure.BoundingBox{box(minLon, 180), box(-180, maxLon-360)}
	}
	return []datastructure.BoundingBox{box(minLon, maxLon)}
}

// Euclidean metric planar, Lon = x dan Lat = y. Dipakai buat projected map & test.
type Euclidean struct{}

func (Euclidean) Name() string { return "euclidean" }

func (Euclidean) Distance(a, b datastructure.Coordinate) float64 {
	return EuclideanDistance(a.Lon, a.Lat, b.Lon, b.Lat)
}

func (Euclidean) Project(p, a, b datastructure.Coordinate) (datastructure.Coordinate, float64) {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a, 0
	}
	t := clamp01(((p.Lon-a.Lon)*dx + (p.Lat-a.Lat)*dy) / l2)
	return datastructure.NewCoordinate(a.Lat+t*dy, a.Lon+t*dx), t
}

func (Euclidean) Interpolate(a, b datastructure.Coordinate, frac float64) datastructure.Coordinate {
	frac = clamp01(frac)
	return datastructure.NewCoordinate(a.Lat+frac*(b.Lat-a.Lat), a.Lon+frac*(b.Lon-a.Lon))
}

func (Euclidean) Boxes(p datastructure.Coordinate, r float64) []datastructure.BoundingBox {
	return []datastructure.BoundingBox{{
		Min: datastructure.NewCoordinate(p.Lat-r, p.Lon-r),
		Max: datastructure.NewCoordinate(p.Lat+r, p.Lon+r),
	}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
