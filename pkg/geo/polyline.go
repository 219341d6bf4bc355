package geo

import (
	"lintang/mapmatchx/pkg/datastructure"
)

// PolylineLength panjang total polyline menurut metric m.
func PolylineLength(m Metric, pts []datastructure.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += m.Distance(pts[i-1], pts[i])
	}
	return total
}

// PointToSegmentDistance jarak p ke segment a-b.
func PointToSegmentDistance(m Metric, p, a, b datastructure.Coordinate) float64 {
	proj, _ := m.Project(p, a, b)
	return m.Distance(p, proj)
}

// ProjectOnPolyline cari titik terdekat dari p di polyline.
// offset jarak dari awal polyline ke titik proyeksi. Kalau jaraknya sama, segment paling awal yang menang.
func ProjectOnPolyline(m Metric, p datastructure.Coordinate, pts []datastructure.Coordinate) (proj datastructure.Coordinate, offset float64, dist float64) {
	if len(pts) == 0 {
		return p, 0, 0
	}
	if len(pts) == 1 {
		return pts[0], 0, m.Distance(p, pts[0])
	}

	bestDist := -1.0
	cum := 0.0
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		segLen := m.Distance(a, b)
		pr, frac := m.Project(p, a, b)
		d := m.Distance(p, pr)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			proj = pr
			offset = cum + frac*segLen
		}
		cum += segLen
	}
	return proj, offset, bestDist
}

// PointAtOffset titik di polyline yang jaraknya offset dari awal polyline.
func PointAtOffset(m Metric, pts []datastructure.Coordinate, offset float64) datastructure.Coordinate {
	if len(pts) == 0 {
		return datastructure.Coordinate{}
	}
	if offset <= 0 {
		return pts[0]
	}
	cum := 0.0
	for i := 1; i < len(pts); i++ {
		segLen := m.Distance(pts[i-1], pts[i])
		if cum+segLen >= offset {
			if segLen == 0 {
				return pts[i]
			}
			return m.Interpolate(pts[i-1], pts[i], (offset-cum)/segLen)
		}
		cum += segLen
	}
	return pts[len(pts)-1]
}

// SubPolyline potongan polyline antara offset from dan to (from <= to).
func SubPolyline(m Metric, pts []datastructure.Coordinate, from, to float64) []datastructure.Coordinate {
	if len(pts) == 0 {
		return nil
	}
	if to < from {
		from, to = to, from
	}
	out := []datastructure.Coordinate{PointAtOffset(m, pts, from)}
	cum := 0.0
	for i := 1; i < len(pts); i++ {
		cum += m.Distance(pts[i-1], pts[i])
		if cum > from && cum < to {
			out = append(out, pts[i])
		}
	}
	return append(out, PointAtOffset(m, pts, to))
}
