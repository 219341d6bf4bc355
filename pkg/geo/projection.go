package geo

import (
	"lintang/mapmatchx/pkg/datastructure"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ToMercator konversi WGS84 ke web mercator (meter). Hasil: Lon = x, Lat = y.
func ToMercator(c datastructure.Coordinate) datastructure.Coordinate {
	p := project.WGS84.ToMercator(orb.Point{c.Lon, c.Lat})
	return datastructure.NewCoordinate(p[1], p[0])
}

func FromMercator(c datastructure.Coordinate) datastructure.Coordinate {
	p := project.Mercator.ToWGS84(orb.Point{c.Lon, c.Lat})
	return datastructure.NewCoordinate(p[1], p[0])
}

// ToLineString koordinat ke orb.LineString ([lon, lat]).
func ToLineString(pts []datastructure.Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(pts))
	for _, p := range pts {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}
