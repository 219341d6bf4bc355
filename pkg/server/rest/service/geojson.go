package service

import (
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection geojson hasil matching: satu LineString path + satu Point per observation yang matched.
func FeatureCollection(out MatchOutput) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if out.Result == nil {
		return fc
	}

	if len(out.Geometry) > 1 {
		path := geojson.NewFeature(geo.ToLineString(out.Geometry))
		path.Properties["type"] = "path"
		path.Properties["log_prob"] = out.Result.LogProb
		path.Properties["partial"] = out.Result.Partial
		fc.Append(path)
	}

	for _, p := range out.Result.Points {
		if p.Status != matching.StatusMatched || p.Candidate == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{p.Candidate.Point.Lon, p.Candidate.Point.Lat})
		f.Properties["type"] = "matched_point"
		f.Properties["observation_index"] = p.ObservationIndex
		f.Properties["edge_id"] = int64(p.Candidate.EdgeID)
		f.Properties["offset"] = p.Candidate.Offset
		f.Properties["distance"] = p.Candidate.Dist
		f.Properties["confidence"] = p.Confidence
		fc.Append(f)
	}
	return fc
}
