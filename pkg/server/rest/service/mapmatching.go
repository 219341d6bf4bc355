package service

import (
	"context"
	"errors"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/server"

	"go.uber.org/zap"
)

// MapStats diimplementasi backend map yang bisa kasih ringkasan graph (mapstore.Graph).
type MapStats interface {
	Stats() datastructure.GraphStats
	BoundingBox() datastructure.BoundingBox
}

type MapMatchingService struct {
	mq      matching.MapQuery
	cfg     matching.Config
	workers int
	log     *zap.Logger
}

func NewMapMatchingService(mq matching.MapQuery, cfg matching.Config, workers int, log *zap.Logger) *MapMatchingService {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &MapMatchingService{mq: mq, cfg: cfg, workers: workers, log: log}
}

type MatchOutput struct {
	Result *matching.MatchResult
	// Polyline encoded polyline geometry path hasil matching.
	Polyline string
	Geometry []datastructure.Coordinate
}

func (uc *MapMatchingService) output(res *matching.MatchResult) MatchOutput {
	geom := res.Geometry(uc.mq)
	return MatchOutput{
		Result:   res,
		Polyline: datastructure.RenderPath(geom),
		Geometry: geom,
	}
}

// Match map matching satu trace gps.
func (uc *MapMatchingService) Match(ctx context.Context, obs []datastructure.Observation) (MatchOutput, error) {
	m, err := matching.NewMatcher(uc.mq, uc.cfg, matching.WithLogger(uc.log))
	if err != nil {
		return MatchOutput{}, wrapEngineError(err)
	}
	res, err := m.Match(ctx, obs)
	if err != nil {
		return MatchOutput{}, wrapEngineError(err)
	}
	return uc.output(res), nil
}

// MatchBatch map matching banyak trace. error per trace, trace lain tetap diproses.
func (uc *MapMatchingService) MatchBatch(ctx context.Context, traces [][]datastructure.Observation) ([]MatchOutput, []error) {
	results, errs := matching.MatchBatch(ctx, uc.mq, uc.cfg, traces, uc.workers, matching.WithLogger(uc.log))
	outs := make([]MatchOutput, len(traces))
	for i := range traces {
		if errs[i] != nil {
			errs[i] = wrapEngineError(errs[i])
			continue
		}
		outs[i] = uc.output(results[i])
	}
	return outs, errs
}

type MapInfo struct {
	Metric      string                   `json:"metric"`
	Stats       datastructure.GraphStats `json:"stats"`
	BoundingBox datastructure.BoundingBox `json:"bounding_box"`
}

func (uc *MapMatchingService) MapInfo(ctx context.Context) (MapInfo, error) {
	ms, ok := uc.mq.(MapStats)
	if !ok {
		return MapInfo{}, server.WrapErrorf(nil, server.ErrNotFound, "map backend does not expose graph stats")
	}
	return MapInfo{
		Metric:      uc.mq.Metric().Name(),
		Stats:       ms.Stats(),
		BoundingBox: ms.BoundingBox(),
	}, nil
}

// wrapEngineError error engine yang bukan *server.Error (mis. context canceled) jadi internal server error.
func wrapEngineError(err error) error {
	var se *server.Error
	if errors.As(err, &se) {
		return err
	}
	return server.WrapErrorf(err, server.ErrInternalServerError, "%s", server.MessageInternalServerError)
}
