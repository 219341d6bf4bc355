package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/server"
	"lintang/mapmatchx/pkg/server/rest/service"
	"lintang/mapmatchx/pkg/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/paulmach/orb/geojson"
)

type MapMatchingService interface {
	Match(ctx context.Context, obs []datastructure.Observation) (service.MatchOutput, error)
	MatchBatch(ctx context.Context, traces [][]datastructure.Observation) ([]service.MatchOutput, []error)
	MapInfo(ctx context.Context) (service.MapInfo, error)
}

// Limits batas ukuran request.
type Limits struct {
	MaxBatchTraces int
	MaxTraceLength int
}

type MapMatchingHandler struct {
	svc          MapMatchingService
	promeMetrics *metrics
	limits       Limits
	validate     *validator.Validate
	trans        ut.Translator
}

func MapMatchingRouter(r *chi.Mux, svc MapMatchingService, m *metrics, limits Limits) {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	handler := &MapMatchingHandler{svc: svc, promeMetrics: m, limits: limits, validate: validate, trans: trans}

	r.Group(func(r chi.Router) {
		r.Route("/api/mapmatching", func(r chi.Router) {
			r.Post("/match", handler.match)
			r.Post("/batch", handler.matchBatch)
			r.Get("/map-info", handler.mapInfo)
		})
		r.Get("/api/health", handler.health)
	})
}

// Coord satu titik gps. time opsional (RFC3339).
type Coord struct {
	Lat  float64    `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64    `json:"lon" validate:"gte=-180,lte=180"`
	Time *time.Time `json:"time,omitempty"`
}

// MatchRequest request body map matching satu trace gps.
type MatchRequest struct {
	Coordinates []Coord `json:"coordinates" validate:"required,min=1,dive"`
	GeoJSON     bool    `json:"geojson"`
}

func (s *MatchRequest) Bind(r *http.Request) error {
	if len(s.Coordinates) == 0 {
		return errors.New("invalid request")
	}
	return nil
}

func (s *MatchRequest) observations() []datastructure.Observation {
	obs := make([]datastructure.Observation, len(s.Coordinates))
	for i, c := range s.Coordinates {
		obs[i] = datastructure.NewObservation(i, c.Lat, c.Lon)
		if c.Time != nil {
			obs[i].Time = *c.Time
		}
	}
	return obs
}

// MatchResponse response body map matching.
type MatchResponse struct {
	Path             string                     `json:"path"`
	Edges            []datastructure.EdgeID     `json:"edges"`
	NodePath         []datastructure.NodeID     `json:"node_path"`
	LogProb          float64                    `json:"log_prob"`
	Found            bool                       `json:"found"`
	Partial          bool                       `json:"partial"`
	MatchedCount     int                        `json:"matched_count"`
	LastMatchedIndex int                        `json:"last_matched_index"`
	Points           []matching.Record          `json:"points"`
	GeoJSON          *geojson.FeatureCollection `json:"geojson,omitempty"`
}

func NewMatchResponse(out service.MatchOutput, withGeoJSON bool) *MatchResponse {
	res := out.Result
	resp := &MatchResponse{
		Path:             out.Polyline,
		Edges:            res.Path,
		NodePath:         res.NodePath,
		LogProb:          util.RoundFloat(res.LogProb, 4),
		Found:            res.Found,
		Partial:          res.Partial,
		MatchedCount:     res.MatchedCount(),
		LastMatchedIndex: res.LastMatchedIndex,
		Points:           res.Records(),
	}
	if withGeoJSON {
		resp.GeoJSON = service.FeatureCollection(out)
	}
	return resp
}

func (h *MapMatchingHandler) validateRequest(data interface{}) render.Renderer {
	if err := h.validate.Struct(data); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ErrInvalidRequest(err)
		}
		return ErrValidation(err, translateError(verrs, h.trans))
	}
	return nil
}

func (h *MapMatchingHandler) checkTraceLength(n int) error {
	if h.limits.MaxTraceLength > 0 && n > h.limits.MaxTraceLength {
		return fmt.Errorf("trace has %d coordinates, max %d", n, h.limits.MaxTraceLength)
	}
	return nil
}

func (h *MapMatchingHandler) observe(res *matching.MatchResult) {
	h.promeMetrics.MatchCount.WithLabelValues(strconv.FormatBool(res.Found), strconv.FormatBool(res.Partial)).Inc()
	for status, n := range res.CountByStatus() {
		h.promeMetrics.PointCount.WithLabelValues(status.String()).Add(float64(n))
	}
}

// match
//
//	@Summary		map matching satu trace gps ke road network.
//	@Description	map matching satu trace gps ke road network pakai hmm viterbi. setiap titik dapat status matched, gap, atau unmatched.
//	@Tags			mapmatching
//	@Param			body	body	MatchRequest	true	"request body trace gps"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/mapmatching/match [post]
//	@Success		200	{object}	MatchResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *MapMatchingHandler) match(w http.ResponseWriter, r *http.Request) {
	data := &MatchRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if rend := h.validateRequest(data); rend != nil {
		render.Render(w, r, rend)
		return
	}
	if err := h.checkTraceLength(len(data.Coordinates)); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	out, err := h.svc.Match(r.Context(), data.observations())
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	h.observe(out.Result)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewMatchResponse(out, data.GeoJSON))
}

// BatchMatchRequest request body map matching banyak trace sekaligus.
type BatchMatchRequest struct {
	Traces  []MatchRequest `json:"traces" validate:"required,min=1,dive"`
	GeoJSON bool           `json:"geojson"`
}

func (s *BatchMatchRequest) Bind(r *http.Request) error {
	if len(s.Traces) == 0 {
		return errors.New("invalid request")
	}
	return nil
}

type BatchItem struct {
	Result *MatchResponse `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type BatchMatchResponse struct {
	Results []BatchItem `json:"results"`
}

// matchBatch
//
//	@Summary		map matching banyak trace gps sekaligus.
//	@Description	map matching banyak trace gps sekaligus. trace yang gagal diisi error, trace lain tetap diproses.
//	@Tags			mapmatching
//	@Param			body	body	BatchMatchRequest	true	"request body daftar trace gps"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/mapmatching/batch [post]
//	@Success		200	{object}	BatchMatchResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *MapMatchingHandler) matchBatch(w http.ResponseWriter, r *http.Request) {
	data := &BatchMatchRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if rend := h.validateRequest(data); rend != nil {
		render.Render(w, r, rend)
		return
	}
	if h.limits.MaxBatchTraces > 0 && len(data.Traces) > h.limits.MaxBatchTraces {
		render.Render(w, r, ErrInvalidRequest(fmt.Errorf("batch has %d traces, max %d", len(data.Traces), h.limits.MaxBatchTraces)))
		return
	}

	traces := make([][]datastructure.Observation, len(data.Traces))
	for i := range data.Traces {
		if err := h.checkTraceLength(len(data.Traces[i].Coordinates)); err != nil {
			render.Render(w, r, ErrInvalidRequest(fmt.Errorf("trace %d: %w", i, err)))
			return
		}
		traces[i] = data.Traces[i].observations()
	}

	outs, errs := h.svc.MatchBatch(r.Context(), traces)
	resp := &BatchMatchResponse{Results: make([]BatchItem, len(outs))}
	for i, out := range outs {
		if errs[i] != nil {
			resp.Results[i].Error = errorMessage(errs[i])
			continue
		}
		h.observe(out.Result)
		resp.Results[i].Result = NewMatchResponse(out, data.GeoJSON || data.Traces[i].GeoJSON)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// mapInfo
//
//	@Summary		info road network yang dipakai matcher.
//	@Tags			mapmatching
//	@Produce		application/json
//	@Router			/mapmatching/map-info [get]
//	@Success		200	{object}	service.MapInfo
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *MapMatchingHandler) mapInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.MapInfo(r.Context())
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, info)
}

// health
//
//	@Summary	health check.
//	@Tags		health
//	@Produce	application/json
//	@Router		/health [get]
//	@Success	200	{object}	map[string]string
func (h *MapMatchingHandler) health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ErrResponse model untuk error response
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrChi(err error) render.Renderer {
	statusText := ""
	code := getStatusCode(err)
	switch code {
	case http.StatusNotFound:
		statusText = "Resource not found."
	case http.StatusInternalServerError:
		statusText = "Internal server error."
	case http.StatusBadRequest:
		statusText = "Bad request."
	default:
		statusText = "Error."
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: code,
		StatusText:     statusText,
		ErrorText:      errorMessage(err),
	}
}

// errorMessage pesan error untuk client. internal error tidak dibocorkan.
func errorMessage(err error) string {
	if getStatusCode(err) == http.StatusInternalServerError {
		return server.MessageInternalServerError
	}
	return err.Error()
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch server.CodeOf(err) {
	case server.ErrNotFound:
		return http.StatusNotFound
	case server.ErrBadParamInput, server.ErrInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func translateError(verrs validator.ValidationErrors, trans ut.Translator) (errs []error) {
	for _, e := range verrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}
