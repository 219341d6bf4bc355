package rest_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/mapstore"
	"lintang/mapmatchx/pkg/server/rest"
	"lintang/mapmatchx/pkg/server/rest/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jalan lurus timur-barat di Surakarta, 3 node ~110m.
func testGraph(t *testing.T) *mapstore.Graph {
	g := mapstore.NewGraph(geo.Haversine{})
	require.Nil(t, g.AddNode(1, datastructure.NewCoordinate(-7.55, 110.800)))
	require.Nil(t, g.AddNode(2, datastructure.NewCoordinate(-7.55, 110.801)))
	require.Nil(t, g.AddNode(3, datastructure.NewCoordinate(-7.55, 110.802)))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 1, ReverseID: 2, From: 1, To: 2}))
	require.Nil(t, g.AddRoad(mapstore.Road{ID: 3, ReverseID: 4, From: 2, To: 3}))
	g.Build()
	return g
}

func newServer(t *testing.T, mq matching.MapQuery, limits rest.Limits) *httptest.Server {
	svc := service.NewMapMatchingService(mq, matching.DefaultConfig(), 2, nil)
	srv := httptest.NewServer(rest.NewRouter(svc, prometheus.NewRegistry(), limits))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body string) (int, []byte) {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.Nil(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp.StatusCode, data
}

func get(t *testing.T, url string) (int, []byte) {
	resp, err := http.Get(url)
	require.Nil(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp.StatusCode, data
}

const trace = `{"coordinates": [
	{"lat": -7.55001, "lon": 110.8002, "time": "2024-08-17T07:00:00Z"},
	{"lat": -7.54999, "lon": 110.8008, "time": "2024-08-17T07:00:10Z"},
	{"lat": -7.55001, "lon": 110.8015, "time": "2024-08-17T07:00:20Z"}
], "geojson": true}`

func TestMatchHandler(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{})

	code, body := post(t, srv.URL+"/api/mapmatching/match", trace)
	require.Equal(t, http.StatusOK, code, string(body))

	var resp rest.MatchResponse
	require.Nil(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Found)
	assert.False(t, resp.Partial)
	assert.Equal(t, 3, resp.MatchedCount)
	assert.Equal(t, 2, resp.LastMatchedIndex)
	assert.NotEmpty(t, resp.Path)
	assert.NotEmpty(t, resp.Edges)
	require.Len(t, resp.Points, 3)
	for i, p := range resp.Points {
		assert.Equal(t, i, p.ObservationIndex)
		assert.Equal(t, "matched", p.Status)
		assert.InDelta(t, -7.55, p.Lat, 1e-6)
	}
	require.NotNil(t, resp.GeoJSON)
	assert.Len(t, resp.GeoJSON.Features, 4)
}

func TestMatchHandlerBadRequest(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{MaxTraceLength: 2})

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"coordinates": []}`},
		{"not json", `coordinates`},
		{"latitude out of range", `{"coordinates": [{"lat": 100, "lon": 110.8}]}`},
		{"time goes backwards", `{"coordinates": [
			{"lat": -7.55, "lon": 110.8002, "time": "2024-08-17T07:00:10Z"},
			{"lat": -7.55, "lon": 110.8008, "time": "2024-08-17T07:00:00Z"}]}`},
		{"trace too long", trace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, srv.URL+"/api/mapmatching/match", tt.body)
			assert.Equal(t, http.StatusBadRequest, code, string(body))

			var resp rest.ErrResponse
			require.Nil(t, json.Unmarshal(body, &resp))
			assert.NotEmpty(t, resp.ErrorText)
		})
	}
}

func TestMatchHandlerValidationMessages(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{})
	code, body := post(t, srv.URL+"/api/mapmatching/match", `{"coordinates": [{"lat": -7.55, "lon": 200}]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	var resp rest.ErrResponse
	require.Nil(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.ErrValidation, 1)
	assert.Contains(t, resp.ErrValidation[0], "Lon")
}

func TestMatchHandlerNoCandidates(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{})
	code, body := post(t, srv.URL+"/api/mapmatching/match", `{"coordinates": [{"lat": -7.60, "lon": 110.9}]}`)
	require.Equal(t, http.StatusOK, code)

	var resp rest.MatchResponse
	require.Nil(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Found)
	assert.Equal(t, "unmatched", resp.Points[0].Status)
	assert.Equal(t, "no_candidates", resp.Points[0].Reason)
	assert.Equal(t, datastructure.InvalidEdgeID, resp.Points[0].EdgeID)
}

func TestBatchHandler(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{MaxBatchTraces: 3})

	body := `{"traces": [` + trace + `, {"coordinates": [
		{"lat": -7.55, "lon": 110.8002, "time": "2024-08-17T07:00:10Z"},
		{"lat": -7.55, "lon": 110.8008, "time": "2024-08-17T07:00:00Z"}]}]}`
	code, data := post(t, srv.URL+"/api/mapmatching/batch", body)
	require.Equal(t, http.StatusOK, code, string(data))

	var resp rest.BatchMatchResponse
	require.Nil(t, json.Unmarshal(data, &resp))
	require.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Results[0].Result)
	assert.True(t, resp.Results[0].Result.Found)
	assert.NotNil(t, resp.Results[0].Result.GeoJSON)
	assert.Nil(t, resp.Results[1].Result)
	assert.Contains(t, resp.Results[1].Error, "timestamp")

	tooMany := `{"traces": [` + strings.Repeat(trace+",", 3) + trace + `]}`
	code, _ = post(t, srv.URL+"/api/mapmatching/batch", tooMany)
	assert.Equal(t, http.StatusBadRequest, code)
}

type plainMap struct {
	matching.MapQuery
}

func TestMapInfoHandler(t *testing.T) {
	g := testGraph(t)
	srv := newServer(t, g, rest.Limits{})

	code, body := get(t, srv.URL+"/api/mapmatching/map-info")
	require.Equal(t, http.StatusOK, code)
	var info service.MapInfo
	require.Nil(t, json.Unmarshal(body, &info))
	assert.Equal(t, "haversine", info.Metric)
	assert.Equal(t, 3, info.Stats.NodeCount)
	assert.Equal(t, 4, info.Stats.EdgeCount)

	srv = newServer(t, plainMap{g}, rest.Limits{})
	code, _ = get(t, srv.URL+"/api/mapmatching/map-info")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, testGraph(t), rest.Limits{})

	code, _ := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, code)

	code, _ = post(t, srv.URL+"/api/mapmatching/match", trace)
	require.Equal(t, http.StatusOK, code)

	code, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "mapmatchx_match_count")
	assert.Contains(t, string(body), `mapmatchx_observation_count{status="matched"} 3`)
}
