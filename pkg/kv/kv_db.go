package kv

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"lintang/mapmatchx/pkg/concurrent"
	"lintang/mapmatchx/pkg/datastructure"
	"lintang/mapmatchx/pkg/geo"
	"lintang/mapmatchx/pkg/server"

	"github.com/cockroachdb/pebble"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"
)

const (
	h3Resolution = 9
	// cellSampleStep jarak sampling geometry edge waktu indexing, lebih kecil dari sisi cell h3 res 9 (~174m).
	cellSampleStep = 50.0
	saveWorkers    = 4
)

var ErrNotGeographic = errors.New("kv map store needs a haversine (lat/lon) graph")

// GraphSource graph yang mau disimpan ke kv.
type GraphSource interface {
	Nodes() []datastructure.Node
	Edges() []datastructure.Edge
	Metric() geo.Metric
}

/*
KVDB road network di pebble, edge di-index per h3 cell. implement matching.MapQuery
jadi matcher bisa jalan langsung di atas kv tanpa load semua graph ke memory.

key:
  n:<node id>  -> koordinat node
  e:<edge id>  -> edge
  o:<node id>  -> id edge keluar dari node
  h:<h3 cell>  -> id edge yang geometry-nya lewat cell
*/
type KVDB struct {
	db     *pebble.DB
	log    *zap.Logger
	metric geo.Haversine

	mu        sync.RWMutex
	edgeCache map[datastructure.EdgeID]datastructure.Edge
	nodeCache map[datastructure.NodeID]datastructure.Coordinate
	outCache  map[datastructure.NodeID][]datastructure.EdgeID
}

func NewKVDB(db *pebble.DB, log *zap.Logger) *KVDB {
	if log == nil {
		log = zap.NewNop()
	}
	return &KVDB{
		db:        db,
		log:       log,
		edgeCache: make(map[datastructure.EdgeID]datastructure.Edge),
		nodeCache: make(map[datastructure.NodeID]datastructure.Coordinate),
		outCache:  make(map[datastructure.NodeID][]datastructure.EdgeID),
	}
}

func nodeKey(id datastructure.NodeID) []byte {
	return []byte("n:" + strconv.FormatInt(int64(id), 10))
}

func edgeKey(id datastructure.EdgeID) []byte {
	return []byte("e:" + strconv.FormatInt(int64(id), 10))
}

func outKey(id datastructure.NodeID) []byte {
	return []byte("o:" + strconv.FormatInt(int64(id), 10))
}

func cellKey(c h3.Cell) []byte {
	return []byte("h:" + c.String())
}

type saveJobItem struct {
	key   []byte
	value interface{}
}

func newProgressBar(max int, description string, show bool) *progressbar.ProgressBar {
	var w io.Writer = io.Discard
	if show {
		w = ansi.NewAnsiStdout()
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// CreateMapKV simpan semua node, edge, adjacency, dan h3 index edge ke pebble.
func (k *KVDB) CreateMapKV(g GraphSource, showProgress bool) error {
	if _, ok := g.Metric().(geo.Haversine); !ok {
		return server.WrapErrorf(ErrNotGeographic, server.ErrInvalidInput, "metric %s", g.Metric().Name())
	}
	nodes := g.Nodes()
	edges := g.Edges()

	bar := newProgressBar(len(edges), "[cyan][1/2][reset] building h3 index for edges...", showProgress)
	cells := make(map[h3.Cell][]datastructure.EdgeID)
	out := make(map[datastructure.NodeID][]datastructure.EdgeID)
	for _, e := range edges {
		for _, c := range edgeCells(k.metric, e) {
			cells[c] = append(cells[c], e.ID)
		}
		out[e.From] = append(out[e.From], e.ID)
		bar.Add(1)
	}

	jobs := make([]saveJobItem, 0, len(nodes)+len(edges)+len(out)+len(cells))
	for _, n := range nodes {
		jobs = append(jobs, saveJobItem{key: nodeKey(n.ID), value: n.Coord})
	}
	for _, e := range edges {
		jobs = append(jobs, saveJobItem{key: edgeKey(e.ID), value: e})
	}
	for id, ids := range out {
		jobs = append(jobs, saveJobItem{key: outKey(id), value: ids})
	}
	for c, ids := range cells {
		jobs = append(jobs, saveJobItem{key: cellKey(c), value: ids})
	}

	bar = newProgressBar(len(jobs), "[cyan][2/2][reset] saving map to pebble db...", showProgress)
	workers := concurrent.NewWorkerPool[saveJobItem, error](saveWorkers, len(jobs))
	for _, job := range jobs {
		workers.AddJob(job)
	}
	workers.Close()

	workers.Start(k.save)
	workers.Wait()

	var firstErr error
	for err := range workers.CollectResults() {
		bar.Add(1)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return server.WrapErrorf(firstErr, server.ErrInternalServerError, "save map kv")
	}

	k.log.Info("map kv created",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Int("h3_cells", len(cells)))
	return nil
}

func (k *KVDB) save(item saveJobItem) error {
	var (
		val []byte
		err error
	)
	switch v := item.value.(type) {
	case datastructure.Coordinate:
		val, err = EncodeCompressed(v)
	case datastructure.Edge:
		val, err = EncodeCompressed(v)
	case []datastructure.EdgeID:
		val, err = EncodeCompressed(v)
	default:
		err = fmt.Errorf("unsupported kv value %T", v)
	}
	if err != nil {
		return err
	}
	return k.db.Set(item.key, val, pebble.Sync)
}

// edgeCells h3 cell yang dilewati geometry edge, sampling tiap cellSampleStep meter.
func edgeCells(m geo.Metric, e datastructure.Edge) []h3.Cell {
	seen := make(map[h3.Cell]bool)
	cells := []h3.Cell{}
	add := func(c datastructure.Coordinate) {
		cell := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), h3Resolution)
		if !seen[cell] {
			seen[cell] = true
			cells = append(cells, cell)
		}
	}
	for i, p := range e.Geometry {
		add(p)
		if i == 0 {
			continue
		}
		prev := e.Geometry[i-1]
		segLen := m.Distance(prev, p)
		for d := cellSampleStep; d < segLen; d += cellSampleStep {
			add(m.Interpolate(prev, p, d/segLen))
		}
	}
	return cells
}

func get[T any](db *pebble.DB, key []byte) (T, bool, error) {
	var zero T
	val, closer, err := db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	defer closer.Close()

	v, err := DecodeCompressed[T](val)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (k *KVDB) Metric() geo.Metric {
	return k.metric
}

func (k *KVDB) Edge(id datastructure.EdgeID) (datastructure.Edge, bool) {
	k.mu.RLock()
	e, ok := k.edgeCache[id]
	k.mu.RUnlock()
	if ok {
		return e, true
	}

	e, ok, err := get[datastructure.Edge](k.db, edgeKey(id))
	if err != nil {
		k.log.Error("load edge", zap.Int64("edge_id", int64(id)), zap.Error(err))
		return datastructure.Edge{}, false
	}
	if !ok {
		return datastructure.Edge{}, false
	}
	k.mu.Lock()
	k.edgeCache[id] = e
	k.mu.Unlock()
	return e, true
}

func (k *KVDB) EdgeLength(id datastructure.EdgeID) (float64, bool) {
	e, ok := k.Edge(id)
	if !ok {
		return 0, false
	}
	return e.Length, true
}

func (k *KVDB) NodeCoordinate(id datastructure.NodeID) (datastructure.Coordinate, bool) {
	k.mu.RLock()
	c, ok := k.nodeCache[id]
	k.mu.RUnlock()
	if ok {
		return c, true
	}

	c, ok, err := get[datastructure.Coordinate](k.db, nodeKey(id))
	if err != nil {
		k.log.Error("load node", zap.Int64("node_id", int64(id)), zap.Error(err))
		return datastructure.Coordinate{}, false
	}
	if !ok {
		return datastructure.Coordinate{}, false
	}
	k.mu.Lock()
	k.nodeCache[id] = c
	k.mu.Unlock()
	return c, true
}

func (k *KVDB) OutgoingEdges(id datastructure.NodeID) []datastructure.Edge {
	k.mu.RLock()
	ids, ok := k.outCache[id]
	k.mu.RUnlock()
	if !ok {
		var err error
		ids, _, err = get[[]datastructure.EdgeID](k.db, outKey(id))
		if err != nil {
			k.log.Error("load adjacency", zap.Int64("node_id", int64(id)), zap.Error(err))
			return nil
		}
		k.mu.Lock()
		k.outCache[id] = ids
		k.mu.Unlock()
	}

	edges := make([]datastructure.Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := k.Edge(eid); ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// NearbyEdges edge dari h3 cell di sekitar p yang jaraknya <= radius.
func (k *KVDB) NearbyEdges(p datastructure.Coordinate, radius float64) []datastructure.EdgeHit {
	seen := make(map[datastructure.EdgeID]bool)
	ids := []datastructure.EdgeID{}
	for _, cell := range kRingIndexesArea(p.Lat, p.Lon, radius/1000) {
		cellEdges, _, err := get[[]datastructure.EdgeID](k.db, cellKey(cell))
		if err != nil {
			k.log.Error("load h3 cell", zap.String("cell", cell.String()), zap.Error(err))
			continue
		}
		for _, id := range cellEdges {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	hits := make([]datastructure.EdgeHit, 0, len(ids))
	for _, id := range ids {
		e, ok := k.Edge(id)
		if !ok {
			continue
		}
		proj, offset, dist := geo.ProjectOnPolyline(k.metric, p, e.Geometry)
		if dist > radius {
			continue
		}
		if geomLen := geo.PolylineLength(k.metric, e.Geometry); geomLen > 0 {
			offset = offset * e.Length / geomLen
		}
		hits = append(hits, datastructure.EdgeHit{Edge: e, Offset: offset, Point: proj, Dist: dist})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Dist != hits[j].Dist {
			return hits[i].Dist < hits[j].Dist
		}
		return hits[i].Edge.ID < hits[j].Edge.ID
	})
	return hits
}

/*
*
  - https://observablehq.com/@nrabinowitz/h3-radius-lookup?collection=@nrabinowitz/h3
    search cell neighbor dari cell dari lat,lon  yang radius nya = searchRadiusKm.
    ditambah satu ring supaya lingkaran di pinggir disk tetap ter-cover.
*/
func kRingIndexesArea(lat, lon, searchRadiusKm float64) []h3.Cell {
	home := h3.NewLatLng(lat, lon)
	origin := h3.LatLngToCell(home, h3Resolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * searchRadiusKm * searchRadiusKm

	radius := 0
	diskArea := originArea

	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}

	return h3.GridDisk(origin, radius+1)
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
