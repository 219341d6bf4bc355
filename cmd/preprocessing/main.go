package main

import (
	"flag"
	"log"
	"os"

	"lintang/mapmatchx/pkg/kv"
	"lintang/mapmatchx/pkg/logger"
	"lintang/mapmatchx/pkg/mapstore"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

var (
	mapFile      = flag.String("f", "solo_jogja.json", "road network graph (json) buat map matching")
	snapshotFile = flag.String("snapshot", "mapmatchx.graph", "output binary snapshot graph, kosong = tidak dibuat")
	kvPath       = flag.String("kv", "", "output pebble db, kosong = tidak dibuat")
	index        = flag.String("index", "rtreego", "spatial index: rtreego | tidwall")
	purge        = flag.Bool("purge", true, "buang node yang tidak punya edge")
)

func main() {
	flag.Parse()

	lg, err := logger.New("info", true)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	f, err := os.Open(*mapFile)
	if err != nil {
		lg.Fatal("open map", zap.Error(err))
	}
	g, err := mapstore.LoadJSON(f, mapstore.WithIndex(mapstore.IndexKind(*index)))
	f.Close()
	if err != nil {
		lg.Fatal("parse map", zap.Error(err))
	}
	if *purge {
		lg.Info("purged isolated nodes", zap.Int("removed", g.Purge()))
	}
	stats := g.Stats()
	lg.Info("graph loaded",
		zap.Int("nodes", stats.NodeCount),
		zap.Int("edges", stats.EdgeCount),
		zap.Float64("mean_degree", stats.MeanDegree))

	if *snapshotFile != "" {
		out, err := os.Create(*snapshotFile)
		if err != nil {
			lg.Fatal("create snapshot", zap.Error(err))
		}
		if err := g.Save(out); err != nil {
			lg.Fatal("save snapshot", zap.Error(err))
		}
		if err := out.Close(); err != nil {
			lg.Fatal("close snapshot", zap.Error(err))
		}
		lg.Info("snapshot saved", zap.String("path", *snapshotFile))
	}

	if *kvPath != "" {
		db, err := pebble.Open(*kvPath, &pebble.Options{})
		if err != nil {
			lg.Fatal("open pebble", zap.Error(err))
		}
		kvDB := kv.NewKVDB(db, lg)
		if err := kvDB.CreateMapKV(g, true); err != nil {
			kvDB.Close()
			lg.Fatal("create map kv", zap.Error(err))
		}
		if err := kvDB.Close(); err != nil {
			lg.Fatal("close pebble", zap.Error(err))
		}
	}
}
