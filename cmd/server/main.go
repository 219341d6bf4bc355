package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lintang/mapmatchx/pkg/config"
	"lintang/mapmatchx/pkg/engine/matching"
	"lintang/mapmatchx/pkg/kv"
	"lintang/mapmatchx/pkg/logger"
	"lintang/mapmatchx/pkg/mapstore"
	"lintang/mapmatchx/pkg/server/rest"
	"lintang/mapmatchx/pkg/server/rest/service"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yml", "file config yaml")
	listenAddr = flag.String("listenaddr", "", "server listen address, override config")
)

//	@title			mapmatchx API
//	@version		1.0
//	@description	hmm map matching engine: gps trace ke road network.
//	@host			localhost:5000
//	@BasePath		/api
func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	mq, closeMap, err := loadMap(cfg.Map, lg)
	if err != nil {
		lg.Fatal("load map", zap.Error(err))
	}
	defer closeMap()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewMapMatchingService(mq, cfg.Matching, cfg.Server.Workers, lg)
	r := rest.NewRouter(svc, reg, rest.Limits{
		MaxBatchTraces: cfg.Server.MaxBatchTraces,
		MaxTraceLength: cfg.Server.MaxTraceLength,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Info("server started", zap.String("addr", cfg.Server.ListenAddr), zap.String("backend", cfg.Map.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
	lg.Info("server stopped")
}

// loadMap buka backend map sesuai config. fungsi close dipanggil waktu server berhenti.
func loadMap(cfg config.MapConfig, lg *zap.Logger) (matching.MapQuery, func() error, error) {
	if cfg.Backend == config.BackendKV {
		db, err := pebble.Open(cfg.KVPath, &pebble.Options{ReadOnly: true})
		if err != nil {
			return nil, nil, fmt.Errorf("open pebble %s: %w", cfg.KVPath, err)
		}
		kvDB := kv.NewKVDB(db, lg)
		return kvDB, kvDB.Close, nil
	}

	var (
		g   *mapstore.Graph
		err error
	)
	if cfg.SnapshotPath != "" {
		g, err = readFile(cfg.SnapshotPath, mapstore.Load)
	} else {
		g, err = readFile(cfg.JSONPath, func(r io.Reader) (*mapstore.Graph, error) {
			return mapstore.LoadJSON(r, mapstore.WithIndex(mapstore.IndexKind(cfg.SpatialIndex)))
		})
	}
	if err != nil {
		return nil, nil, err
	}
	g.Build()

	stats := g.Stats()
	lg.Info("map loaded",
		zap.Int("nodes", stats.NodeCount),
		zap.Int("edges", stats.EdgeCount),
		zap.Float64("total_length", stats.TotalLen),
		zap.String("metric", g.Metric().Name()))
	return g, func() error { return nil }, nil
}

func readFile(path string, read func(io.Reader) (*mapstore.Graph, error)) (*mapstore.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}
