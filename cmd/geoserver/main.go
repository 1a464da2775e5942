package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"

	"github.com/signalsfoundry/drone-geolocator/core"
	"github.com/signalsfoundry/drone-geolocator/geoindex"
	"github.com/signalsfoundry/drone-geolocator/internal/api"
	"github.com/signalsfoundry/drone-geolocator/internal/config"
	"github.com/signalsfoundry/drone-geolocator/internal/logging"
	"github.com/signalsfoundry/drone-geolocator/internal/observability"
	"github.com/signalsfoundry/drone-geolocator/tilecache"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; defaults apply)")
	addr := flag.String("addr", "", "Override the HTTP listen address from the config")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("path", *configPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	collector, err := observability.NewGeoCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	cache := tilecache.New(
		newImageryFetcher(cfg.Imagery, log),
		tilecache.WithTTL(cfg.TileCache.TTL.Std()),
		tilecache.WithFetchTimeout(cfg.TileCache.FetchTimeout.Std()),
		tilecache.WithDir(cfg.TileCache.Dir),
		tilecache.WithLogger(log),
		tilecache.WithMetrics(collector),
	)

	triangulation := core.NewTriangulationEngine(core.TriangulationConfig{
		DefaultDistanceM: cfg.Triangulation.DefaultDistanceM,
		MaxDistanceM:     cfg.Triangulation.MaxDistanceM,
		SpreadScaleM:     cfg.Triangulation.SpreadScaleM,
	}, log)

	correlation := core.NewCorrelationEngine(cache, newSimulatedCorrelator(), core.CorrelationConfig{
		Zoom:             cfg.Correlation.Zoom,
		DefaultThreshold: cfg.Correlation.ConfidenceThreshold,
		MetersPerPixel:   cfg.Correlation.MetersPerPixel,
	}, log)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	handler := api.NewServer(triangulation, correlation, geoindex.New(), log, collector)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	log.Info(ctx, "starting geolocation server", logging.String("addr", cfg.Server.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server exited", logging.String("error", err.Error()))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down geolocation server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func serveMetrics(addr string, collector *observability.GeoCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
