package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	grpcapi "github.com/nemanja-m/gomandel/internal/scheduler/api/grpc"
	"github.com/nemanja-m/gomandel/internal/scheduler/api/rest"
	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/scheduler/pool"
	"github.com/nemanja-m/gomandel/internal/scheduler/service"
	"github.com/nemanja-m/gomandel/internal/scheduler/storage"
	"github.com/nemanja-m/gomandel/internal/shared/config"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	workerservice "github.com/nemanja-m/gomandel/internal/worker/service"
	"github.com/nemanja-m/gomandel/pkg/palette"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	colour, err := palette.Get(cfg.Render.Palette)
	if err != nil {
		logger.Fatal("Unknown palette", "palette", cfg.Render.Palette, "available", palette.List())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	workers, err := pool.New(
		cfg.Pool.Workers,
		workerservice.NewKernelExecutor(cfg.Pool.FastPath),
		pool.NewMetrics(registry),
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create worker pool", "error", err)
	}

	viewport, err := core.NewViewport(core.ViewState{Zoom: core.DefaultZoom, Iterations: cfg.Render.Iterations})
	if err != nil {
		logger.Fatal("Failed to create viewport", "error", err)
	}

	cache, err := storage.NewTileCache(cfg.Cache.Size)
	if err != nil {
		logger.Fatal("Failed to create tile cache", "error", err)
	}

	canvas := core.Size{Width: cfg.Render.CanvasWidth, Height: cfg.Render.CanvasHeight}
	scheduler, err := service.NewScheduler(workers, viewport, cache, service.Config{
		TileSize:  cfg.Render.TileSize,
		Palette:   colour,
		Policy:    service.CancelPolicy(cfg.Render.CancelPolicy),
		AutoFrame: cfg.Render.AutoFrame,
		Canvas:    canvas,
	}, service.NewMetrics(registry), logger)
	if err != nil {
		logger.Fatal("Failed to create scheduler", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers.Start(ctx)

	httpServer := rest.NewServer(cfg.HTTP, scheduler, canvas, registry, logger)
	grpcServer := grpcapi.NewServer(cfg.GRPC, scheduler, logger)
	reporter := service.NewStatsReporter(cfg.Stats.Interval, scheduler, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(grpcServer.Start)

	g.Go(func() error {
		reporter.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		scheduler.Close()
		grpcServer.Stop()
		err := httpServer.Shutdown(shutdownCtx)
		workers.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Server error", "error", err)
	}
	logger.Info("Server stopped")
}
