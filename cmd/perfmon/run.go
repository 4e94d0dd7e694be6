package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/archive"
	"github.com/dmarkhas/gameperf/internal/budget"
	"github.com/dmarkhas/gameperf/internal/collector"
	"github.com/dmarkhas/gameperf/internal/configs"
	"github.com/dmarkhas/gameperf/internal/configs/db"
	httpClient "github.com/dmarkhas/gameperf/internal/configs/transport/http"
	"github.com/dmarkhas/gameperf/internal/engine"
	httpHandlers "github.com/dmarkhas/gameperf/internal/handlers/http"
	httpMiddlewares "github.com/dmarkhas/gameperf/internal/middlewares/http"
	"github.com/dmarkhas/gameperf/internal/models"
	"github.com/dmarkhas/gameperf/internal/notify"
	"github.com/dmarkhas/gameperf/internal/runner"
)

func run(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := configs.New(
		configs.WithSamplingInterval(samplingInterval),
		configs.WithAnalysisInterval(analysisInterval),
		configs.WithDetailLevel(detailLevel),
		configs.WithAsyncLogging(asyncLogging),
		configs.WithMaxHistorySamples(maxHistorySamples),
		configs.WithMaxSnapshots(maxSnapshots),
		configs.WithMaxRecommendations(maxRecs),
		configs.WithLeakCheckInterval(leakInterval),
		configs.WithLogFormat(logFormat),
		configs.WithLogPath(logPath),
		configs.WithMaxLogFileSizeMB(maxLogSizeMB),
		configs.WithSnapshotOnCritical(true),
		configs.WithDebugAddress(debugAddr),
		configs.WithWebhookURL(webhookURL),
		configs.WithArchiveDSN(archiveDSN),
	)
	if err != nil {
		return err
	}

	eng, err := engine.New(logger, cfg)
	if err != nil {
		return err
	}

	if err := eng.RegisterMetric(budget.FrameMetricID, "Frame Time", models.CategoryTiming, "ms"); err != nil {
		return err
	}

	col, err := collector.NewRuntime(eng)
	if err != nil {
		return err
	}
	eng.SetMemorySampler(col)

	eng.SetBudget(models.Budget{
		ID:                "default",
		Name:              "Default",
		TargetFrameTimeMs: targetFrameMs,
		SubsystemShares: map[string]float64{
			"collect": 0.25,
		},
		HardwareTier: "desktop",
	})

	if err := eng.StartLogging(); err != nil {
		return err
	}
	defer eng.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	r := runner.New(logger)
	r.AddWorker(&tickLoop{eng: eng, col: col})

	if cfg.WebhookURL != "" {
		client, err := httpClient.New(cfg.WebhookURL,
			httpClient.WithRetryPolicy(httpClient.RetryPolicy{
				Count:   3,
				Wait:    500 * time.Millisecond,
				MaxWait: 5 * time.Second,
			}),
			httpClient.WithTimeout(5*time.Second),
		)
		if err != nil {
			return err
		}
		hook := notify.NewWebhook(logger, client, 64)
		eng.Events().Subscribe(hook)
		r.AddWorker(hook)
	}

	if cfg.ArchiveDSN != "" {
		conn, err := db.New(cfg.ArchiveDSN, db.WithMaxOpenConns(1))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer conn.Close()
		if err := archive.Migrate(conn, migrationsDir); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		worker := archive.NewWorker(logger, eng.Snapshots(), archive.NewRepository(conn), 64)
		eng.Events().Subscribe(worker)
		r.AddWorker(worker)
	}

	if cfg.DebugAddress != "" {
		r.AddHTTPServer(&http.Server{
			Addr:    cfg.DebugAddress,
			Handler: newRouter(logger, eng),
		})
		logger.Info("debug surface listening", zap.String("address", cfg.DebugAddress))
	}

	return r.Run(ctx)
}

// newRouter assembles the read-only debug surface.
func newRouter(logger *zap.Logger, eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(httpMiddlewares.NewLoggingMiddleware(logger))
	r.Use(httpMiddlewares.GzipMiddleware)

	r.Get("/metrics", httpHandlers.NewMetricListHandler(eng.Registry()))
	r.Get("/metrics/{id}", httpHandlers.NewMetricGetHandler(eng.Registry()))
	r.Get("/budget", httpHandlers.NewBudgetStatusHandler(eng))
	r.Get("/recommendations", httpHandlers.NewRecommendationsHandler(eng))
	r.Get("/leaks", httpHandlers.NewLeakFindingsHandler(eng))
	r.Get("/snapshots", httpHandlers.NewSnapshotListHandler(eng.Snapshots()))
	r.Post("/snapshots", httpHandlers.NewSnapshotCaptureHandler(eng))
	r.Get("/snapshots/{id}/export", httpHandlers.NewSnapshotExportHandler(eng.Snapshots()))
	r.Get("/snapshots/diff", httpHandlers.NewSnapshotDiffHandler(eng.Snapshots()))

	// A nil *sink.Sink must not reach the handler as a typed non-nil interface.
	var health httpHandlers.HealthReader
	if s := eng.Sink(); s != nil {
		health = s
	}
	r.Get("/healthz", httpHandlers.NewHealthHandler(health))
	return r
}

// tickLoop stands in for a host simulation loop: it ticks the engine at a
// fixed cadence, measures its own frame time, and collects runtime metrics.
type tickLoop struct {
	eng *engine.Engine
	col *collector.Runtime
}

func (t *tickLoop) Start(ctx context.Context) error {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			frameStart := time.Now()
			t.col.Collect()
			t.eng.RecordDuration(models.SubsystemMetricID("collect"), frameStart)

			t.eng.Record(budget.FrameMetricID, dt*1000)
			t.eng.Tick(dt)
		}
	}
}
