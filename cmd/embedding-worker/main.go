package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/construplaza/construplaza-backend/internal/search"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db"
	"github.com/construplaza/construplaza-backend/pkg/embeddings"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/metrics"
	"github.com/construplaza/construplaza-backend/pkg/migrate"
)

// One-shot sweep: embeds every supplier profile without a stored vector and
// exits. Scheduled externally (cron or a deploy hook).
func main() {
	logg := logger.New(logger.Options{ServiceName: "embedding-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	limit := flag.Int("limit", 200, "maximum suppliers to embed in one sweep")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "embedding-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	embedClient, err := embeddings.NewClient(cfg.Embeddings)
	if err != nil {
		logg.Error(context.Background(), "failed to create embeddings client", err)
		os.Exit(1)
	}

	searchSvc, err := search.NewService(search.ServiceParams{
		Repo:     search.NewRepository(dbClient.DB()),
		Embedder: embedClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	jobs := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":   cfg.App.Env,
		"limit": *limit,
	})
	logg.Info(ctx, "starting embedding sweep")

	started := time.Now()
	done, err := searchSvc.BackfillMissing(ctx, *limit)
	jobs.ObserveDuration("embedding_sweep", time.Since(started))
	if err != nil {
		jobs.IncFailure("embedding_sweep")
		logg.Error(ctx, "embedding sweep failed", err)
		os.Exit(1)
	}
	jobs.IncSuccess("embedding_sweep")

	logg.Info(logg.WithFields(ctx, map[string]any{"embedded": done}), "embedding sweep finished")
}
