package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/construplaza/construplaza-backend/api/routes"
	authsvc "github.com/construplaza/construplaza-backend/internal/auth"
	"github.com/construplaza/construplaza-backend/internal/invoices"
	"github.com/construplaza/construplaza-backend/internal/payments"
	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/internal/quotes"
	"github.com/construplaza/construplaza-backend/internal/reviews"
	"github.com/construplaza/construplaza-backend/internal/search"
	"github.com/construplaza/construplaza-backend/internal/subscriptions"
	"github.com/construplaza/construplaza-backend/internal/suppliers"
	"github.com/construplaza/construplaza-backend/pkg/auth/session"
	"github.com/construplaza/construplaza-backend/pkg/azul"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db"
	"github.com/construplaza/construplaza-backend/pkg/embeddings"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/metrics"
	"github.com/construplaza/construplaza-backend/pkg/migrate"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/redis"
	"github.com/construplaza/construplaza-backend/pkg/rnc"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	fiscalMetrics := metrics.NewFiscalMetrics(registry)

	gormDB := dbClient.DB()
	outboxSvc, err := outbox.NewService(outbox.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox service", err)
		os.Exit(1)
	}

	rncClient, err := rnc.NewClient(cfg.RNC.BaseURL, cfg.RNC.Timeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create rnc client", err)
		os.Exit(1)
	}

	embedClient, err := embeddings.NewClient(cfg.Embeddings)
	if err != nil {
		logg.Error(context.Background(), "failed to create embeddings client", err)
		os.Exit(1)
	}

	azulClient, err := azul.NewClient(cfg.Azul)
	if err != nil {
		logg.Error(context.Background(), "failed to create azul client", err)
		os.Exit(1)
	}

	plansSvc, err := plans.NewService(plans.ServiceParams{
		Repo:   plans.NewRepository(gormDB),
		DB:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plans service", err)
		os.Exit(1)
	}

	suppliersSvc, err := suppliers.NewService(suppliers.ServiceParams{
		Repo:     suppliers.NewRepository(gormDB),
		DB:       dbClient,
		RNC:      rncClient,
		Plans:    plans.NewRepository(gormDB),
		Outbox:   outboxSvc,
		Logger:   logg,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create suppliers service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Repo:      authsvc.NewRepository(gormDB),
		Sessions:  sessionManager,
		Suppliers: suppliers.NewRepository(gormDB),
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	searchSvc, err := search.NewService(search.ServiceParams{
		Repo:     search.NewRepository(gormDB),
		Embedder: embedClient,
		Cache:    redisClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	quotesRepo := quotes.NewRepository(gormDB)
	quotesSvc, err := quotes.NewService(quotes.ServiceParams{
		Repo:      quotesRepo,
		DB:        dbClient,
		Outbox:    outboxSvc,
		Quotas:    plansSvc,
		Suppliers: suppliers.NewRepository(gormDB),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}

	reviewsSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:        reviews.NewRepository(gormDB),
		DB:          dbClient,
		Outbox:      outboxSvc,
		Eligibility: quotesRepo,
		Suppliers:   suppliers.NewRepository(gormDB),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	subscriptionsSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:   subscriptions.NewRepository(gormDB),
		DB:     dbClient,
		Outbox: outboxSvc,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	invoicesSvc, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(gormDB),
		DB:      dbClient,
		Outbox:  outboxSvc,
		Logger:  logg,
		Metrics: fiscalMetrics,
		Config:  cfg.Invoicing,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:          payments.NewRepository(gormDB),
		DB:            dbClient,
		Gateway:       azulClient,
		Subscriptions: subscriptionsSvc,
		Invoices:      invoicesSvc,
		Outbox:        outboxSvc,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, routes.Services{
		Auth:          authService,
		Suppliers:     suppliersSvc,
		AdminSupplier: suppliersSvc,
		Search:        searchSvc,
		Quotes:        quotesSvc,
		Reviews:       reviewsSvc,
		Subscriptions: subscriptionsSvc,
		Payments:      paymentsSvc,
		Invoices:      invoicesSvc,
		AdminPayments: paymentsSvc,
		AdminInvoices: invoicesSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during graceful shutdown", err)
		}
	}
}
