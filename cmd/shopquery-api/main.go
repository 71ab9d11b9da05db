package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopquery/shopquery/internal/api"
	"github.com/shopquery/shopquery/internal/auth"
	"github.com/shopquery/shopquery/internal/config"
	"github.com/shopquery/shopquery/internal/history"
	historypg "github.com/shopquery/shopquery/internal/history/postgres"
	"github.com/shopquery/shopquery/internal/nl2sql"
	"github.com/shopquery/shopquery/internal/observability"
	"github.com/shopquery/shopquery/internal/query"
	duckdbengine "github.com/shopquery/shopquery/internal/query/duckdb"
	"github.com/shopquery/shopquery/internal/schema"
	s3store "github.com/shopquery/shopquery/internal/storage/s3"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("shopquery-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	registry, err := schema.Default()
	if err != nil {
		logger.Error("failed to load schema registry", slog.Any("error", err))
		os.Exit(1)
	}

	recognizer, err := nl2sql.NewRecognizer(nl2sql.RecognizerConfig{
		Backend: cfg.NER.Backend,
		BaseURL: cfg.NER.BaseURL,
		APIKey:  cfg.NER.APIKey,
		Model:   cfg.NER.Model,
		Timeout: cfg.NER.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize entity recognizer", slog.Any("error", err))
		os.Exit(1)
	}
	extractor := nl2sql.SelectExtractor(context.Background(), recognizer, cfg.NER.Timeout, logger)
	translator, err := nl2sql.NewEngine(registry, extractor, logger)
	if err != nil {
		logger.Error("failed to initialize translator", slog.Any("error", err))
		os.Exit(1)
	}

	objectStore, err := s3store.New(context.Background(), s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	engine, err := duckdbengine.NewEngine(objectStore, registry, cfg.Dataset.Name, logger)
	if err != nil {
		logger.Error("failed to initialize query engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()
	executor, err := query.NewExecutor(engine, query.ExecutorOptions{
		MaxRowLimit: cfg.Query.RowLimit,
		Timeout:     cfg.Query.Timeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to initialize query executor", slog.Any("error", err))
		os.Exit(1)
	}

	historyRepo, historyDB, err := openHistory(cfg)
	if err != nil {
		logger.Error("failed to open history store", slog.Any("error", err))
		os.Exit(1)
	}
	if historyDB != nil {
		defer func() { _ = historyDB.Close() }()
	}

	deps := api.Dependencies{
		Logger:     logger,
		Registry:   registry,
		Translator: translator,
		Runner:     executor,
		History:    historyRepo,
		Readiness: api.CombineReadinessChecks(
			api.CheckHistory(historyRepo),
			api.CheckRunner(executor.Ping),
		),
		DependencyTimeout: cfg.Query.Timeout,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		if validator.Len() == 0 {
			logger.Warn("auth is required but no static keys are configured; every protected request will be rejected")
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("dataset", cfg.Dataset.Name),
			slog.Bool("history_persistent", historyDB != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// openHistory uses Postgres when a DSN is configured and a bounded in-memory store otherwise.
func openHistory(cfg config.Config) (history.Repository, *sql.DB, error) {
	if cfg.History.DSN == "" {
		return history.NewMemoryRepository(cfg.History.MemoryLimit), nil, nil
	}
	db, err := historypg.Open(context.Background(), historypg.DBConfig{
		DSN:             cfg.History.DSN,
		MaxOpenConns:    cfg.History.MaxOpenConns,
		MaxIdleConns:    cfg.History.MaxIdleConns,
		ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.History.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	return historypg.NewRepository(db), db, nil
}
