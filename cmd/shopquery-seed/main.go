package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shopquery/shopquery/internal/config"
	"github.com/shopquery/shopquery/internal/dataset"
	"github.com/shopquery/shopquery/internal/observability"
	"github.com/shopquery/shopquery/internal/schema"
	s3store "github.com/shopquery/shopquery/internal/storage/s3"
)

func main() {
	force := flag.Bool("force", false, "republish even when the dataset already exists")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("shopquery-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := s3store.New(ctx, s3store.Config{
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

	exists, err := dataset.Exists(ctx, store, cfg.Dataset.Name)
	if err != nil {
		logger.Error("failed to check dataset", slog.Any("error", err))
		os.Exit(1)
	}
	if exists && !*force {
		logger.Info("dataset already published; use -force to replace it", slog.String("dataset", cfg.Dataset.Name))
		return
	}

	registry, err := schema.Default()
	if err != nil {
		logger.Error("failed to load schema registry", slog.Any("error", err))
		os.Exit(1)
	}
	d, err := dataset.NewGenerator(cfg.Dataset.Seed).Generate(cfg.Dataset.Customers, cfg.Dataset.Orders)
	if err != nil {
		logger.Error("failed to generate dataset", slog.Any("error", err))
		os.Exit(1)
	}
	manifest, err := dataset.Publisher{Store: store, Registry: registry, Logger: logger}.Publish(ctx, cfg.Dataset.Name, cfg.Dataset.Seed, d)
	if err != nil {
		logger.Error("failed to publish dataset", slog.Any("error", err))
		os.Exit(1)
	}
	for _, table := range manifest.Tables {
		logger.Info("table published",
			slog.String("table", table.Name),
			slog.String("key", table.Key),
			slog.Int64("rows", table.Rows),
		)
	}
}
