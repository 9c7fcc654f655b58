package duckask

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/duckmesh/duckask/internal/config"
	"github.com/duckmesh/duckask/internal/nl2sql"
	"github.com/duckmesh/duckask/internal/query"
	"github.com/duckmesh/duckask/internal/query/duckdb"
	"github.com/duckmesh/duckask/internal/query/postgres"
	"github.com/duckmesh/duckask/internal/storage"
	"github.com/duckmesh/duckask/internal/storage/s3"
)

type (
	StoreFactory       func(ctx context.Context, cfg config.Config, logger *slog.Logger) (query.Store, error)
	GeneratorFactory   func(ctx context.Context, cfg config.Config) (nl2sql.Generator, error)
	ObjectStoreFactory func(ctx context.Context, cfg config.Config) (storage.ObjectStore, error)
)

func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (query.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.Open(ctx, postgres.DBConfig{DSN: cfg.Store.DSN, ConnMaxLifetime: cfg.Store.ConnMaxLifetime})
		if err != nil {
			return nil, err
		}
		return postgres.NewEngine(db), nil
	case config.StoreDriverDuckDB:
		engineCfg := duckdb.Config{Path: cfg.Store.DSN, Logger: logger}
		if cfg.Datasets.Enabled {
			objectStore, err := OpenObjectStore(ctx, cfg)
			if err != nil {
				return nil, err
			}
			engineCfg.Datasets = objectStore
		}
		return duckdb.Open(ctx, engineCfg)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func NewGenerator(ctx context.Context, cfg config.Config) (nl2sql.Generator, error) {
	switch cfg.AI.Provider {
	case config.AIProviderGemini:
		return nl2sql.NewGeminiGenerator(ctx, nl2sql.GeminiConfig{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
		})
	case config.AIProviderOpenAI:
		return nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
}

func OpenObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	return s3.New(ctx, s3.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
}
