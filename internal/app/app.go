// Package app assembles the import pipeline and its backing services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/async"
	"github.com/joseph-ayodele/menu-importer/internal/cache"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/extraction"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/llm"
	"github.com/joseph-ayodele/menu-importer/internal/llm/gemini"
	"github.com/joseph-ayodele/menu-importer/internal/llm/openai"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
	repo "github.com/joseph-ayodele/menu-importer/internal/repository"
	"github.com/joseph-ayodele/menu-importer/internal/retry"
	"github.com/joseph-ayodele/menu-importer/internal/server"
	"github.com/joseph-ayodele/menu-importer/internal/storage"
	"github.com/joseph-ayodele/menu-importer/internal/textextract"
)

// App is a wired pipeline plus everything that must be stopped with it.
type App struct {
	Config   *common.Config
	DB       *repo.DB
	Pipeline *pipeline.Pipeline
	Sources  *storage.Sources
	Pool     *async.WorkerPool
	Sweeper  *async.Sweeper

	closers []func()
	logger  *slog.Logger
}

// Build opens the database and wires every stage. The caller owns Close.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() { server.CloseDB(db, logger) })

	components := pipeline.Components{}
	if err := a.wireExtraction(ctx, &components); err != nil {
		a.Close()
		return nil, err
	}

	srcOpts := []storage.Option{}
	if cfg.Storage.Endpoint != "" {
		archiver, err := storage.NewS3Archiver(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create archiver: %w", err)
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure archive bucket: %w", err)
		}
		srcOpts = append(srcOpts, storage.WithArchiver(archiver))
		logger.Info("archive.enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}
	a.Sources = storage.NewSources(cfg.Import.UploadDir, logger, srcOpts...)

	catalog := repo.NewCatalogRepository(db, logger)
	jobs := repo.NewJobRepository(db, logger)

	// The pool and the finalizer refer to each other.
	var finalizer *importer.Finalizer
	a.Pool = async.NewWorkerPool(async.HandlerFunc(func(ctx context.Context, id uuid.UUID) error {
		return finalizer.ProcessJob(ctx, id)
	}), logger,
		async.WithWorkers(cfg.Import.Workers),
		async.WithQueueSize(cfg.Import.QueueSize),
		async.WithProcessTimeout(cfg.Import.ProcessTimeout),
	)
	finalizer = importer.NewFinalizer(catalog, jobs, logger,
		importer.WithAsyncThreshold(cfg.Import.AsyncThreshold),
		importer.WithQueue(a.Pool),
		importer.WithSources(a.Sources),
		importer.WithClaimPolicy(cfg.Import.StaleClaimAfter, cfg.Import.MaxAttempts),
	)
	a.Sweeper = async.NewSweeper(jobs, a.Pool, logger,
		cfg.Import.SweepInterval, cfg.Import.StaleClaimAfter, cfg.Import.MaxAttempts)

	components.Resolver = conflict.NewResolver(catalog, logger)
	components.Finalizer = finalizer
	components.Jobs = jobs
	a.Pipeline = pipeline.New(components, logger, pipeline.WithMaxSizeMB(cfg.Import.MaxUploadMB))
	return a, nil
}

// wireExtraction sets up text extraction and the model client. Without an API key text
// and PDF documents are rejected at preview time.
func (a *App) wireExtraction(ctx context.Context, c *pipeline.Components) error {
	cfg := a.Config
	if cfg.LLM.APIKey == "" {
		a.logger.Warn("llm.disabled", "reason", "no API key configured", "provider", cfg.LLM.Provider)
		return nil
	}
	model, err := newModel(ctx, cfg.LLM, a.logger)
	if err != nil {
		return err
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { _ = closer.Close() })
	}

	var opts []extraction.Option
	if cfg.Cache.Dir != "" || cfg.Cache.InMemory {
		cacheOpts := []cache.Option{cache.WithTTL(cfg.Cache.TTL)}
		if cfg.Cache.InMemory {
			cacheOpts = append(cacheOpts, cache.WithInMemory())
		}
		store, err := cache.Open(cfg.Cache.Dir, a.logger, cacheOpts...)
		if err != nil {
			return fmt.Errorf("open extraction cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		opts = append(opts, extraction.WithCache(store))
	}

	policy := retry.Policy{MaxAttempts: cfg.LLM.MaxAttempts, BaseDelay: cfg.LLM.BaseDelay}
	c.AI = extraction.NewOrchestrator(model, policy, a.logger, opts...)
	c.Text = textextract.NewExtractor(textextract.Config{
		Pdftotext:     cfg.Text.Pdftotext,
		MinTextLength: cfg.Text.MinTextLength,
	}, a.logger)
	return nil
}

func newModel(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.MenuExtractor, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM provider %q", cfg.Provider), nil)
}

// StartWorkers runs the job sweeper until ctx is done. The pool's workers are already running.
func (a *App) StartWorkers(ctx context.Context) {
	go a.Sweeper.Run(ctx)
}

// Health pings the database.
func (a *App) Health(ctx context.Context) error {
	if a.DB == nil {
		return errors.New("database not connected")
	}
	return server.PingDB(ctx, a.DB, a.logger, 2*time.Second)
}

// Close drains the worker pool and releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a.Pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		a.Pool.Shutdown(ctx)
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
