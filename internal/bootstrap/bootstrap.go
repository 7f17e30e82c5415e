// Package bootstrap wires configuration, infrastructure and use cases into
// one App shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearclaim/evidence-engine/internal/config"
	"github.com/clearclaim/evidence-engine/internal/core/aggregate"
	"github.com/clearclaim/evidence-engine/internal/core/detect"
	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
	"github.com/clearclaim/evidence-engine/internal/core/route"
	"github.com/clearclaim/evidence-engine/internal/core/usecase"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/analyzer/contentstudio"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/extractor/localdoc"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/normalizer"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/queue/nats"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/repository/postgres"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/resilience"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/storage/localfs"
)

type App struct {
	Config  config.Config
	Catalog config.AnalyzerCatalog

	Queue   ports.MessageQueue
	Repo    ports.EvidenceRepository
	Results ports.ResultRepository

	IngestUC    ports.BatchIngestor
	ProcessUC   ports.BatchProcessor
	AggregateUC ports.CaseAggregator
	ReadUC      ports.BatchReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts ...usecase.ProcessOption) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewEvidenceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure evidence schema: %w", err)
	}
	results := postgres.NewResultRepository(db)
	if err := results.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure result schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		RetryBackoffBase: cfg.RetryBackoffBase,
		BreakerEnabled:   cfg.BreakerEnabled,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	catalog, err := config.LoadCatalog(cfg.AnalyzerCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load analyzer catalog: %w", err)
	}
	router := route.NewRouter(detect.NewDetector(), route.Config{
		DocumentAnalyzerID: catalog.Document.CustomID,
		ImageAnalyzerID:    catalog.Image.CustomID,
		VideoAnalyzerID:    catalog.Video.CustomID,
		MaxImageBytes:      catalog.Image.MaxBytes,
		MaxVideoBytes:      catalog.Video.MaxBytes,
	})

	analyzer := contentstudio.New(cfg.ContentStudioURL, cfg.ContentStudioAPIKey, contentstudio.Options{
		RequestsPerSecond: cfg.ContentStudioRPS,
		Burst:             cfg.ContentStudioBurst,
		Timeout:           time.Duration(cfg.ContentStudioTimeout) * time.Second,
	})

	normalizers := []ports.ExtractionNormalizer{
		normalizer.NewDocumentNormalizer(),
		normalizer.NewImageNormalizer(),
		normalizer.NewVideoNormalizer(),
	}

	processOpts := []usecase.ProcessOption{
		usecase.WithWorkerCount(cfg.WorkerCount),
		usecase.WithBatchTimeout(time.Duration(cfg.BatchTimeoutSeconds) * time.Second),
		usecase.WithProgress(func(fileID string, completed, total int, status domain.ProcessingStatus) {
			slog.Info("file_processed",
				"file_id", fileID,
				"completed", completed,
				"total", total,
				"status", status,
			)
		}),
	}
	if cfg.LocalFallbackEnabled {
		processOpts = append(processOpts, usecase.WithLocalDocumentExtractor(localdoc.NewExtractor()))
	}
	processOpts = append(processOpts, opts...)

	ingestUC := usecase.NewIngestBatchUseCase(repo, storage, queue)
	processUC := usecase.NewProcessBatchUseCase(
		repo, results, storage, router, analyzer, normalizers,
		executor, contentstudio.ClassifyError,
		processOpts...,
	)
	aggregateUC := usecase.NewAggregateCaseUseCase(results, aggregate.NewAggregator())
	readUC := usecase.NewReadBatchUseCase(repo, results)

	return &App{
		Config:  cfg,
		Catalog: catalog,

		Queue:   queue,
		Repo:    repo,
		Results: results,

		IngestUC:    ingestUC,
		ProcessUC:   processUC,
		AggregateUC: aggregateUC,
		ReadUC:      readUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
