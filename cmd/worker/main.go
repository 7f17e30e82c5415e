package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearclaim/evidence-engine/internal/bootstrap"
	"github.com/clearclaim/evidence-engine/internal/config"
	"github.com/clearclaim/evidence-engine/internal/observability/logging"
	"github.com/clearclaim/evidence-engine/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	batchTimeout := time.Duration(cfg.BatchTimeoutSeconds) * time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchSubmitted(ctx, func(handlerCtx context.Context, batchID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, batchTimeout)
		defer cancel()

		batch, batchErr := app.Repo.GetBatch(processCtx, batchID)
		if batchErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(batch.CreatedAt))
		}

		workerMetrics.StartBatch()
		started := time.Now()
		result, err := app.ProcessUC.ProcessBatchByID(processCtx, batchID)
		workerMetrics.FinishBatch(serviceName, time.Since(started))
		if result != nil {
			for _, fileResult := range result.Results {
				workerMetrics.ObserveFile(serviceName, fileResult)
			}
		}
		if err != nil {
			return err
		}

		// Refresh the persisted case record now that new results exist.
		if batchErr == nil {
			if _, aggErr := app.AggregateUC.AggregateCase(processCtx, batch.CaseID); aggErr != nil {
				slog.Error("case_aggregate_error", "case_id", batch.CaseID, "error", aggErr)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_shutdown_error", "error", err)
	}
}
