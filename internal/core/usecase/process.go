package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
	"github.com/clearclaim/evidence-engine/internal/core/route"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/resilience"
)

const defaultWorkerCount = 4

// LocalFallbackAnalyzerID marks results produced by the degraded local
// extractor when the external analyzer is unreachable.
const LocalFallbackAnalyzerID = "local-document-fallback"

type ProcessBatchUseCase struct {
	repo        ports.EvidenceRepository
	results     ports.ResultRepository
	storage     ports.ObjectStorage
	router      *route.Router
	analyzer    ports.EvidenceAnalyzer
	normalizers map[domain.MediaType]ports.ExtractionNormalizer
	localDoc    ports.LocalDocumentExtractor
	executor    *resilience.Executor
	classify    resilience.ErrorClassifier

	workers      int
	batchTimeout time.Duration
	routeOpts    route.Options
	progress     domain.ProgressFunc
}

type ProcessOption func(*ProcessBatchUseCase)

// WithWorkerCount bounds pipeline concurrency. Values below one fall back
// to the default.
func WithWorkerCount(workers int) ProcessOption {
	return func(uc *ProcessBatchUseCase) {
		if workers > 0 {
			uc.workers = workers
		}
	}
}

// WithBatchTimeout caps the wall-clock time of one batch run.
func WithBatchTimeout(timeout time.Duration) ProcessOption {
	return func(uc *ProcessBatchUseCase) {
		if timeout > 0 {
			uc.batchTimeout = timeout
		}
	}
}

// WithProgress registers a per-file completion callback. Invocations are
// serialized; the callback never runs concurrently with itself.
func WithProgress(progress domain.ProgressFunc) ProcessOption {
	return func(uc *ProcessBatchUseCase) {
		uc.progress = progress
	}
}

// WithRouteOptions overrides size validation and analyzer fallback behavior.
func WithRouteOptions(opts route.Options) ProcessOption {
	return func(uc *ProcessBatchUseCase) {
		uc.routeOpts = opts
	}
}

// WithLocalDocumentExtractor enables degraded document extraction when the
// external analyzer fails permanently.
func WithLocalDocumentExtractor(extractor ports.LocalDocumentExtractor) ProcessOption {
	return func(uc *ProcessBatchUseCase) {
		uc.localDoc = extractor
	}
}

func NewProcessBatchUseCase(
	repo ports.EvidenceRepository,
	results ports.ResultRepository,
	storage ports.ObjectStorage,
	router *route.Router,
	analyzer ports.EvidenceAnalyzer,
	normalizers []ports.ExtractionNormalizer,
	executor *resilience.Executor,
	classify resilience.ErrorClassifier,
	opts ...ProcessOption,
) *ProcessBatchUseCase {
	byType := make(map[domain.MediaType]ports.ExtractionNormalizer, len(normalizers))
	for _, normalizer := range normalizers {
		byType[normalizer.MediaType()] = normalizer
	}

	uc := &ProcessBatchUseCase{
		repo:        repo,
		results:     results,
		storage:     storage,
		router:      router,
		analyzer:    analyzer,
		normalizers: byType,
		executor:    executor,
		classify:    classify,
		workers:     defaultWorkerCount,
		routeOpts:   route.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessBatchByID loads a submitted batch, drives every file through the
// pipeline, persists the per-file results and flips the batch status.
func (uc *ProcessBatchUseCase) ProcessBatchByID(ctx context.Context, batchID string) (*domain.BatchResult, error) {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch by id: %w", err)
	}

	if err := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	files, err := uc.repo.ListFilesByBatch(ctx, batchID)
	if err != nil {
		if failErr := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchFailed, err.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, fmt.Errorf("list batch files: %w", err)
	}

	result := uc.ProcessFiles(ctx, batch, files)

	for i := range result.Results {
		if err := uc.results.SaveResult(ctx, &result.Results[i]); err != nil {
			// The batch must not stay stuck in processing.
			if failErr := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchFailed, err.Error()); failErr != nil {
				return nil, fmt.Errorf("save processing result: %w; mark failed status: %v", err, failErr)
			}
			return nil, fmt.Errorf("save processing result: %w", err)
		}
	}

	status := domain.BatchCompleted
	errMessage := ""
	if result.Completed == 0 && result.Total > 0 {
		status = domain.BatchFailed
		errMessage = "no file processed successfully"
	}
	if err := uc.repo.UpdateBatchStatus(ctx, batchID, status, errMessage); err != nil {
		return nil, fmt.Errorf("set terminal batch status: %w", err)
	}

	return result, nil
}

// ProcessFiles runs the bounded worker pool over one batch's files. An empty
// input yields a zero-valued result without starting any workers. A single
// file's failure never aborts the rest of the batch.
func (uc *ProcessBatchUseCase) ProcessFiles(ctx context.Context, batch *domain.Batch, files []domain.MediaFile) *domain.BatchResult {
	started := time.Now()
	out := &domain.BatchResult{
		BatchID: batch.ID,
		Total:   len(files),
		Results: []domain.ProcessingResult{},
	}
	if len(files) == 0 {
		out.FinishedAt = time.Now().UTC()
		return out
	}

	if uc.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.batchTimeout)
		defer cancel()
	}

	workers := uc.workers
	if workers > len(files) {
		workers = len(files)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan domain.MediaFile)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				result := uc.ProcessFile(ctx, batch, file)

				mu.Lock()
				out.Results = append(out.Results, result)
				switch result.Status {
				case domain.ProcessingCompleted:
					out.Completed++
				case domain.ProcessingSkipped:
					out.Skipped++
				default:
					out.Failed++
				}
				done := len(out.Results)
				if uc.progress != nil {
					uc.progress(result.FileID, done, out.Total, result.Status)
				}
				mu.Unlock()
			}
		}()
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)
	wg.Wait()

	out.Elapsed = time.Since(started)
	out.FinishedAt = time.Now().UTC()
	return out
}

// ProcessFile drives one file through detection, routing, analysis and
// normalization. It always returns a terminal result; errors are encoded in
// the result's status, never propagated.
func (uc *ProcessBatchUseCase) ProcessFile(ctx context.Context, batch *domain.Batch, file domain.MediaFile) (result domain.ProcessingResult) {
	started := time.Now()
	result = domain.ProcessingResult{
		FileID:    file.ID,
		Filename:  file.Filename,
		CaseID:    batch.CaseID,
		BatchID:   batch.ID,
		CreatedAt: started.UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = domain.ProcessingFailed
			result.Error = fmt.Sprintf("panic while processing file: %v", r)
		}
		result.Elapsed = time.Since(started)
	}()

	data, err := uc.loadData(ctx, file)
	if err != nil {
		result.Status = domain.ProcessingFailed
		result.Error = err.Error()
		return result
	}

	decision, err := uc.router.Route(data, file.Filename, file.ContentType, uc.routeOpts)
	if err != nil {
		// Unroutable files are skipped, not failed: the batch outcome
		// should not degrade because a caller attached a text note.
		if domain.IsKind(err, domain.ErrUnsupportedMediaType) || domain.IsKind(err, domain.ErrFileTooLarge) {
			result.Status = domain.ProcessingSkipped
		} else {
			result.Status = domain.ProcessingFailed
		}
		result.Error = err.Error()
		return result
	}
	result.MediaType = decision.MediaType
	result.AnalyzerID = decision.AnalyzerID

	raw, retries, err := uc.analyze(ctx, decision, data)
	result.RetryCount = retries
	if err != nil {
		// A cancelled or expired context is not a provider outage: the
		// file fails with the timeout error instead of completing
		// degraded, and no post-deadline extraction runs.
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			if extraction, ok := uc.localFallback(decision.MediaType, file.Filename, data); ok {
				result.Status = domain.ProcessingCompleted
				result.AnalyzerID = LocalFallbackAnalyzerID
				result.Extraction = extraction
				return result
			}
		}
		result.Status = domain.ProcessingFailed
		result.Error = err.Error()
		return result
	}
	result.RawResponse = raw

	normalizer, ok := uc.normalizers[decision.MediaType]
	if !ok {
		result.Status = domain.ProcessingFailed
		result.Error = fmt.Sprintf("no normalizer registered for media type %s", decision.MediaType)
		return result
	}
	extraction, err := normalizer.Normalize(raw)
	if err != nil {
		result.Status = domain.ProcessingFailed
		result.Error = fmt.Sprintf("normalize analyzer response: %v", err)
		return result
	}

	result.Status = domain.ProcessingCompleted
	result.Extraction = extraction
	return result
}

func (uc *ProcessBatchUseCase) loadData(ctx context.Context, file domain.MediaFile) ([]byte, error) {
	if len(file.Data) > 0 {
		return file.Data, nil
	}
	if file.StoragePath == "" {
		return nil, fmt.Errorf("file %s has no inline data and no storage path", file.ID)
	}

	reader, err := uc.storage.Open(ctx, file.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored evidence: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored evidence: %w", err)
	}
	return data, nil
}

func (uc *ProcessBatchUseCase) analyze(ctx context.Context, decision *domain.RoutingDecision, data []byte) (map[string]any, int, error) {
	var raw map[string]any

	call := func(ctx context.Context) error {
		var err error
		switch decision.MediaType {
		case domain.MediaTypeDocument:
			raw, err = uc.analyzer.AnalyzeDocument(ctx, data, decision.AnalyzerID)
		case domain.MediaTypeImage:
			raw, err = uc.analyzer.AnalyzeImage(ctx, data, decision.AnalyzerID)
		case domain.MediaTypeVideo:
			raw, err = uc.analyzer.AnalyzeVideo(ctx, data, decision.AnalyzerID)
		default:
			err = domain.WrapError(domain.ErrUnsupportedMediaType, "analyze evidence",
				fmt.Errorf("media type %s", decision.MediaType))
		}
		return err
	}

	retries, err := uc.executor.Execute(ctx, "analyze_"+string(decision.MediaType), call, uc.classify)
	if err != nil {
		return nil, retries, fmt.Errorf("analyze %s evidence: %w", decision.MediaType, err)
	}
	return raw, retries, nil
}

func (uc *ProcessBatchUseCase) localFallback(mediaType domain.MediaType, filename string, data []byte) (*domain.Extraction, bool) {
	if uc.localDoc == nil || mediaType != domain.MediaTypeDocument {
		return nil, false
	}
	doc, err := uc.localDoc.Extract(filename, data)
	if err != nil || doc == nil {
		return nil, false
	}
	return &domain.Extraction{Document: doc}, true
}
