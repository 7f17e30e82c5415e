package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clearclaim/evidence-engine/internal/core/detect"
	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
	"github.com/clearclaim/evidence-engine/internal/core/route"
	"github.com/clearclaim/evidence-engine/internal/infrastructure/resilience"
)

var (
	pdfBytes = []byte("%PDF-1.4\nminimal")
	pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}
)

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 3,
		RetryBackoffBase: 2.0,
		RetryBackoffUnit: time.Millisecond,
		RetryMaxBackoff:  10 * time.Millisecond,
		BreakerEnabled:   false,
	})
}

func transientClassifier(err error) resilience.ErrorClassification {
	return resilience.ErrorClassification{
		Retryable:     domain.IsKind(err, domain.ErrTemporary),
		RecordFailure: true,
	}
}

type analyzerFake struct {
	mu    sync.Mutex
	calls map[string]int
	// analyze decides the outcome given the media kind and the 1-based
	// call number for that kind.
	analyze func(kind string, call int) (map[string]any, error)
}

func newAnalyzerFake(analyze func(kind string, call int) (map[string]any, error)) *analyzerFake {
	return &analyzerFake{calls: map[string]int{}, analyze: analyze}
}

func (f *analyzerFake) do(kind string) (map[string]any, error) {
	f.mu.Lock()
	f.calls[kind]++
	call := f.calls[kind]
	f.mu.Unlock()
	return f.analyze(kind, call)
}

func (f *analyzerFake) AnalyzeDocument(_ context.Context, _ []byte, _ string) (map[string]any, error) {
	return f.do("document")
}
func (f *analyzerFake) AnalyzeImage(_ context.Context, _ []byte, _ string) (map[string]any, error) {
	return f.do("image")
}
func (f *analyzerFake) AnalyzeVideo(_ context.Context, _ []byte, _ string) (map[string]any, error) {
	return f.do("video")
}

func (f *analyzerFake) callCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

type normalizerFake struct {
	mediaType domain.MediaType
	err       error
	panicMsg  string
}

func (f *normalizerFake) MediaType() domain.MediaType { return f.mediaType }

func (f *normalizerFake) Normalize(map[string]any) (*domain.Extraction, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	switch f.mediaType {
	case domain.MediaTypeDocument:
		return &domain.Extraction{Document: &domain.DocumentExtraction{VehicleMake: "Toyota"}}, nil
	case domain.MediaTypeImage:
		return &domain.Extraction{Image: &domain.ImageExtraction{}}, nil
	default:
		return &domain.Extraction{Video: &domain.VideoExtraction{}}, nil
	}
}

func allNormalizers() []ports.ExtractionNormalizer {
	return []ports.ExtractionNormalizer{
		&normalizerFake{mediaType: domain.MediaTypeDocument},
		&normalizerFake{mediaType: domain.MediaTypeImage},
		&normalizerFake{mediaType: domain.MediaTypeVideo},
	}
}

type processRepoFake struct {
	mu       sync.Mutex
	batch    *domain.Batch
	files    []domain.MediaFile
	statuses []domain.BatchStatus
	listErr  error
}

func (f *processRepoFake) CreateBatch(context.Context, *domain.Batch) error {
	return errors.New("not implemented")
}
func (f *processRepoFake) GetBatch(_ context.Context, batchID string) (*domain.Batch, error) {
	if f.batch == nil || f.batch.ID != batchID {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New(batchID))
	}
	copyBatch := *f.batch
	return &copyBatch, nil
}
func (f *processRepoFake) UpdateBatchStatus(_ context.Context, _ string, status domain.BatchStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}
func (f *processRepoFake) CreateFile(context.Context, string, *domain.MediaFile) error {
	return errors.New("not implemented")
}
func (f *processRepoFake) ListFilesByBatch(context.Context, string) ([]domain.MediaFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

type resultRepoFake struct {
	mu      sync.Mutex
	saved   []domain.ProcessingResult
	saveErr error
}

func (f *resultRepoFake) SaveResult(_ context.Context, result *domain.ProcessingResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *result)
	return nil
}
func (f *resultRepoFake) ListResultsByBatch(context.Context, string) ([]domain.ProcessingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}
func (f *resultRepoFake) ListCompletedResultsByCase(context.Context, string) ([]domain.ProcessingResult, error) {
	return nil, errors.New("not implemented")
}
func (f *resultRepoFake) SaveAggregate(context.Context, *domain.AggregatedResult) error {
	return errors.New("not implemented")
}
func (f *resultRepoFake) GetAggregate(context.Context, string) (*domain.AggregatedResult, error) {
	return nil, errors.New("not implemented")
}

type noStorage struct{}

func (noStorage) Save(context.Context, string, io.Reader) error { return errors.New("not implemented") }
func (noStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func okAnalyze(string, int) (map[string]any, error) {
	return map[string]any{"fields": map[string]any{}}, nil
}

func newProcessUseCase(analyzer ports.EvidenceAnalyzer, opts ...ProcessOption) (*ProcessBatchUseCase, *processRepoFake, *resultRepoFake) {
	repo := &processRepoFake{}
	results := &resultRepoFake{}
	router := route.NewRouter(detect.NewDetector(), route.Config{})
	uc := NewProcessBatchUseCase(
		repo, results, noStorage{}, router, analyzer,
		allNormalizers(), fastExecutor(), transientClassifier, opts...,
	)
	return uc, repo, results
}

func testBatch() *domain.Batch {
	return &domain.Batch{ID: "batch-1", CaseID: "case-1", Status: domain.BatchSubmitted}
}

func TestProcessFilesMixedOutcomes(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	uc, _, _ := newProcessUseCase(analyzer)

	files := []domain.MediaFile{
		{ID: "f-doc", Filename: "report.pdf", Data: pdfBytes},
		{ID: "f-img", Filename: "damage.png", Data: pngBytes},
		{ID: "f-unknown", Filename: "note.xyz", Data: []byte{0x00, 0x01, 0x02}},
	}

	result := uc.ProcessFiles(context.Background(), testBatch(), files)

	if result.Total != 3 || result.Completed != 2 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	byID := map[string]domain.ProcessingResult{}
	for _, r := range result.Results {
		byID[r.FileID] = r
	}
	if byID["f-doc"].Status != domain.ProcessingCompleted || byID["f-doc"].MediaType != domain.MediaTypeDocument {
		t.Fatalf("unexpected document result: %+v", byID["f-doc"])
	}
	if byID["f-doc"].Extraction == nil || byID["f-doc"].Extraction.Document == nil {
		t.Fatalf("expected document extraction, got %+v", byID["f-doc"].Extraction)
	}
	if byID["f-unknown"].Status != domain.ProcessingSkipped {
		t.Fatalf("undetectable file must be skipped, got %s", byID["f-unknown"].Status)
	}
	if !strings.Contains(byID["f-unknown"].Error, "unsupported media type") {
		t.Fatalf("expected unsupported media type error, got %q", byID["f-unknown"].Error)
	}
}

func TestProcessFilesEmptyBatch(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	uc, _, _ := newProcessUseCase(analyzer)

	result := uc.ProcessFiles(context.Background(), testBatch(), nil)

	if result.Total != 0 || len(result.Results) != 0 {
		t.Fatalf("expected zero-valued result, got %+v", result)
	}
	if result.FinishedAt.IsZero() {
		t.Fatalf("expected finished timestamp")
	}
	if analyzer.callCount("document")+analyzer.callCount("image")+analyzer.callCount("video") != 0 {
		t.Fatalf("analyzer must not be called for an empty batch")
	}
}

func TestProcessFileTransientFailureIsRetried(t *testing.T) {
	analyzer := newAnalyzerFake(func(kind string, call int) (map[string]any, error) {
		if call == 1 {
			return nil, domain.WrapError(domain.ErrTemporary, "analyze", errors.New("503 from provider"))
		}
		return okAnalyze(kind, call)
	})
	uc, _, _ := newProcessUseCase(analyzer)

	result := uc.ProcessFile(context.Background(), testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "report.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingCompleted {
		t.Fatalf("expected completed after retry, got %s (%s)", result.Status, result.Error)
	}
	if result.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", result.RetryCount)
	}
	if analyzer.callCount("document") != 2 {
		t.Fatalf("expected 2 analyzer calls, got %d", analyzer.callCount("document"))
	}
}

func TestProcessFilePermanentFailureIsNotRetried(t *testing.T) {
	analyzer := newAnalyzerFake(func(string, int) (map[string]any, error) {
		return nil, errors.New("analyzer rejected the payload")
	})
	uc, _, _ := newProcessUseCase(analyzer)

	result := uc.ProcessFile(context.Background(), testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "report.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if result.RetryCount != 0 {
		t.Fatalf("permanent errors must not be retried, got %d retries", result.RetryCount)
	}
	if analyzer.callCount("document") != 1 {
		t.Fatalf("expected single analyzer call, got %d", analyzer.callCount("document"))
	}
}

func TestProcessFilesFailureIsolation(t *testing.T) {
	analyzer := newAnalyzerFake(func(kind string, call int) (map[string]any, error) {
		if kind == "image" {
			return nil, errors.New("image analyzer broken")
		}
		return okAnalyze(kind, call)
	})
	uc, _, _ := newProcessUseCase(analyzer)

	result := uc.ProcessFiles(context.Background(), testBatch(), []domain.MediaFile{
		{ID: "f-doc", Filename: "report.pdf", Data: pdfBytes},
		{ID: "f-img", Filename: "damage.png", Data: pngBytes},
	})

	if result.Completed != 1 || result.Failed != 1 {
		t.Fatalf("one failure must not sink the batch: %+v", result)
	}
}

func TestProcessFileLocalDocumentFallback(t *testing.T) {
	analyzer := newAnalyzerFake(func(string, int) (map[string]any, error) {
		return nil, errors.New("provider unreachable")
	})
	extractor := localExtractorFake{doc: &domain.DocumentExtraction{DocumentType: "repair-estimate"}}
	uc, _, _ := newProcessUseCase(analyzer, WithLocalDocumentExtractor(extractor))

	result := uc.ProcessFile(context.Background(), testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "estimate.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingCompleted {
		t.Fatalf("expected degraded completion, got %s (%s)", result.Status, result.Error)
	}
	if result.AnalyzerID != LocalFallbackAnalyzerID {
		t.Fatalf("expected fallback analyzer id, got %s", result.AnalyzerID)
	}
	if result.Extraction == nil || result.Extraction.Document == nil || result.Extraction.Document.DocumentType != "repair-estimate" {
		t.Fatalf("expected local extraction, got %+v", result.Extraction)
	}
}

type localExtractorFake struct {
	doc *domain.DocumentExtraction
	err error
}

func (f localExtractorFake) Extract(string, []byte) (*domain.DocumentExtraction, error) {
	return f.doc, f.err
}

func TestProcessFileExpiredDeadlineSkipsLocalFallback(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	extractor := localExtractorFake{doc: &domain.DocumentExtraction{DocumentType: "repair-estimate"}}
	uc, _, _ := newProcessUseCase(analyzer, WithLocalDocumentExtractor(extractor))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result := uc.ProcessFile(ctx, testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "estimate.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingFailed {
		t.Fatalf("file past its deadline must fail, got %s (%s)", result.Status, result.Error)
	}
	if result.AnalyzerID == LocalFallbackAnalyzerID {
		t.Fatalf("local fallback must not run past the deadline")
	}
	if !strings.Contains(result.Error, context.DeadlineExceeded.Error()) {
		t.Fatalf("expected deadline error, got %q", result.Error)
	}
	if analyzer.callCount("document") != 0 {
		t.Fatalf("no analyzer call may start past the deadline, got %d", analyzer.callCount("document"))
	}
}

func TestProcessFileCancelledAnalyzerCallSkipsLocalFallback(t *testing.T) {
	analyzer := newAnalyzerFake(func(string, int) (map[string]any, error) {
		return nil, fmt.Errorf("analyze document: %w", context.Canceled)
	})
	extractor := localExtractorFake{doc: &domain.DocumentExtraction{DocumentType: "repair-estimate"}}
	uc, _, _ := newProcessUseCase(analyzer, WithLocalDocumentExtractor(extractor))

	result := uc.ProcessFile(context.Background(), testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "estimate.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingFailed {
		t.Fatalf("cancelled analyzer call must fail, got %s", result.Status)
	}
	if result.AnalyzerID == LocalFallbackAnalyzerID {
		t.Fatalf("local fallback must not mask a cancellation")
	}
}

func TestProcessFileRecoversFromPanic(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	repo := &processRepoFake{}
	results := &resultRepoFake{}
	router := route.NewRouter(detect.NewDetector(), route.Config{})
	normalizers := []ports.ExtractionNormalizer{
		&normalizerFake{mediaType: domain.MediaTypeDocument, panicMsg: "corrupt field map"},
	}
	uc := NewProcessBatchUseCase(repo, results, noStorage{}, router, analyzer, normalizers, fastExecutor(), transientClassifier)

	result := uc.ProcessFile(context.Background(), testBatch(), domain.MediaFile{
		ID: "f-doc", Filename: "report.pdf", Data: pdfBytes,
	})

	if result.Status != domain.ProcessingFailed {
		t.Fatalf("expected failed after panic, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "panic while processing file") {
		t.Fatalf("expected panic marker in error, got %q", result.Error)
	}
}

func TestProcessFilesProgressIsSerializedAndComplete(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)

	var (
		mu        sync.Mutex
		inFlight  int
		completed []int
	)
	progress := func(_ string, done, total int, _ domain.ProcessingStatus) {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			mu.Unlock()
			t.Error("progress callback ran concurrently")
			return
		}
		completed = append(completed, done)
		inFlight--
		mu.Unlock()
	}

	uc, _, _ := newProcessUseCase(analyzer, WithProgress(progress), WithWorkerCount(4))

	var files []domain.MediaFile
	for i := 0; i < 12; i++ {
		files = append(files, domain.MediaFile{
			ID:       fmt.Sprintf("f-%d", i),
			Filename: fmt.Sprintf("report-%d.pdf", i),
			Data:     pdfBytes,
		})
	}

	result := uc.ProcessFiles(context.Background(), testBatch(), files)
	if result.Completed != 12 {
		t.Fatalf("expected 12 completed, got %d", result.Completed)
	}

	if len(completed) != 12 {
		t.Fatalf("expected 12 progress calls, got %d", len(completed))
	}
	seen := map[int]bool{}
	for _, done := range completed {
		seen[done] = true
	}
	for i := 1; i <= 12; i++ {
		if !seen[i] {
			t.Fatalf("missing progress notification for count %d: %v", i, completed)
		}
	}
}

func TestProcessBatchByIDPersistsResultsAndStatus(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	uc, repo, results := newProcessUseCase(analyzer)
	repo.batch = testBatch()
	repo.files = []domain.MediaFile{
		{ID: "f-doc", Filename: "report.pdf", Data: pdfBytes},
		{ID: "f-img", Filename: "damage.png", Data: pngBytes},
	}

	batchResult, err := uc.ProcessBatchByID(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("ProcessBatchByID() error = %v", err)
	}
	if batchResult.Completed != 2 {
		t.Fatalf("expected 2 completed, got %+v", batchResult)
	}
	if len(results.saved) != 2 {
		t.Fatalf("expected 2 persisted results, got %d", len(results.saved))
	}
	if len(repo.statuses) != 2 || repo.statuses[0] != domain.BatchProcessing || repo.statuses[1] != domain.BatchCompleted {
		t.Fatalf("expected processing then completed, got %v", repo.statuses)
	}
}

func TestProcessBatchByIDUnknownBatch(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	uc, _, _ := newProcessUseCase(analyzer)

	_, err := uc.ProcessBatchByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected batch not found, got %v", err)
	}
}

func TestProcessBatchByIDAllFailedMarksBatchFailed(t *testing.T) {
	analyzer := newAnalyzerFake(func(string, int) (map[string]any, error) {
		return nil, errors.New("provider down")
	})
	uc, repo, _ := newProcessUseCase(analyzer)
	repo.batch = testBatch()
	repo.files = []domain.MediaFile{{ID: "f-doc", Filename: "report.pdf", Data: pdfBytes}}

	batchResult, err := uc.ProcessBatchByID(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("ProcessBatchByID() error = %v", err)
	}
	if batchResult.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", batchResult)
	}
	if repo.statuses[len(repo.statuses)-1] != domain.BatchFailed {
		t.Fatalf("expected terminal failed status, got %v", repo.statuses)
	}
}

func TestProcessBatchByIDSaveResultErrorMarksBatchFailed(t *testing.T) {
	analyzer := newAnalyzerFake(okAnalyze)
	uc, repo, results := newProcessUseCase(analyzer)
	repo.batch = testBatch()
	repo.files = []domain.MediaFile{{ID: "f-doc", Filename: "report.pdf", Data: pdfBytes}}
	results.saveErr = errors.New("results table unavailable")

	_, err := uc.ProcessBatchByID(context.Background(), "batch-1")
	if err == nil || !strings.Contains(err.Error(), "results table unavailable") {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if repo.statuses[len(repo.statuses)-1] != domain.BatchFailed {
		t.Fatalf("batch must not stay in processing, got %v", repo.statuses)
	}
}
