package ports

import (
	"context"
	"io"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

// EvidenceAnalyzer is the boundary to the external content-understanding
// service. Errors must be classifiable as transient or permanent so the
// retry layer can decide.
type EvidenceAnalyzer interface {
	AnalyzeDocument(ctx context.Context, data []byte, analyzerID string) (map[string]any, error)
	AnalyzeImage(ctx context.Context, data []byte, analyzerID string) (map[string]any, error)
	AnalyzeVideo(ctx context.Context, data []byte, analyzerID string) (map[string]any, error)
}

// ExtractionNormalizer turns one media type's raw analyzer response into a
// typed record. Selected once after detection, never re-dispatched.
type ExtractionNormalizer interface {
	MediaType() domain.MediaType
	Normalize(raw map[string]any) (*domain.Extraction, error)
}

// LocalDocumentExtractor produces a degraded document record without the
// external service (PDF text scan, spreadsheet estimate totals).
type LocalDocumentExtractor interface {
	Extract(filename string, data []byte) (*domain.DocumentExtraction, error)
}

// EvidenceRepository persists batch and file metadata.
type EvidenceRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, batchID string, status domain.BatchStatus, errMessage string) error
	CreateFile(ctx context.Context, batchID string, file *domain.MediaFile) error
	ListFilesByBatch(ctx context.Context, batchID string) ([]domain.MediaFile, error)
}

// ResultRepository persists per-file processing results and case aggregates.
type ResultRepository interface {
	SaveResult(ctx context.Context, result *domain.ProcessingResult) error
	ListResultsByBatch(ctx context.Context, batchID string) ([]domain.ProcessingResult, error)
	ListCompletedResultsByCase(ctx context.Context, caseID string) ([]domain.ProcessingResult, error)
	SaveAggregate(ctx context.Context, aggregate *domain.AggregatedResult) error
	GetAggregate(ctx context.Context, caseID string) (*domain.AggregatedResult, error)
}

// ObjectStorage stores raw evidence bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes batch-submitted events.
type MessageQueue interface {
	PublishBatchSubmitted(ctx context.Context, batchID string) error
	SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}
