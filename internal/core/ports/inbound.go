package ports

import (
	"context"
	"io"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

// UploadedFile is one part of a multipart batch submission.
type UploadedFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// BatchIngestor is the inbound contract for evidence submission.
type BatchIngestor interface {
	SubmitBatch(ctx context.Context, caseID string, files []UploadedFile) (*domain.Batch, error)
}

// BatchProcessor drives a submitted batch through the pipeline.
type BatchProcessor interface {
	ProcessBatchByID(ctx context.Context, batchID string) (*domain.BatchResult, error)
}

// CaseAggregator fuses persisted per-file results into one case record.
type CaseAggregator interface {
	AggregateCase(ctx context.Context, caseID string) (*domain.AggregatedResult, error)
}

// BatchReader is the inbound read model for batch state and results.
type BatchReader interface {
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, []domain.ProcessingResult, error)
}
