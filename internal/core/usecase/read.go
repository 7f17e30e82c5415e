package usecase

import (
	"context"
	"fmt"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
)

type ReadBatchUseCase struct {
	repo    ports.EvidenceRepository
	results ports.ResultRepository
}

func NewReadBatchUseCase(repo ports.EvidenceRepository, results ports.ResultRepository) *ReadBatchUseCase {
	return &ReadBatchUseCase{
		repo:    repo,
		results: results,
	}
}

// GetBatch returns the batch record together with whatever per-file results
// exist so far. A still-processing batch legitimately has fewer results than
// files.
func (uc *ReadBatchUseCase) GetBatch(ctx context.Context, batchID string) (*domain.Batch, []domain.ProcessingResult, error) {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch batch by id: %w", err)
	}

	results, err := uc.results.ListResultsByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("list batch results: %w", err)
	}
	return batch, results, nil
}
