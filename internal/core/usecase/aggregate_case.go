package usecase

import (
	"context"
	"fmt"

	"github.com/clearclaim/evidence-engine/internal/core/aggregate"
	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
)

type AggregateCaseUseCase struct {
	results    ports.ResultRepository
	aggregator *aggregate.Aggregator
}

func NewAggregateCaseUseCase(results ports.ResultRepository, aggregator *aggregate.Aggregator) *AggregateCaseUseCase {
	return &AggregateCaseUseCase{
		results:    results,
		aggregator: aggregator,
	}
}

// AggregateCase fuses every persisted completed result of one case into a
// fresh aggregate and stores it. Re-running after new evidence arrives
// replaces the stored aggregate.
func (uc *AggregateCaseUseCase) AggregateCase(ctx context.Context, caseID string) (*domain.AggregatedResult, error) {
	completed, err := uc.results.ListCompletedResultsByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("list completed results: %w", err)
	}

	result := uc.aggregator.Aggregate(completed, caseID)

	if err := uc.results.SaveAggregate(ctx, result); err != nil {
		return nil, fmt.Errorf("save case aggregate: %w", err)
	}
	return result, nil
}
