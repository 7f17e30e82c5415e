package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processing_results (
	file_id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	case_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	media_type TEXT NOT NULL,
	status TEXT NOT NULL,
	analyzer_id TEXT,
	raw_response JSONB,
	extraction JSONB,
	error_message TEXT,
	elapsed_ns BIGINT NOT NULL DEFAULT 0,
	retry_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS case_aggregates (
	case_id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	aggregated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processing_results_batch_id ON processing_results(batch_id);
CREATE INDEX IF NOT EXISTS idx_processing_results_case_status ON processing_results(case_id, status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveResult upserts on file id so re-running a batch replaces the previous
// outcome instead of duplicating it.
func (r *ResultRepository) SaveResult(ctx context.Context, result *domain.ProcessingResult) error {
	rawJSON, err := nullableJSON(result.RawResponse)
	if err != nil {
		return fmt.Errorf("marshal raw response: %w", err)
	}
	extractionJSON, err := nullableJSON(result.Extraction)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO processing_results (
	file_id, batch_id, case_id, filename, media_type, status, analyzer_id,
	raw_response, extraction, error_message, elapsed_ns, retry_count, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (file_id) DO UPDATE SET
	status = EXCLUDED.status,
	analyzer_id = EXCLUDED.analyzer_id,
	raw_response = EXCLUDED.raw_response,
	extraction = EXCLUDED.extraction,
	error_message = EXCLUDED.error_message,
	elapsed_ns = EXCLUDED.elapsed_ns,
	retry_count = EXCLUDED.retry_count,
	created_at = EXCLUDED.created_at
`,
		result.FileID, result.BatchID, result.CaseID, result.Filename, string(result.MediaType),
		string(result.Status), result.AnalyzerID, rawJSON, extractionJSON, result.Error,
		int64(result.Elapsed), result.RetryCount, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert processing result: %w", err)
	}
	return nil
}

func (r *ResultRepository) ListResultsByBatch(ctx context.Context, batchID string) ([]domain.ProcessingResult, error) {
	return r.listResults(ctx, `
SELECT file_id, batch_id, case_id, filename, media_type, status, analyzer_id, raw_response, extraction, error_message, elapsed_ns, retry_count, created_at
FROM processing_results
WHERE batch_id = $1
ORDER BY created_at, file_id
`, batchID)
}

func (r *ResultRepository) ListCompletedResultsByCase(ctx context.Context, caseID string) ([]domain.ProcessingResult, error) {
	return r.listResults(ctx, `
SELECT file_id, batch_id, case_id, filename, media_type, status, analyzer_id, raw_response, extraction, error_message, elapsed_ns, retry_count, created_at
FROM processing_results
WHERE case_id = $1 AND status = 'completed'
ORDER BY created_at, file_id
`, caseID)
}

func (r *ResultRepository) listResults(ctx context.Context, query string, arg string) ([]domain.ProcessingResult, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query processing results: %w", err)
	}
	defer rows.Close()

	var results []domain.ProcessingResult
	for rows.Next() {
		var (
			result        domain.ProcessingResult
			mediaType     string
			status        string
			rawJSON       []byte
			extractionRaw []byte
			elapsed       int64
		)
		err := rows.Scan(
			&result.FileID, &result.BatchID, &result.CaseID, &result.Filename, &mediaType, &status,
			&result.AnalyzerID, &rawJSON, &extractionRaw, &result.Error, &elapsed, &result.RetryCount, &result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan processing result: %w", err)
		}

		result.MediaType = domain.MediaType(mediaType)
		result.Status = domain.ProcessingStatus(status)
		result.Elapsed = time.Duration(elapsed)
		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &result.RawResponse); err != nil {
				return nil, fmt.Errorf("unmarshal raw response: %w", err)
			}
		}
		if len(extractionRaw) > 0 {
			if err := json.Unmarshal(extractionRaw, &result.Extraction); err != nil {
				return nil, fmt.Errorf("unmarshal extraction: %w", err)
			}
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing results: %w", err)
	}
	return results, nil
}

func (r *ResultRepository) SaveAggregate(ctx context.Context, aggregate *domain.AggregatedResult) error {
	payload, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO case_aggregates (case_id, payload, aggregated_at)
VALUES ($1,$2,$3)
ON CONFLICT (case_id) DO UPDATE SET
	payload = EXCLUDED.payload,
	aggregated_at = EXCLUDED.aggregated_at
`, aggregate.CaseID, payload, aggregate.AggregatedAt)
	if err != nil {
		return fmt.Errorf("upsert case aggregate: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetAggregate(ctx context.Context, caseID string) (*domain.AggregatedResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload FROM case_aggregates WHERE case_id = $1
`, caseID)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEvidenceNotFound, "get aggregate", fmt.Errorf("case %s", caseID))
		}
		return nil, fmt.Errorf("scan aggregate: %w", err)
	}

	var aggregate domain.AggregatedResult
	if err := json.Unmarshal(payload, &aggregate); err != nil {
		return nil, fmt.Errorf("unmarshal aggregate: %w", err)
	}
	return &aggregate, nil
}

func nullableJSON(v any) (any, error) {
	switch value := v.(type) {
	case map[string]any:
		if value == nil {
			return nil, nil
		}
	case *domain.Extraction:
		if value == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
