package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type EvidenceRepository struct {
	db *sql.DB
}

func NewEvidenceRepository(db *sql.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *EvidenceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS evidence_batches (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	status TEXT NOT NULL,
	file_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence_files (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL,
	case_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT,
	storage_path TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_batches_case_id ON evidence_batches(case_id);
CREATE INDEX IF NOT EXISTS idx_evidence_files_batch_id ON evidence_files(batch_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *EvidenceRepository) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO evidence_batches (id, case_id, status, file_count, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		batch.ID, batch.CaseID, string(batch.Status), batch.FileCount, batch.Error, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *EvidenceRepository) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, case_id, status, file_count, error_message, created_at, updated_at
FROM evidence_batches
WHERE id = $1
`, batchID)

	var batch domain.Batch
	var status string

	err := row.Scan(&batch.ID, &batch.CaseID, &status, &batch.FileCount, &batch.Error, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id %s", batchID))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	batch.Status = domain.BatchStatus(status)
	return &batch, nil
}

func (r *EvidenceRepository) UpdateBatchStatus(ctx context.Context, batchID string, status domain.BatchStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE evidence_batches
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, batchID, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("id %s", batchID))
	}
	return nil
}

func (r *EvidenceRepository) CreateFile(ctx context.Context, batchID string, file *domain.MediaFile) error {
	metadata := file.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO evidence_files (id, batch_id, case_id, filename, content_type, storage_path, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		file.ID, batchID, file.CaseID, file.Filename, file.ContentType, file.StoragePath, metadataJSON, file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence file: %w", err)
	}
	return nil
}

func (r *EvidenceRepository) ListFilesByBatch(ctx context.Context, batchID string) ([]domain.MediaFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, case_id, filename, content_type, storage_path, metadata, created_at
FROM evidence_files
WHERE batch_id = $1
ORDER BY created_at, id
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query evidence files: %w", err)
	}
	defer rows.Close()

	var files []domain.MediaFile
	for rows.Next() {
		var file domain.MediaFile
		var metadataRaw []byte
		if err := rows.Scan(&file.ID, &file.CaseID, &file.Filename, &file.ContentType, &file.StoragePath, &metadataRaw, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence file: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &file.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence files: %w", err)
	}
	return files, nil
}
