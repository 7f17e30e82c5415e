package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
)

type IngestBatchUseCase struct {
	repo    ports.EvidenceRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestBatchUseCase(
	repo ports.EvidenceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestBatchUseCase {
	return &IngestBatchUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// SubmitBatch stores the raw evidence, records batch and file metadata, and
// hands the batch to the worker over the queue. Nothing is analyzed inline.
func (uc *IngestBatchUseCase) SubmitBatch(
	ctx context.Context,
	caseID string,
	files []ports.UploadedFile,
) (*domain.Batch, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("empty case id"))
	}
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("no files submitted"))
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		Status:    domain.BatchSubmitted,
		FileCount: len(files),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch metadata: %w", err)
	}

	for _, upload := range files {
		fileID := uuid.NewString()
		storageKey := fmt.Sprintf("%s/%s_%s", batch.ID, fileID, sanitizeFilename(upload.Filename))

		if err := uc.storage.Save(ctx, storageKey, upload.Body); err != nil {
			return nil, fmt.Errorf("save evidence to object storage: %w", err)
		}

		file := &domain.MediaFile{
			ID:          fileID,
			Filename:    upload.Filename,
			ContentType: upload.ContentType,
			CaseID:      caseID,
			StoragePath: storageKey,
			CreatedAt:   now,
		}
		if err := uc.repo.CreateFile(ctx, batch.ID, file); err != nil {
			return nil, fmt.Errorf("create file metadata: %w", err)
		}
	}

	if err := uc.queue.PublishBatchSubmitted(ctx, batch.ID); err != nil {
		return nil, fmt.Errorf("publish batch submitted event: %w", err)
	}

	return batch, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "evidence.bin"
	}
	return base
}
