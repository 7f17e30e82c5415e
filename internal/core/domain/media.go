package domain

import "time"

type MediaType string

const (
	MediaTypeDocument MediaType = "document"
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeUnknown  MediaType = "unknown"
)

type DetectionMethod string

const (
	MethodSignature    DetectionMethod = "signature"
	MethodDeclaredType DetectionMethod = "declared-type"
	MethodExtension    DetectionMethod = "extension"
	MethodGuessed      DetectionMethod = "guessed"
	MethodFallback     DetectionMethod = "fallback"
)

// MediaFile is one caller-submitted evidence file. Immutable once submitted.
type MediaFile struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	Data        []byte            `json:"-"`
	ContentType string            `json:"content_type,omitempty"`
	CaseID      string            `json:"case_id,omitempty"`
	StoragePath string            `json:"storage_path,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// DetectionResult is the transient output of media type detection.
type DetectionResult struct {
	MediaType  MediaType       `json:"media_type"`
	Format     string          `json:"format,omitempty"`
	Confidence float64         `json:"confidence"`
	Method     DetectionMethod `json:"method"`
}

type BatchStatus string

const (
	BatchSubmitted  BatchStatus = "submitted"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// Batch groups the evidence files submitted together against one case.
type Batch struct {
	ID        string      `json:"id"`
	CaseID    string      `json:"case_id"`
	Status    BatchStatus `json:"status"`
	FileCount int         `json:"file_count"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
