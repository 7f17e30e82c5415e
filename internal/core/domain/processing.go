package domain

import "time"

// RoutingDecision is only produced for a successfully detected,
// size-valid media type.
type RoutingDecision struct {
	MediaType           MediaType `json:"media_type"`
	AnalyzerID          string    `json:"analyzer_id"`
	UsedCustomAnalyzer  bool      `json:"used_custom_analyzer"`
	FileSizeBytes       int64     `json:"file_size_bytes"`
	DetectionConfidence float64   `json:"detection_confidence"`
}

type ProcessingStatus string

const (
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
	ProcessingSkipped   ProcessingStatus = "skipped"
)

// ProcessingResult is the terminal outcome of driving one file through the
// pipeline. Immutable after creation.
type ProcessingResult struct {
	FileID      string           `json:"file_id"`
	Filename    string           `json:"filename"`
	CaseID      string           `json:"case_id,omitempty"`
	BatchID     string           `json:"batch_id,omitempty"`
	MediaType   MediaType        `json:"media_type"`
	Status      ProcessingStatus `json:"status"`
	AnalyzerID  string           `json:"analyzer_id,omitempty"`
	RawResponse map[string]any   `json:"raw_response,omitempty"`
	Extraction  *Extraction      `json:"extraction,omitempty"`
	Error       string           `json:"error,omitempty"`
	Elapsed     time.Duration    `json:"elapsed_ns"`
	RetryCount  int              `json:"retry_count"`
	CreatedAt   time.Time        `json:"created_at"`
}

// BatchResult is the bookkeeping over one batch run. Result order follows
// completion order, not submission order.
type BatchResult struct {
	BatchID    string             `json:"batch_id"`
	Total      int                `json:"total"`
	Completed  int                `json:"completed"`
	Failed     int                `json:"failed"`
	Skipped    int                `json:"skipped"`
	Results    []ProcessingResult `json:"results"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	FinishedAt time.Time          `json:"finished_at"`
}

// ProgressFunc receives one serialized notification per finished file.
type ProgressFunc func(fileID string, completed, total int, status ProcessingStatus)
