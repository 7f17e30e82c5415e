package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clearclaim/evidence-engine/internal/config"
	"github.com/clearclaim/evidence-engine/internal/core/domain"
	"github.com/clearclaim/evidence-engine/internal/core/ports"
	"github.com/clearclaim/evidence-engine/internal/observability/metrics"
)

const serviceName = "api"

// maxMultipartMemory bounds the in-memory part of a batch upload; larger
// parts spill to temp files.
const maxMultipartMemory = 32 << 20

type Router struct {
	cfg        config.Config
	ingest     ports.BatchIngestor
	reader     ports.BatchReader
	aggregator ports.CaseAggregator
	metrics    *metrics.HTTPServerMetrics
	validate   func(http.Handler) http.Handler
}

func NewRouter(
	cfg config.Config,
	ingest ports.BatchIngestor,
	reader ports.BatchReader,
	aggregator ports.CaseAggregator,
	httpMetrics *metrics.HTTPServerMetrics,
) (*Router, error) {
	validate, err := newOpenAPIValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:        cfg,
		ingest:     ingest,
		reader:     reader,
		aggregator: aggregator,
		metrics:    httpMetrics,
		validate:   validate,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/batches", rt.submitBatch)
	mux.HandleFunc("/v1/batches/", rt.getBatch)
	mux.HandleFunc("/v1/cases/", rt.caseAggregate)

	handler := rt.validate(mux)
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	caseID := strings.TrimSpace(r.FormValue("case_id"))
	if caseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'case_id' is required"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one 'files' part is required"})
		return
	}

	uploads := make([]ports.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable multipart part"})
			return
		}
		defer file.Close()
		uploads = append(uploads, ports.UploadedFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
	}

	batch, err := rt.ingest.SubmitBatch(r.Context(), caseID, uploads)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordBatchSubmitted(serviceName, batch.FileCount)
	}
	writeJSON(w, http.StatusAccepted, batch)
}

type batchStatusResponse struct {
	Batch   *domain.Batch             `json:"batch"`
	Results []domain.ProcessingResult `json:"results"`
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	batchID := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if batchID == "" || strings.Contains(batchID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch id is required"})
		return
	}

	batch, results, err := rt.reader.GetBatch(r.Context(), batchID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if results == nil {
		results = []domain.ProcessingResult{}
	}
	writeJSON(w, http.StatusOK, batchStatusResponse{Batch: batch, Results: results})
}

func (rt *Router) caseAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/cases/")
	caseID, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "aggregate" || caseID == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	result, err := rt.aggregator.AggregateCase(r.Context(), caseID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAggregate(serviceName, result.ConflictCount, result.Confidence)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
