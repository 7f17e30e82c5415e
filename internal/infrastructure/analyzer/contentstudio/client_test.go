package contentstudio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

func TestAnalyzeImagePostsToAnalyzerPath(t *testing.T) {
	var capturedPath, capturedContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"result":{"contents":[{"fields":{}}]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret", Options{})
	raw, err := client.AnalyzeImage(context.Background(), []byte{0xFF, 0xD8}, "damage-detector-v1")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if capturedPath != "/v1/analyzers/damage-detector-v1/analyze" {
		t.Fatalf("unexpected path %s", capturedPath)
	}
	if capturedContentType != "application/octet-stream" {
		t.Fatalf("unexpected content type %s", capturedContentType)
	}
	if _, ok := raw["result"]; !ok {
		t.Fatalf("expected raw response map, got %v", raw)
	}
}

func TestAnalyzeRejectsEmptyAnalyzerID(t *testing.T) {
	client := New("http://localhost:0", "", Options{})
	if _, err := client.AnalyzeDocument(context.Background(), []byte("%PDF"), ""); err == nil {
		t.Fatalf("expected error for empty analyzer id")
	}
}

func TestThrottledFailureIsMarkedTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.AnalyzeVideo(context.Background(), []byte("data"), "prebuilt-video")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestPermanentFailureIsNotMarkedTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "analyzer not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "", Options{})
	_, err := client.AnalyzeDocument(context.Background(), []byte("%PDF"), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must not carry the temporary kind: %v", err)
	}

	class := ClassifyError(err)
	if class.Retryable {
		t.Fatalf("404 must not be retryable")
	}
}

func TestClassifyErrorRetryableStatuses(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		err := &HTTPStatusError{Operation: "analyze-image", StatusCode: code, Status: http.StatusText(code)}
		if !ClassifyError(err).Retryable {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 422} {
		err := &HTTPStatusError{Operation: "analyze-image", StatusCode: code, Status: http.StatusText(code)}
		if ClassifyError(err).Retryable {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}

func TestClassifyErrorIgnoresContextCancellation(t *testing.T) {
	class := ClassifyError(context.Canceled)
	if class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must not retry or trip the breaker: %+v", class)
	}
}
