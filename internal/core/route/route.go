// Package route selects the external analyzer for a detected media type and
// validates the file against per-type size ceilings.
package route

import (
	"fmt"

	"github.com/clearclaim/evidence-engine/internal/core/detect"
	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

// Prebuilt analyzer ids used when no case-specific analyzer is configured
// or the caller forces the generic fallback.
const (
	PrebuiltDocumentAnalyzer = "prebuilt-document"
	PrebuiltImageAnalyzer    = "prebuilt-image"
	PrebuiltVideoAnalyzer    = "prebuilt-video"
)

// Config carries the per-type custom analyzer ids and size ceilings.
// A zero ceiling means unbounded.
type Config struct {
	DocumentAnalyzerID string
	ImageAnalyzerID    string
	VideoAnalyzerID    string

	MaxImageBytes int64
	MaxVideoBytes int64
}

// profile is the per-media-type routing behavior, selected once after
// detection.
type profile interface {
	mediaType() domain.MediaType
	customAnalyzerID() string
	prebuiltAnalyzerID() string
	maxBytes() int64
}

type documentProfile struct{ cfg Config }

func (p documentProfile) mediaType() domain.MediaType { return domain.MediaTypeDocument }
func (p documentProfile) customAnalyzerID() string    { return p.cfg.DocumentAnalyzerID }
func (p documentProfile) prebuiltAnalyzerID() string  { return PrebuiltDocumentAnalyzer }

// Documents are unbounded at this layer; the provider enforces its own caps.
func (p documentProfile) maxBytes() int64 { return 0 }

type imageProfile struct{ cfg Config }

func (p imageProfile) mediaType() domain.MediaType { return domain.MediaTypeImage }
func (p imageProfile) customAnalyzerID() string    { return p.cfg.ImageAnalyzerID }
func (p imageProfile) prebuiltAnalyzerID() string  { return PrebuiltImageAnalyzer }
func (p imageProfile) maxBytes() int64             { return p.cfg.MaxImageBytes }

type videoProfile struct{ cfg Config }

func (p videoProfile) mediaType() domain.MediaType { return domain.MediaTypeVideo }
func (p videoProfile) customAnalyzerID() string    { return p.cfg.VideoAnalyzerID }
func (p videoProfile) prebuiltAnalyzerID() string  { return PrebuiltVideoAnalyzer }
func (p videoProfile) maxBytes() int64             { return p.cfg.MaxVideoBytes }

type Router struct {
	detector *detect.Detector
	profiles map[domain.MediaType]profile
}

func NewRouter(detector *detect.Detector, cfg Config) *Router {
	return &Router{
		detector: detector,
		profiles: map[domain.MediaType]profile{
			domain.MediaTypeDocument: documentProfile{cfg: cfg},
			domain.MediaTypeImage:    imageProfile{cfg: cfg},
			domain.MediaTypeVideo:    videoProfile{cfg: cfg},
		},
	}
}

type Options struct {
	ValidateSize bool
	UseFallback  bool
}

func DefaultOptions() Options {
	return Options{ValidateSize: true}
}

// Route detects the file and produces a routing decision, or fails with
// domain.ErrUnsupportedMediaType / domain.ErrFileTooLarge.
func (r *Router) Route(data []byte, filename, declaredContentType string, opts Options) (*domain.RoutingDecision, error) {
	detection := r.detector.Detect(data, filename, declaredContentType)
	if detection.MediaType == domain.MediaTypeUnknown {
		return nil, domain.WrapError(domain.ErrUnsupportedMediaType, "route evidence",
			fmt.Errorf("detection inconclusive for %q", filename))
	}

	selected, ok := r.profiles[detection.MediaType]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedMediaType, "route evidence",
			fmt.Errorf("no analyzer profile for media type %s", detection.MediaType))
	}

	size := int64(len(data))
	if opts.ValidateSize {
		if max := selected.maxBytes(); max > 0 && size > max {
			return nil, domain.WrapError(domain.ErrFileTooLarge, "route evidence",
				fmt.Errorf("%s is %d bytes, %s ceiling is %d", filename, size, selected.mediaType(), max))
		}
	}

	analyzerID := selected.customAnalyzerID()
	usedCustom := analyzerID != "" && !opts.UseFallback
	if !usedCustom {
		analyzerID = selected.prebuiltAnalyzerID()
	}

	return &domain.RoutingDecision{
		MediaType:           selected.mediaType(),
		AnalyzerID:          analyzerID,
		UsedCustomAnalyzer:  usedCustom,
		FileSizeBytes:       size,
		DetectionConfidence: detection.Confidence,
	}, nil
}
