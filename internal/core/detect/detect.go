// Package detect classifies raw evidence bytes as document, image or video.
// Detection is a pure function of the input; it never reads the filesystem
// or the network and never fails.
package detect

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

const (
	confidenceSignature    = 0.95
	confidenceExtension    = 0.8
	confidenceDeclared     = 0.7
	confidenceCoarsePrefix = 0.5
	confidenceGuessed      = 0.4
)

type Detector struct {
	signatures []signature
}

func NewDetector() *Detector {
	return &Detector{signatures: defaultSignatures()}
}

// Detect resolves the media type of one file. Precedence: magic bytes,
// declared content type, filename extension, best-effort guess from the
// filename. Inconclusive input yields MediaTypeUnknown with confidence 0.
func (d *Detector) Detect(data []byte, filename, declaredContentType string) domain.DetectionResult {
	if result, ok := d.detectBySignature(data); ok {
		return result
	}
	if result, ok := detectByContentType(declaredContentType, domain.MethodDeclaredType); ok {
		return result
	}
	if result, ok := detectByExtension(filename); ok {
		return result
	}
	if result, ok := detectByContentType(mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))), domain.MethodGuessed); ok {
		result.Confidence = confidenceGuessed
		return result
	}
	return domain.DetectionResult{
		MediaType: domain.MediaTypeUnknown,
		Method:    domain.MethodFallback,
	}
}

func (d *Detector) detectBySignature(data []byte) (domain.DetectionResult, bool) {
	for _, sig := range d.signatures {
		end := sig.offset + len(sig.pattern)
		if len(data) < end {
			continue
		}
		if !bytes.Equal(data[sig.offset:end], sig.pattern) {
			continue
		}
		if sig.secondary != nil && !sig.secondary(data) {
			continue
		}
		return domain.DetectionResult{
			MediaType:  sig.mediaType,
			Format:     sig.format,
			Confidence: confidenceSignature,
			Method:     domain.MethodSignature,
		}, true
	}
	return domain.DetectionResult{}, false
}

func detectByContentType(contentType string, method domain.DetectionMethod) (domain.DetectionResult, bool) {
	normalized := normalizeContentType(contentType)
	if normalized == "" {
		return domain.DetectionResult{}, false
	}

	if mediaType, ok := exactContentTypes[normalized]; ok {
		return domain.DetectionResult{
			MediaType:  mediaType,
			Format:     formatFromContentType(normalized),
			Confidence: confidenceDeclared,
			Method:     method,
		}, true
	}

	var mediaType domain.MediaType
	switch {
	case strings.HasPrefix(normalized, "image/"):
		mediaType = domain.MediaTypeImage
	case strings.HasPrefix(normalized, "video/"):
		mediaType = domain.MediaTypeVideo
	case strings.HasPrefix(normalized, "text/"):
		mediaType = domain.MediaTypeDocument
	default:
		return domain.DetectionResult{}, false
	}
	return domain.DetectionResult{
		MediaType:  mediaType,
		Format:     formatFromContentType(normalized),
		Confidence: confidenceCoarsePrefix,
		Method:     method,
	}, true
}

func detectByExtension(filename string) (domain.DetectionResult, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return domain.DetectionResult{}, false
	}
	mediaType, ok := extensionTypes[ext]
	if !ok {
		return domain.DetectionResult{}, false
	}
	return domain.DetectionResult{
		MediaType:  mediaType,
		Format:     ext,
		Confidence: confidenceExtension,
		Method:     domain.MethodExtension,
	}, true
}

func normalizeContentType(contentType string) string {
	normalized := strings.TrimSpace(strings.ToLower(contentType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

func formatFromContentType(contentType string) string {
	if idx := strings.Index(contentType, "/"); idx >= 0 && idx+1 < len(contentType) {
		return contentType[idx+1:]
	}
	return contentType
}

var exactContentTypes = map[string]domain.MediaType{
	"application/pdf":    domain.MediaTypeDocument,
	"application/msword": domain.MediaTypeDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.MediaTypeDocument,
	"application/vnd.ms-excel": domain.MediaTypeDocument,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": domain.MediaTypeDocument,
	"application/rtf": domain.MediaTypeDocument,
	"text/plain":      domain.MediaTypeDocument,
	"text/csv":        domain.MediaTypeDocument,

	"image/jpeg": domain.MediaTypeImage,
	"image/png":  domain.MediaTypeImage,
	"image/gif":  domain.MediaTypeImage,
	"image/bmp":  domain.MediaTypeImage,
	"image/tiff": domain.MediaTypeImage,
	"image/webp": domain.MediaTypeImage,
	"image/heic": domain.MediaTypeImage,

	"video/mp4":        domain.MediaTypeVideo,
	"video/quicktime":  domain.MediaTypeVideo,
	"video/x-msvideo":  domain.MediaTypeVideo,
	"video/x-matroska": domain.MediaTypeVideo,
	"video/webm":       domain.MediaTypeVideo,
	"video/mpeg":       domain.MediaTypeVideo,
}

var extensionTypes = map[string]domain.MediaType{
	"pdf": domain.MediaTypeDocument, "doc": domain.MediaTypeDocument,
	"docx": domain.MediaTypeDocument, "rtf": domain.MediaTypeDocument,
	"txt": domain.MediaTypeDocument, "csv": domain.MediaTypeDocument,
	"xls": domain.MediaTypeDocument, "xlsx": domain.MediaTypeDocument,
	"odt": domain.MediaTypeDocument,

	"jpg": domain.MediaTypeImage, "jpeg": domain.MediaTypeImage,
	"png": domain.MediaTypeImage, "gif": domain.MediaTypeImage,
	"bmp": domain.MediaTypeImage, "tif": domain.MediaTypeImage,
	"tiff": domain.MediaTypeImage, "webp": domain.MediaTypeImage,
	"heic": domain.MediaTypeImage,

	"mp4": domain.MediaTypeVideo, "mov": domain.MediaTypeVideo,
	"avi": domain.MediaTypeVideo, "mkv": domain.MediaTypeVideo,
	"webm": domain.MediaTypeVideo, "wmv": domain.MediaTypeVideo,
	"flv": domain.MediaTypeVideo, "m4v": domain.MediaTypeVideo,
	"mpg": domain.MediaTypeVideo, "mpeg": domain.MediaTypeVideo,
}
