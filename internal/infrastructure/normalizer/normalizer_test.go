package normalizer

import (
	"testing"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

func TestDocumentNormalizerContentListPath(t *testing.T) {
	raw := map[string]any{
		"result": map[string]any{
			"contents": []any{
				map[string]any{
					"fields": map[string]any{
						"VehicleMake":  map[string]any{"type": "string", "valueString": "Toyota"},
						"VehicleModel": map[string]any{"type": "string", "valueString": "Camry"},
						"IncidentDate": map[string]any{"type": "date", "valueDate": "2026-03-14"},
						"RepairTotal":  map[string]any{"type": "number", "valueNumber": 3450.50},
						"Parties": map[string]any{"type": "array", "valueArray": []any{
							map[string]any{"type": "string", "valueString": "J. Morales"},
							map[string]any{"type": "string", "valueString": "A. Chen"},
						}},
					},
				},
			},
		},
	}

	extraction, err := NewDocumentNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	doc := extraction.Document
	if doc == nil {
		t.Fatalf("expected document extraction")
	}
	if doc.VehicleMake != "Toyota" || doc.VehicleModel != "Camry" {
		t.Fatalf("unexpected vehicle fields: %+v", doc)
	}
	if doc.IncidentDate != "2026-03-14" {
		t.Fatalf("expected date slot coercion, got %q", doc.IncidentDate)
	}
	if doc.RepairTotal == nil || *doc.RepairTotal != 3450.50 {
		t.Fatalf("unexpected repair total: %v", doc.RepairTotal)
	}
	if len(doc.Parties) != 2 {
		t.Fatalf("expected 2 parties, got %v", doc.Parties)
	}
}

func TestDocumentNormalizerTopLevelAndFlatFallback(t *testing.T) {
	topLevel := map[string]any{
		"fields": map[string]any{
			"VehicleMake": map[string]any{"valueString": "Honda"},
		},
	}
	extraction, err := NewDocumentNormalizer().Normalize(topLevel)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if extraction.Document.VehicleMake != "Honda" {
		t.Fatalf("top-level path failed: %+v", extraction.Document)
	}

	flat := map[string]any{
		"VehicleMake": "Ford",
		"RepairTotal": "$1,200.00",
	}
	extraction, err = NewDocumentNormalizer().Normalize(flat)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if extraction.Document.VehicleMake != "Ford" {
		t.Fatalf("flat fallback failed: %+v", extraction.Document)
	}
	if extraction.Document.RepairTotal == nil || *extraction.Document.RepairTotal != 1200 {
		t.Fatalf("expected currency string coercion, got %v", extraction.Document.RepairTotal)
	}
}

func TestImageNormalizerDamageObservations(t *testing.T) {
	raw := map[string]any{
		"fields": map[string]any{
			"VehicleColor": map[string]any{"valueString": "silver"},
			"Damages": map[string]any{"valueArray": []any{
				map[string]any{"valueObject": map[string]any{
					"Location":      map[string]any{"valueString": "front-left"},
					"DamageType":    map[string]any{"valueString": "dent"},
					"Severity":      map[string]any{"valueString": "moderate"},
					"Component":     map[string]any{"valueString": "fender"},
					"EstimatedCost": map[string]any{"valueNumber": 420.0},
				}},
				// Empty objects are dropped rather than surfaced as blank rows.
				map[string]any{"valueObject": map[string]any{}},
			}},
		},
	}

	extraction, err := NewImageNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	img := extraction.Image
	if img == nil {
		t.Fatalf("expected image extraction")
	}
	if len(img.Observations) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(img.Observations))
	}
	obs := img.Observations[0]
	if obs.Location != "front-left" || obs.DamageType != "dent" || obs.Component != "fender" {
		t.Fatalf("unexpected observation: %+v", obs)
	}
	if obs.EstimatedCost == nil || *obs.EstimatedCost != 420 {
		t.Fatalf("unexpected cost: %v", obs.EstimatedCost)
	}
}

func TestVideoNormalizerSegments(t *testing.T) {
	raw := map[string]any{
		"fields": map[string]any{
			"IncidentType": map[string]any{"valueString": "rear-end collision"},
			"Transcript":   map[string]any{"valueString": "brakes screech"},
			"KeyFrames":    map[string]any{"valueArray": []any{"00:00:04", "00:00:09"}},
			"Segments": map[string]any{"valueArray": []any{
				map[string]any{"valueObject": map[string]any{
					"StartSeconds": map[string]any{"valueNumber": 2.5},
					"EndSeconds":   map[string]any{"valueNumber": 9.0},
					"Label":        map[string]any{"valueString": "impact"},
				}},
			}},
		},
	}

	extraction, err := NewVideoNormalizer().Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	video := extraction.Video
	if video == nil {
		t.Fatalf("expected video extraction")
	}
	if video.IncidentType != "rear-end collision" {
		t.Fatalf("unexpected incident type %q", video.IncidentType)
	}
	if len(video.Segments) != 1 || video.Segments[0].Label != "impact" || video.Segments[0].EndSeconds != 9 {
		t.Fatalf("unexpected segments: %+v", video.Segments)
	}
	if len(video.Keyframes) != 2 {
		t.Fatalf("expected 2 keyframes, got %v", video.Keyframes)
	}
}

func TestNormalizersRejectNilResponse(t *testing.T) {
	for _, n := range []interface {
		Normalize(map[string]any) (*domain.Extraction, error)
	}{
		NewDocumentNormalizer(), NewImageNormalizer(), NewVideoNormalizer(),
	} {
		if _, err := n.Normalize(nil); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for nil response, got %v", err)
		}
	}
}
