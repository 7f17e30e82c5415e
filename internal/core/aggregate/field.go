package aggregate

import "github.com/clearclaim/evidence-engine/internal/core/domain"

// TierRanker maps a media type to its confidence tier. Pluggable so new
// media types can be ranked without touching fusion logic.
type TierRanker func(domain.MediaType) domain.ConfidenceTier

// DefaultTierRanker treats documents as highest-trust for identity and
// context fields, then images, then video.
func DefaultTierRanker(mediaType domain.MediaType) domain.ConfidenceTier {
	switch mediaType {
	case domain.MediaTypeDocument:
		return domain.TierDocument
	case domain.MediaTypeImage:
		return domain.TierImage
	case domain.MediaTypeVideo:
		return domain.TierVideo
	default:
		return 0
	}
}

// observe folds one candidate value into a field slot. First write wins the
// slot; an identical value adds a source; a differing value marks a sticky
// conflict and replaces the resolved value only when the new source's tier
// is strictly higher than every recorded source's tier.
func observe(field *domain.AggregatedField[string], value string, src domain.SourceRef) {
	if value == "" {
		return
	}

	if !field.Set() {
		field.Value = value
		field.Sources = []domain.SourceRef{src}
		return
	}

	if value == field.Value {
		field.Sources = append(field.Sources, src)
		return
	}

	if !field.Conflict {
		field.Conflict = true
		field.ConflictingValues = append(field.ConflictingValues, domain.ConflictingValue[string]{
			Value:  field.Value,
			Source: field.Sources[0],
		})
	}
	field.ConflictingValues = append(field.ConflictingValues, domain.ConflictingValue[string]{
		Value:  value,
		Source: src,
	})

	if src.Tier > highestTier(field.Sources) {
		field.Value = value
		field.Sources = []domain.SourceRef{src}
	}
}

func highestTier(sources []domain.SourceRef) domain.ConfidenceTier {
	var highest domain.ConfidenceTier
	for _, src := range sources {
		if src.Tier > highest {
			highest = src.Tier
		}
	}
	return highest
}
