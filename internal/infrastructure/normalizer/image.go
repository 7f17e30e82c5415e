package normalizer

import (
	"errors"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type ImageNormalizer struct{}

func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{}
}

func (n *ImageNormalizer) MediaType() domain.MediaType {
	return domain.MediaTypeImage
}

func (n *ImageNormalizer) Normalize(raw map[string]any) (*domain.Extraction, error) {
	fields := locateFields(raw)
	if fields == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "normalize image", errors.New("nil analyzer response"))
	}

	img := &domain.ImageExtraction{
		VehicleColor: fieldString(fields, "VehicleColor"),
		Description:  fieldString(fields, "Description"),
		Observations: []domain.DamageObservation{},
	}

	for _, obj := range fieldObjectList(fields, "Damages") {
		obs := domain.DamageObservation{
			Location:   fieldString(obj, "Location"),
			DamageType: fieldString(obj, "DamageType"),
			Severity:   fieldString(obj, "Severity"),
			Component:  fieldString(obj, "Component"),
		}
		if cost, ok := fieldNumber(obj, "EstimatedCost"); ok {
			obs.EstimatedCost = &cost
		}
		if obs.Location == "" && obs.DamageType == "" && obs.Severity == "" {
			continue
		}
		img.Observations = append(img.Observations, obs)
	}

	return &domain.Extraction{Image: img}, nil
}
