package normalizer

import (
	"errors"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type DocumentNormalizer struct{}

func NewDocumentNormalizer() *DocumentNormalizer {
	return &DocumentNormalizer{}
}

func (n *DocumentNormalizer) MediaType() domain.MediaType {
	return domain.MediaTypeDocument
}

func (n *DocumentNormalizer) Normalize(raw map[string]any) (*domain.Extraction, error) {
	fields := locateFields(raw)
	if fields == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "normalize document", errors.New("nil analyzer response"))
	}

	doc := &domain.DocumentExtraction{
		DocumentType:        fieldString(fields, "DocumentType"),
		VehicleMake:         fieldString(fields, "VehicleMake"),
		VehicleModel:        fieldString(fields, "VehicleModel"),
		VehicleYear:         fieldString(fields, "VehicleYear"),
		VIN:                 fieldString(fields, "VIN"),
		LicensePlate:        fieldString(fields, "LicensePlate"),
		VehicleColor:        fieldString(fields, "VehicleColor"),
		IncidentDate:        fieldString(fields, "IncidentDate"),
		IncidentLocation:    fieldString(fields, "IncidentLocation"),
		IncidentDescription: fieldString(fields, "IncidentDescription"),
		PolicyNumber:        fieldString(fields, "PolicyNumber"),
		ClaimNumber:         fieldString(fields, "ClaimNumber"),
		Parties:             fieldStringList(fields, "Parties"),
	}
	if total, ok := fieldNumber(fields, "RepairTotal"); ok {
		doc.RepairTotal = &total
	}

	return &domain.Extraction{Document: doc}, nil
}
