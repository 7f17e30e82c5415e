package normalizer

import (
	"errors"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type VideoNormalizer struct{}

func NewVideoNormalizer() *VideoNormalizer {
	return &VideoNormalizer{}
}

func (n *VideoNormalizer) MediaType() domain.MediaType {
	return domain.MediaTypeVideo
}

func (n *VideoNormalizer) Normalize(raw map[string]any) (*domain.Extraction, error) {
	fields := locateFields(raw)
	if fields == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "normalize video", errors.New("nil analyzer response"))
	}

	video := &domain.VideoExtraction{
		Transcript:   fieldString(fields, "Transcript"),
		IncidentType: fieldString(fields, "IncidentType"),
		VehicleMake:  fieldString(fields, "VehicleMake"),
		VehicleModel: fieldString(fields, "VehicleModel"),
		VehicleColor: fieldString(fields, "VehicleColor"),
		Keyframes:    fieldStringList(fields, "KeyFrames"),
	}

	for _, obj := range fieldObjectList(fields, "Segments") {
		segment := domain.VideoSegment{
			Label: fieldString(obj, "Label"),
		}
		if start, ok := fieldNumber(obj, "StartSeconds"); ok {
			segment.StartSeconds = start
		}
		if end, ok := fieldNumber(obj, "EndSeconds"); ok {
			segment.EndSeconds = end
		}
		video.Segments = append(video.Segments, segment)
	}

	return &domain.Extraction{Video: video}, nil
}
