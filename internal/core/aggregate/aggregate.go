// Package aggregate fuses per-file extraction records into one case-level
// record with provenance and conflict tracking. Fusion is order-independent
// for the resolved values; only the recorded order of conflicting candidates
// follows arrival order.
package aggregate

import (
	"sort"
	"time"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type Aggregator struct {
	ranker TierRanker
}

type Option func(*Aggregator)

// WithTierRanker overrides the source trust ranking.
func WithTierRanker(ranker TierRanker) Option {
	return func(a *Aggregator) {
		if ranker != nil {
			a.ranker = ranker
		}
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	agg := &Aggregator{ranker: DefaultTierRanker}
	for _, opt := range opts {
		opt(agg)
	}
	return agg
}

// Aggregate fuses the completed results of one batch (or one case) into a
// fresh AggregatedResult. Failed and skipped results are excluded but never
// cause an error; an all-failed input yields a valid empty result.
func (a *Aggregator) Aggregate(results []domain.ProcessingResult, caseID string) *domain.AggregatedResult {
	out := &domain.AggregatedResult{
		CaseID:       caseID,
		SourceFiles:  []string{},
		AggregatedAt: time.Now().UTC(),
	}

	var (
		severitySignals []string
		observations    []domain.DamageObservation
		componentSet    = map[string]struct{}{}
		documentTotals  []float64
		parties         []string
		partySeen       = map[string]struct{}{}
		mediaTypes      = map[domain.MediaType]struct{}{}
	)

	for _, result := range results {
		if result.Status != domain.ProcessingCompleted || result.Extraction == nil {
			continue
		}

		src := domain.SourceRef{
			FileID:    result.FileID,
			Filename:  result.Filename,
			MediaType: result.MediaType,
			Tier:      a.ranker(result.MediaType),
		}
		out.SourceFiles = append(out.SourceFiles, result.Filename)
		mediaTypes[result.MediaType] = struct{}{}

		switch {
		case result.Extraction.Document != nil:
			doc := result.Extraction.Document
			a.fuseDocument(out, doc, src)
			if doc.RepairTotal != nil {
				documentTotals = append(documentTotals, *doc.RepairTotal)
			}
			for _, party := range doc.Parties {
				if _, seen := partySeen[party]; party != "" && !seen {
					partySeen[party] = struct{}{}
					parties = append(parties, party)
				}
			}

		case result.Extraction.Image != nil:
			img := result.Extraction.Image
			observe(&out.Vehicle.Color, img.VehicleColor, src)
			for _, obs := range img.Observations {
				observations = append(observations, obs)
				severitySignals = append(severitySignals, obs.Severity)
				if obs.Component != "" {
					componentSet[obs.Component] = struct{}{}
				}
			}

		case result.Extraction.Video != nil:
			video := result.Extraction.Video
			a.fuseVideo(out, video, src)
			if video.IncidentType != "" {
				severitySignals = append(severitySignals, video.IncidentType)
			}
			out.VideoSegments = append(out.VideoSegments, video.Segments...)
		}
	}

	out.Damage = fuseDamage(observations, severitySignals, componentSet, documentTotals)
	if len(documentTotals) > 0 {
		total := average(documentTotals)
		out.RepairTotal = &total
	}
	out.Parties = parties

	// Count conflicts by walking every field slot so the count always
	// matches the final state, regardless of fusion order.
	out.ConflictCount = countConflicts(&out.Vehicle, &out.Incident)
	out.Confidence = confidenceScore(len(mediaTypes), len(out.SourceFiles), out.ConflictCount)

	return out
}

func (a *Aggregator) fuseDocument(out *domain.AggregatedResult, doc *domain.DocumentExtraction, src domain.SourceRef) {
	observe(&out.Vehicle.Make, doc.VehicleMake, src)
	observe(&out.Vehicle.Model, doc.VehicleModel, src)
	observe(&out.Vehicle.Year, doc.VehicleYear, src)
	observe(&out.Vehicle.VIN, doc.VIN, src)
	observe(&out.Vehicle.LicensePlate, doc.LicensePlate, src)
	observe(&out.Vehicle.Color, doc.VehicleColor, src)

	observe(&out.Incident.Date, doc.IncidentDate, src)
	observe(&out.Incident.Location, doc.IncidentLocation, src)
	observe(&out.Incident.Description, doc.IncidentDescription, src)
	observe(&out.Incident.PolicyNumber, doc.PolicyNumber, src)
	observe(&out.Incident.ClaimNumber, doc.ClaimNumber, src)
}

// fuseVideo supplements identity and context fields at video trust; a video
// value never overwrites a document-sourced value on a tie.
func (a *Aggregator) fuseVideo(out *domain.AggregatedResult, video *domain.VideoExtraction, src domain.SourceRef) {
	observe(&out.Vehicle.Make, video.VehicleMake, src)
	observe(&out.Vehicle.Model, video.VehicleModel, src)
	observe(&out.Vehicle.Color, video.VehicleColor, src)
	observe(&out.Incident.IncidentType, video.IncidentType, src)
}

func fuseDamage(
	observations []domain.DamageObservation,
	severitySignals []string,
	componentSet map[string]struct{},
	documentTotals []float64,
) domain.DamageSummary {
	label, score := overallSeverity(severitySignals)

	components := make([]string, 0, len(componentSet))
	for component := range componentSet {
		components = append(components, component)
	}
	sort.Strings(components)

	summary := domain.DamageSummary{
		OverallSeverity:    label,
		SeverityScore:      score,
		AffectedComponents: components,
		Observations:       observations,
	}
	if summary.Observations == nil {
		summary.Observations = []domain.DamageObservation{}
	}

	// Repeated estimates from multiple documents are averaged, not summed;
	// per-observation costs are summed as independent line items.
	switch {
	case len(documentTotals) > 0:
		total := average(documentTotals)
		summary.EstimatedCost = &total
	default:
		var total float64
		var found bool
		for _, obs := range observations {
			if obs.EstimatedCost != nil {
				total += *obs.EstimatedCost
				found = true
			}
		}
		if found {
			summary.EstimatedCost = &total
		}
	}

	return summary
}

func countConflicts(vehicle *domain.VehicleSummary, incident *domain.IncidentSummary) int {
	count := 0
	for _, field := range vehicle.Fields() {
		if field.Conflict {
			count++
		}
	}
	for _, field := range incident.Fields() {
		if field.Conflict {
			count++
		}
	}
	return count
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
