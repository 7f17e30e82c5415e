package domain

import "time"

// ConfidenceTier ranks source trustworthiness during conflict resolution.
// Higher is more trusted.
type ConfidenceTier int

const (
	TierVideo    ConfidenceTier = 1
	TierImage    ConfidenceTier = 2
	TierDocument ConfidenceTier = 3
)

// SourceRef attributes a fused value to the file it came from.
type SourceRef struct {
	FileID    string         `json:"file_id"`
	Filename  string         `json:"filename"`
	MediaType MediaType      `json:"media_type"`
	Tier      ConfidenceTier `json:"tier"`
}

// ConflictingValue is one observed candidate for a contested field,
// recorded in arrival order.
type ConflictingValue[T comparable] struct {
	Value  T         `json:"value"`
	Source SourceRef `json:"source"`
}

// AggregatedField is a single case-level attribute with full provenance.
// Once Conflict is true it never reverts; Sources always reflects the
// provenance of the currently resolved Value.
type AggregatedField[T comparable] struct {
	Value             T                    `json:"value"`
	Sources           []SourceRef          `json:"sources,omitempty"`
	Conflict          bool                 `json:"conflict"`
	ConflictingValues []ConflictingValue[T] `json:"conflicting_values,omitempty"`
}

// Set reports whether any source has contributed a value.
func (f *AggregatedField[T]) Set() bool {
	return len(f.Sources) > 0
}

type VehicleSummary struct {
	Make         AggregatedField[string] `json:"make"`
	Model        AggregatedField[string] `json:"model"`
	Year         AggregatedField[string] `json:"year"`
	VIN          AggregatedField[string] `json:"vin"`
	LicensePlate AggregatedField[string] `json:"license_plate"`
	Color        AggregatedField[string] `json:"color"`
}

// Fields enumerates every slot so callers can walk the summary without
// reflection. Keep in sync with the struct.
func (s *VehicleSummary) Fields() []*AggregatedField[string] {
	return []*AggregatedField[string]{&s.Make, &s.Model, &s.Year, &s.VIN, &s.LicensePlate, &s.Color}
}

type IncidentSummary struct {
	Date         AggregatedField[string] `json:"date"`
	Location     AggregatedField[string] `json:"location"`
	Description  AggregatedField[string] `json:"description"`
	IncidentType AggregatedField[string] `json:"incident_type"`
	PolicyNumber AggregatedField[string] `json:"policy_number"`
	ClaimNumber  AggregatedField[string] `json:"claim_number"`
}

func (s *IncidentSummary) Fields() []*AggregatedField[string] {
	return []*AggregatedField[string]{&s.Date, &s.Location, &s.Description, &s.IncidentType, &s.PolicyNumber, &s.ClaimNumber}
}

type DamageSummary struct {
	OverallSeverity    string              `json:"overall_severity"`
	SeverityScore      float64             `json:"severity_score"`
	EstimatedCost      *float64            `json:"estimated_cost,omitempty"`
	AffectedComponents []string            `json:"affected_components"`
	Observations       []DamageObservation `json:"observations"`
}

// AggregatedResult is the case-level fusion output. Read-only to downstream
// consumers; a new aggregation call produces a new result.
type AggregatedResult struct {
	CaseID        string          `json:"case_id,omitempty"`
	Vehicle       VehicleSummary  `json:"vehicle"`
	Incident      IncidentSummary `json:"incident"`
	Damage        DamageSummary   `json:"damage"`
	RepairTotal   *float64        `json:"repair_total,omitempty"`
	Parties       []string        `json:"parties,omitempty"`
	VideoSegments []VideoSegment  `json:"video_segments,omitempty"`
	SourceFiles   []string        `json:"source_files"`
	ConflictCount int             `json:"conflict_count"`
	Confidence    float64         `json:"confidence"`
	AggregatedAt  time.Time       `json:"aggregated_at"`
}
