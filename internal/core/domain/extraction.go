package domain

// Extraction is the normalized per-file record produced at the normalizer
// boundary. Exactly one of the three members is set, matching the file's
// media type.
type Extraction struct {
	Document *DocumentExtraction `json:"document,omitempty"`
	Image    *ImageExtraction    `json:"image,omitempty"`
	Video    *VideoExtraction    `json:"video,omitempty"`
}

// DocumentExtraction is the flat record normalized out of a document
// analyzer response (police reports, repair estimates, policy papers).
type DocumentExtraction struct {
	DocumentType        string   `json:"document_type,omitempty"`
	VehicleMake         string   `json:"vehicle_make,omitempty"`
	VehicleModel        string   `json:"vehicle_model,omitempty"`
	VehicleYear         string   `json:"vehicle_year,omitempty"`
	VIN                 string   `json:"vin,omitempty"`
	LicensePlate        string   `json:"license_plate,omitempty"`
	VehicleColor        string   `json:"vehicle_color,omitempty"`
	IncidentDate        string   `json:"incident_date,omitempty"`
	IncidentLocation    string   `json:"incident_location,omitempty"`
	IncidentDescription string   `json:"incident_description,omitempty"`
	PolicyNumber        string   `json:"policy_number,omitempty"`
	ClaimNumber         string   `json:"claim_number,omitempty"`
	RepairTotal         *float64 `json:"repair_total,omitempty"`
	Parties             []string `json:"parties,omitempty"`
}

// DamageObservation is one localized damage finding on an image.
type DamageObservation struct {
	Location      string   `json:"location"`
	DamageType    string   `json:"damage_type"`
	Severity      string   `json:"severity"`
	Component     string   `json:"component,omitempty"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
}

type ImageExtraction struct {
	Observations []DamageObservation `json:"observations"`
	VehicleColor string              `json:"vehicle_color,omitempty"`
	Description  string              `json:"description,omitempty"`
}

type VideoSegment struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Label        string  `json:"label,omitempty"`
}

type VideoExtraction struct {
	Segments     []VideoSegment `json:"segments,omitempty"`
	Keyframes    []string       `json:"keyframes,omitempty"`
	Transcript   string         `json:"transcript,omitempty"`
	IncidentType string         `json:"incident_type,omitempty"`
	VehicleMake  string         `json:"vehicle_make,omitempty"`
	VehicleModel string         `json:"vehicle_model,omitempty"`
	VehicleColor string         `json:"vehicle_color,omitempty"`
}
