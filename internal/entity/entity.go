// Package entity defines the normalized facts extracted from a raw service
// request, and the extractors that produce them.
package entity

// Severity grades reported damage.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Score returns the numeric encoding used by the prediction feature vector.
func (s Severity) Score() float64 {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return 0
	}
}

// Location is geographic context for a request. All fields are optional;
// jurisdictional tags (district, precinct) come from the caller, not from text.
type Location struct {
	Address         string   `json:"address,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Zipcode         string   `json:"zipcode,omitempty"`
	CouncilDistrict string   `json:"council_district,omitempty"`
	Neighborhood    string   `json:"neighborhood,omitempty"`
	PolicePrecinct  string   `json:"police_precinct,omitempty"`
}

// Summary holds the entities extracted from one request. It is built once per
// triage invocation and treated as immutable afterwards.
type Summary struct {
	Location          *Location `json:"location,omitempty"`
	LocationType      string    `json:"location_type,omitempty"` // "address" | "intersection" | "landmark" | "area"
	ServiceKeywords   []string  `json:"service_keywords"`
	UrgencyIndicators []string  `json:"urgency_indicators"`
	TemporalContext   string    `json:"temporal_context,omitempty"`
	AffectedCount     *int      `json:"affected_count,omitempty"`
	Severity          Severity  `json:"damage_severity,omitempty"`
}

// HasLocation reports whether any location information is attached.
func (s *Summary) HasLocation() bool {
	return s != nil && s.Location != nil
}

// Neighborhood returns the neighborhood name, or "" when absent.
func (s *Summary) Neighborhood() string {
	if s == nil || s.Location == nil {
		return ""
	}
	return s.Location.Neighborhood
}

// Urgent reports whether any urgency indicators were detected.
func (s *Summary) Urgent() bool {
	return s != nil && len(s.UrgencyIndicators) > 0
}
