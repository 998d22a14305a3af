// Package retrieval merges evidence about a service request from a vector
// similarity store and a graph store. Each source can fail independently; a
// failed source contributes empty evidence, never an error.
package retrieval

// Source tags recorded on a Bundle when the corresponding evidence is
// non-empty.
const (
	SourceVector       = "vector_similarity"
	SourceGraph        = "graph_relationships"
	SourceNeighborhood = "neighborhood_history"
)

// Analogue is a historical request surfaced by similarity search.
type Analogue struct {
	RequestNumber  string   `json:"request_number"`
	Text           string   `json:"text"`
	Similarity     float64  `json:"similarity_score"`
	ResolutionDays *float64 `json:"resolution_days,omitempty"`
	Category       string   `json:"service_type"`
	Department     string   `json:"department,omitempty"`
}

// CategoryMatch is a catalog category surfaced by graph keyword matching.
type CategoryMatch struct {
	Code           string `json:"service_code"`
	Label          string `json:"service_name"`
	Department     string `json:"department"`
	SLADays        int    `json:"sla_days"`
	Priority       int    `json:"priority"`
	KeywordMatches int    `json:"keyword_matches"`
}

// NeighborhoodStat is one per-category row of historical resolution numbers
// for a neighborhood. Median/min/max are only populated by category-filtered
// queries and are zero otherwise.
type NeighborhoodStat struct {
	CategoryCode  string  `json:"service_code"`
	CategoryLabel string  `json:"service_name"`
	RequestCount  int     `json:"request_count"`
	MeanDays      float64 `json:"avg_resolution_days"`
	MedianDays    float64 `json:"median_resolution_days,omitempty"`
	MinDays       float64 `json:"min_resolution_days,omitempty"`
	MaxDays       float64 `json:"max_resolution_days,omitempty"`
}

// NeighborhoodStats groups stat rows under the neighborhood they describe.
type NeighborhoodStats struct {
	Neighborhood string             `json:"neighborhood"`
	Rows         []NeighborhoodStat `json:"patterns"`
}

// Bundle is the merged retrieval result for one request. All fields are
// always present; a failed or skipped source leaves its field empty.
type Bundle struct {
	Analogues  []Analogue         `json:"similar_requests"`
	Categories []CategoryMatch    `json:"matching_services"`
	Stats      *NeighborhoodStats `json:"neighborhood_patterns,omitempty"`
	Sources    []string           `json:"data_sources"`
}

// AnalogueMean returns the mean of the known resolution durations, or
// fallback when none are known.
func (b *Bundle) AnalogueMean(fallback float64) float64 {
	var sum float64
	var n int
	for _, a := range b.Analogues {
		if a.ResolutionDays != nil {
			sum += *a.ResolutionDays
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}
