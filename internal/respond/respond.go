// Package respond assembles the final explainable triage response from the
// classification, prediction, and retrieval evidence.
package respond

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/linnemanlabs/servicesense/internal/classify"
	"github.com/linnemanlabs/servicesense/internal/entity"
	"github.com/linnemanlabs/servicesense/internal/predict"
	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

// Factor impact directions.
const (
	ImpactSpeedsUp  = "speeds_up"
	ImpactSlowsDown = "slows_down"
	ImpactNeutral   = "neutral"
)

// Factor is one structured influence on the resolution estimate.
type Factor struct {
	Name        string `json:"factor_name"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// SimilarRequest is a trimmed historical analogue included in the response.
type SimilarRequest struct {
	RequestNumber  string   `json:"request_number,omitempty"`
	Similarity     float64  `json:"similarity_score"`
	ResolutionDays *float64 `json:"resolution_days,omitempty"`
	Category       string   `json:"service_type"`
	Description    string   `json:"description"`
}

// Response is the complete triage outcome returned to the caller.
type Response struct {
	Summary         string                   `json:"user_summary"`
	Entities        *entity.Summary          `json:"extracted_entities"`
	Classification  *classify.Classification `json:"classification"`
	Prediction      *predict.Result          `json:"prediction"`
	Factors         []Factor                 `json:"factors"`
	Reasoning       string                   `json:"classification_reasoning"`
	SimilarRequests []SimilarRequest         `json:"similar_requests,omitempty"`
	Sources         []string                 `json:"data_sources_used"`
	ProcessingMS    float64                  `json:"processing_time_ms"`
}

// Assembler builds responses. It is stateless apart from the clock, which is
// injectable so date-dependent factors are testable.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler using the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble combines the pipeline stages into one response. It never fails;
// missing optional inputs just leave their sections out.
func (a *Assembler) Assemble(rawText string, entities *entity.Summary, c *classify.Classification, p *predict.Result, bundle *retrieval.Bundle, elapsedMS float64) *Response {
	return &Response{
		Summary:         summary(c, p),
		Entities:        entities,
		Classification:  c,
		Prediction:      p,
		Factors:         a.factors(entities, bundle),
		Reasoning:       reasoning(c, entities, bundle),
		SimilarRequests: similarRequests(bundle),
		Sources:         bundle.Sources,
		ProcessingMS:    elapsedMS,
	}
}

func summary(c *classify.Classification, p *predict.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Your request has been classified as '%s' and will be handled by the %s department. "+
			"Based on historical data, we estimate this will be resolved in approximately "+
			"%d days (typically between %d-%d days). ",
		c.Label, c.Department,
		int(math.Round(p.PredictedDays)),
		int(math.Round(p.Lower90)),
		int(math.Round(p.Upper90)),
	)

	switch {
	case c.Confidence >= 0.9:
		b.WriteString("We are highly confident in this classification.")
	case c.Confidence >= 0.7:
		b.WriteString("We are moderately confident in this classification.")
	default:
		b.WriteString("Please review the classification to ensure accuracy.")
	}
	return b.String()
}

// reasoning joins every applicable clause, not just the first.
func reasoning(c *classify.Classification, entities *entity.Summary, bundle *retrieval.Bundle) string {
	var reasons []string

	if len(entities.ServiceKeywords) > 0 {
		kw := entities.ServiceKeywords
		if len(kw) > 3 {
			kw = kw[:3]
		}
		reasons = append(reasons, "Request mentions key terms: "+strings.Join(kw, ", "))
	}

	if len(bundle.Analogues) > 0 {
		matching := 0
		for _, an := range bundle.Analogues {
			if an.Category == c.Code {
				matching++
			}
		}
		if matching > 0 {
			reasons = append(reasons, fmt.Sprintf(
				"%d out of %d similar historical requests were classified as %s",
				matching, len(bundle.Analogues), c.Label))
		}
	}

	if hood := entities.Neighborhood(); hood != "" {
		reasons = append(reasons, fmt.Sprintf("Request is in %s neighborhood", hood))
	}

	if entities.Urgent() {
		reasons = append(reasons, "Urgency indicators detected: "+strings.Join(entities.UrgencyIndicators, ", "))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Classification based on standard routing rules for "+c.Department)
	}

	return strings.Join(reasons, ". ") + "."
}

// factors emits influence records in fixed order: temporal, urgency,
// severity, historical.
func (a *Assembler) factors(entities *entity.Summary, bundle *retrieval.Bundle) []Factor {
	var factors []Factor

	now := a.now()
	if weekday := (int(now.Weekday()) + 6) % 7; weekday >= 5 {
		factors = append(factors, Factor{
			Name:        "Weekend submission",
			Impact:      ImpactSlowsDown,
			Description: "Requests submitted on weekends typically take longer to process",
		})
	}
	switch now.Month() {
	case time.November, time.December, time.January:
		factors = append(factors, Factor{
			Name:        "Winter season",
			Impact:      ImpactSlowsDown,
			Description: "Higher volume of weather-related requests during winter",
		})
	}

	if entities.Urgent() {
		factors = append(factors, Factor{
			Name:        "Urgent request",
			Impact:      ImpactSpeedsUp,
			Description: "Request marked as urgent may receive priority handling",
		})
	}

	switch entities.Severity {
	case entity.SeveritySevere:
		factors = append(factors, Factor{
			Name:        "Severe damage",
			Impact:      ImpactSpeedsUp,
			Description: "Severe damage reports are typically prioritized",
		})
	case entity.SeverityMinor:
		factors = append(factors, Factor{
			Name:        "Minor issue",
			Impact:      ImpactNeutral,
			Description: "Minor issues follow standard processing timelines",
		})
	}

	if len(bundle.Analogues) > 0 {
		avg := bundle.AnalogueMean(0)
		desc := fmt.Sprintf("Similar requests averaged %.0f days to resolve", avg)
		switch {
		case avg > 10:
			factors = append(factors, Factor{Name: "Complex issue type", Impact: ImpactSlowsDown, Description: desc})
		case avg < 5:
			factors = append(factors, Factor{Name: "Quick resolution type", Impact: ImpactSpeedsUp, Description: desc})
		}
	}

	return factors
}

func similarRequests(bundle *retrieval.Bundle) []SimilarRequest {
	analogues := bundle.Analogues
	if len(analogues) > 3 {
		analogues = analogues[:3]
	}

	var out []SimilarRequest
	for _, an := range analogues {
		text := an.Text
		if runes := []rune(text); len(runes) > 100 {
			text = string(runes[:100])
		}
		out = append(out, SimilarRequest{
			RequestNumber:  an.RequestNumber,
			Similarity:     math.Round(an.Similarity*100) / 100,
			ResolutionDays: an.ResolutionDays,
			Category:       an.Category,
			Description:    text + "...",
		})
	}
	return out
}
