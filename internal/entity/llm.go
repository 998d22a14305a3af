package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/servicesense/internal/llm"
)

// Extractor produces an entity Summary from raw request text.
type Extractor interface {
	Extract(ctx context.Context, text string, loc *Location) (*Summary, error)
}

// LLM extracts entities with a language model and degrades to the rule-based
// extractor when the call fails or the response cannot be parsed.
type LLM struct {
	completer llm.Completer
	rules     *Rules
	logger    log.Logger
}

// NewLLM creates an LLM extractor backed by the given completer.
func NewLLM(completer llm.Completer, logger log.Logger) *LLM {
	return &LLM{
		completer: completer,
		rules:     NewRules(),
		logger:    logger,
	}
}

// llmSummary is the wire shape we ask the model to emit.
type llmSummary struct {
	LocationType      string   `json:"location_type"`
	ServiceKeywords   []string `json:"service_keywords"`
	UrgencyIndicators []string `json:"urgency_indicators"`
	TemporalContext   string   `json:"temporal_context"`
	AffectedCount     *int     `json:"affected_count"`
	Severity          string   `json:"damage_severity"`
}

// Extract asks the model for a structured entity summary. Any failure falls
// through to the rule-based extractor, which never fails.
func (e *LLM) Extract(ctx context.Context, text string, loc *Location) (*Summary, error) {
	out, err := e.completer.Complete(ctx, extractionPrompt(text))
	if err != nil {
		e.logger.Warn(ctx, "entity extraction call failed, using rules", "error", err)
		return e.rules.Extract(ctx, text, loc)
	}

	summary, err := parseSummary(out)
	if err != nil {
		e.logger.Warn(ctx, "entity extraction unparseable, using rules", "error", err)
		return e.rules.Extract(ctx, text, loc)
	}

	summary.Location = loc
	return summary, nil
}

func extractionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract entities from this city service request. Respond with only a JSON object with keys: ")
	b.WriteString(`"location_type" ("address", "intersection", "landmark", "area", or ""), `)
	b.WriteString(`"service_keywords" (array of strings), "urgency_indicators" (array of strings), `)
	b.WriteString(`"temporal_context" (string), "affected_count" (integer or null), `)
	b.WriteString(`"damage_severity" ("minor", "moderate", "severe", or "").` + "\n\nRequest: ")
	b.WriteString(text)
	return b.String()
}

func parseSummary(raw string) (*Summary, error) {
	obj, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var wire llmSummary
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	sev := Severity(strings.ToLower(wire.Severity))
	switch sev {
	case SeverityNone, SeverityMinor, SeverityModerate, SeveritySevere:
	default:
		sev = SeverityNone
	}

	return &Summary{
		LocationType:      wire.LocationType,
		ServiceKeywords:   lowerAll(wire.ServiceKeywords),
		UrgencyIndicators: lowerAll(wire.UrgencyIndicators),
		TemporalContext:   wire.TemporalContext,
		AffectedCount:     wire.AffectedCount,
		Severity:          sev,
	}, nil
}

func lowerAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
