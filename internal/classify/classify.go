// Package classify labels a service request with a catalog category. The
// primary path is an LLM call; a deterministic keyword scorer takes over
// whenever the provider is absent, fails, or returns something unparseable.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/servicesense/internal/catalog"
	"github.com/linnemanlabs/servicesense/internal/entity"
	"github.com/linnemanlabs/servicesense/internal/llm"
)

// Classification methods recorded on the result.
const (
	MethodProvider = "provider"
	MethodFallback = "fallback"
)

// Alternative is a rejected candidate category with its score and why it lost.
type Alternative struct {
	Code       string  `json:"service_code"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"why_not_chosen,omitempty"`
}

// Classification is the labeled outcome for one request. Confidence values
// across the primary and alternatives are independent scores, not a
// distribution; they do not sum to 1.
type Classification struct {
	Code         string        `json:"service_code"`
	Label        string        `json:"service_name"`
	Department   string        `json:"department"`
	Confidence   float64       `json:"confidence"`
	Reasoning    string        `json:"reasoning,omitempty"`
	Alternatives []Alternative `json:"alternative_services,omitempty"`
	Method       string        `json:"method"`
}

// Engine classifies requests against an immutable catalog.
type Engine struct {
	completer llm.Completer // nil means fallback-only
	catalog   *catalog.Catalog
	logger    log.Logger
}

// NewEngine creates a classification engine. A nil completer configures the
// engine for fallback-only operation.
func NewEngine(completer llm.Completer, cat *catalog.Catalog, logger log.Logger) *Engine {
	return &Engine{
		completer: completer,
		catalog:   cat,
		logger:    logger,
	}
}

// Classify labels the request. Exactly one path runs per call: the provider
// when one is configured and its response parses, otherwise the keyword
// fallback. Classify never fails.
func (e *Engine) Classify(ctx context.Context, rawText string, entities *entity.Summary, renderedContext string) *Classification {
	if e.completer == nil {
		return e.fallback(rawText, entities)
	}

	c, err := e.classifyWithProvider(ctx, rawText, entities, renderedContext)
	if err != nil {
		e.logger.Warn(ctx, "provider classification failed, using fallback", "error", err)
		return e.fallback(rawText, entities)
	}

	e.logger.Info(ctx, "classification complete",
		"service_code", c.Code,
		"confidence", c.Confidence,
		"alternatives", len(c.Alternatives),
	)
	return c
}

// providerResult is the JSON shape the prompt instructs the model to emit.
type providerResult struct {
	ServiceCode  string  `json:"service_code"`
	ServiceName  string  `json:"service_name"`
	Department   string  `json:"department"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	Alternatives []struct {
		ServiceCode string  `json:"service_code"`
		Confidence  float64 `json:"confidence"`
		WhyNot      string  `json:"why_not_chosen"`
	} `json:"alternative_services"`
}

func (e *Engine) classifyWithProvider(ctx context.Context, rawText string, entities *entity.Summary, renderedContext string) (*Classification, error) {
	prompt := buildPrompt(rawText, entities, renderedContext, e.catalog)

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	obj, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var res providerResult
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if res.ServiceCode == "" || res.ServiceName == "" || res.Department == "" {
		return nil, fmt.Errorf("classification missing required fields")
	}

	c := &Classification{
		Code:       res.ServiceCode,
		Label:      res.ServiceName,
		Department: res.Department,
		Confidence: clamp01(res.Confidence),
		Reasoning:  res.Reasoning,
		Method:     MethodProvider,
	}
	for _, alt := range res.Alternatives {
		c.Alternatives = append(c.Alternatives, Alternative{
			Code:       alt.ServiceCode,
			Confidence: clamp01(alt.Confidence),
			Reason:     alt.WhyNot,
		})
	}
	return c, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
