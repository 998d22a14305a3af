package classify

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/servicesense/internal/catalog"
	"github.com/linnemanlabs/servicesense/internal/entity"
)

const promptTemplate = `You are an expert Seattle municipal service classifier. Your task is to accurately categorize citizen service requests.

## Context Retrieved from Databases:
%s

## User Request:
%s

## Extracted Entities:
- Location: %s
- Keywords: %s
- Urgency Indicators: %s
- Severity: %s

## Available Service Categories:
%s

## Instructions:
1. Analyze the user's request carefully
2. Consider the location context (some services are area-specific)
3. Match to the MOST SPECIFIC service category that applies
4. If multiple services could apply, choose based on:
   - Primary issue mentioned first
   - Severity/safety implications
   - Historical patterns in the area

## Output Format (JSON):
Return ONLY a JSON object with this exact structure:
{
    "service_code": "EXACT_CODE_FROM_LIST",
    "service_name": "Human readable name",
    "department": "Department acronym",
    "confidence": 0.95,
    "reasoning": "2-3 sentences explaining the classification",
    "alternative_services": [
        {
            "service_code": "ALTERNATIVE_CODE",
            "confidence": 0.20,
            "why_not_chosen": "Brief explanation"
        }
    ]
}`

// promptKeywords caps how many catalog keywords each category contributes to
// the prompt.
const promptKeywords = 3

func buildPrompt(rawText string, entities *entity.Summary, renderedContext string, cat *catalog.Catalog) string {
	location := "Not specified"
	if entities.Location != nil && entities.Location.Address != "" {
		location = entities.Location.Address
	}

	keywords := "None"
	if len(entities.ServiceKeywords) > 0 {
		keywords = strings.Join(entities.ServiceKeywords, ", ")
	}

	urgency := "None"
	if len(entities.UrgencyIndicators) > 0 {
		urgency = strings.Join(entities.UrgencyIndicators, ", ")
	}

	severity := "Not specified"
	if entities.Severity != entity.SeverityNone {
		severity = string(entities.Severity)
	}

	if renderedContext == "" {
		renderedContext = "No additional context available"
	}

	var lines []string
	for _, c := range cat.Categories() {
		kw := c.Keywords
		if len(kw) > promptKeywords {
			kw = kw[:promptKeywords]
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s) - Keywords: %s",
			c.Code, c.Label, c.Department, strings.Join(kw, ", ")))
	}

	return fmt.Sprintf(promptTemplate,
		renderedContext, rawText, location, keywords, urgency, severity,
		strings.Join(lines, "\n"))
}
