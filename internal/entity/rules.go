package entity

import (
	"context"
	"regexp"
	"strings"
)

// Term lists for the rule-based extractor. Order matters for severity: the
// first bucket that matches wins.
var (
	serviceTerms = []string{
		"pothole", "graffiti", "streetlight", "traffic", "sign",
		"sidewalk", "tree", "garbage", "noise", "parking",
		"water", "sewer", "leak", "damage", "broken", "missing",
	}

	urgencyTerms = []string{
		"emergency", "urgent", "dangerous", "hazard", "safety",
		"injured", "accident", "severe", "critical",
	}

	severeTerms   = []string{"severe", "major", "critical", "dangerous"}
	moderateTerms = []string{"moderate", "significant", "damaged"}
	minorTerms    = []string{"minor", "small", "slight"}

	addressRe = regexp.MustCompile(`\d+\s+\w+\s+(street|st|avenue|ave|road|rd|way|drive)`)

	temporalRes = []*regexp.Regexp{
		regexp.MustCompile(`(yesterday|today|tonight|this morning|this evening)`),
		regexp.MustCompile(`(last|this|next)\s+(week|month|year)`),
		regexp.MustCompile(`(for|since)\s+\w+\s+(days|weeks|months)`),
		regexp.MustCompile(`\d+\s+(days|weeks|months)\s+ago`),
	}
)

// Rules is a deterministic, network-free extractor. It is the terminal
// fallback for LLM extraction and the default when no provider is configured.
type Rules struct{}

// NewRules returns a rule-based extractor.
func NewRules() *Rules { return &Rules{} }

// Extract derives a Summary from text using substring and regexp rules only.
// It never fails; the error return satisfies the Extractor contract.
func (r *Rules) Extract(_ context.Context, text string, loc *Location) (*Summary, error) {
	lower := strings.ToLower(text)

	return &Summary{
		Location:          loc,
		LocationType:      detectLocationType(lower),
		ServiceKeywords:   matchTerms(lower, serviceTerms),
		UrgencyIndicators: matchTerms(lower, urgencyTerms),
		TemporalContext:   extractTemporal(lower),
		Severity:          detectSeverity(lower),
	}, nil
}

func matchTerms(lower string, terms []string) []string {
	var found []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

func detectSeverity(lower string) Severity {
	switch {
	case containsAny(lower, severeTerms):
		return SeveritySevere
	case containsAny(lower, moderateTerms):
		return SeverityModerate
	case containsAny(lower, minorTerms):
		return SeverityMinor
	default:
		return SeverityNone
	}
}

func detectLocationType(lower string) string {
	switch {
	case strings.Contains(lower, " and ") || strings.Contains(lower, " & "):
		return "intersection"
	case containsAny(lower, []string{"near", "around", "area", "neighborhood"}):
		return "area"
	case addressRe.MatchString(lower):
		return "address"
	default:
		return ""
	}
}

func extractTemporal(lower string) string {
	for _, re := range temporalRes {
		if m := re.FindString(lower); m != "" {
			return m
		}
	}
	return ""
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
