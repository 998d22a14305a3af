package retrieval

import (
	"fmt"
	"strconv"
	"strings"
)

// NoContextSentinel is rendered when no source produced any evidence.
const NoContextSentinel = "No additional context available from historical data."

const (
	maxRenderedPerSection = 3
	snippetLen            = 100
)

// Render produces the plain-text view of the bundle embedded in the
// classification prompt. Section order, per-section truncation to 3 entries,
// and the empty-bundle sentinel are fixed contract.
func (b *Bundle) Render() string {
	var sections []string

	if len(b.Analogues) > 0 {
		sections = append(sections, "### Similar Historical Requests:")
		for i, a := range top(b.Analogues) {
			days := "N/A"
			if a.ResolutionDays != nil {
				days = formatDays(*a.ResolutionDays)
			}
			sections = append(sections, fmt.Sprintf(
				"%d. %s...\n   Service: %s, Resolution Time: %s days, Similarity: %.2f",
				i+1, snippet(a.Text), a.Category, days, a.Similarity))
		}
	}

	if len(b.Categories) > 0 {
		sections = append(sections, "\n### Matching Service Types:")
		for i, m := range top(b.Categories) {
			sections = append(sections, fmt.Sprintf(
				"%d. %s (%s)\n   Department: %s, SLA: %d days, Priority: %d",
				i+1, m.Label, m.Code, m.Department, m.SLADays, m.Priority))
		}
	}

	if b.Stats != nil && len(b.Stats.Rows) > 0 {
		sections = append(sections, fmt.Sprintf("\n### %s Neighborhood Patterns:", b.Stats.Neighborhood))
		for _, row := range top(b.Stats.Rows) {
			sections = append(sections, fmt.Sprintf(
				"- %s: avg %.1f days (%d requests)",
				row.CategoryLabel, row.MeanDays, row.RequestCount))
		}
	}

	if len(sections) == 0 {
		return NoContextSentinel
	}
	return strings.Join(sections, "\n")
}

func top[T any](items []T) []T {
	if len(items) > maxRenderedPerSection {
		return items[:maxRenderedPerSection]
	}
	return items
}

// Snippet truncates request text for display. Truncation is per rune so
// multi-byte text is never cut mid-sequence.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLen {
		return string(runes[:snippetLen])
	}
	return text
}

func formatDays(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}
