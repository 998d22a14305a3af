package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/servicesense/internal/catalog"
	"github.com/linnemanlabs/servicesense/internal/entity"
)

// fallback scores every catalog category against the input and picks the
// best. Scoring: +1 per catalog keyword found as a substring of the lowered
// text, +2 per extracted service keyword that is also a catalog keyword of
// the category. Ties break by catalog order, first seen wins.
func (e *Engine) fallback(rawText string, entities *entity.Summary) *Classification {
	lower := strings.ToLower(rawText)

	type scored struct {
		cat   catalog.Category
		score int
	}

	var candidates []scored
	for _, c := range e.catalog.Categories() {
		score := 0
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, ek := range entities.ServiceKeywords {
			for _, kw := range c.Keywords {
				if ek == kw {
					score += 2
					break
				}
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{cat: c, score: score})
		}
	}

	if len(candidates) == 0 {
		return &Classification{
			Code:       catalog.Unclassified.Code,
			Label:      catalog.Unclassified.Label,
			Department: catalog.Unclassified.Department,
			Confidence: 0.5,
			Method:     MethodFallback,
		}
	}

	// Stable sort keeps catalog order within equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := candidates[0]
	denom := float64(len(best.cat.Keywords) + 2*len(entities.ServiceKeywords))
	confidence := min(0.95, float64(best.score)/denom*0.9+0.3)

	c := &Classification{
		Code:       best.cat.Code,
		Label:      best.cat.Label,
		Department: best.cat.Department,
		Confidence: confidence,
		Method:     MethodFallback,
	}

	for _, alt := range candidates[1:] {
		if len(c.Alternatives) == 2 {
			break
		}
		c.Alternatives = append(c.Alternatives, Alternative{
			Code:       alt.cat.Code,
			Confidence: min(0.8, float64(alt.score)/denom*0.7+0.1),
			Reason:     fmt.Sprintf("Lower keyword match (%d vs %d)", alt.score, best.score),
		})
	}

	return c
}
