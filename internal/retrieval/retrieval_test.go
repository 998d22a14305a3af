package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/servicesense/internal/entity"
)

type fakeSimilarity struct {
	mu        sync.Mutex
	gotQuery  string
	analogues []Analogue
	err       error
}

func (f *fakeSimilarity) Query(_ context.Context, text string) ([]Analogue, error) {
	f.mu.Lock()
	f.gotQuery = text
	f.mu.Unlock()
	return f.analogues, f.err
}

type fakeGraph struct {
	matches  []CategoryMatch
	stats    *NeighborhoodStats
	matchErr error
	statsErr error
}

func (f *fakeGraph) MatchCategories(context.Context, []string) ([]CategoryMatch, error) {
	return f.matches, f.matchErr
}

func (f *fakeGraph) NeighborhoodStats(context.Context, string) (*NeighborhoodStats, error) {
	return f.stats, f.statsErr
}

func days(d float64) *float64 { return &d }

func TestRetrieve_MergesBothSources(t *testing.T) {
	t.Parallel()

	sim := &fakeSimilarity{analogues: []Analogue{
		{RequestNumber: "20-000001", Text: "Pothole on main street", Similarity: 0.89, ResolutionDays: days(6), Category: "SDOT_POTHOLE"},
	}}
	graph := &fakeGraph{
		matches: []CategoryMatch{{Code: "SDOT_POTHOLE", Label: "Pothole Repair", Department: "SDOT", SLADays: 3, Priority: 2}},
		stats: &NeighborhoodStats{Neighborhood: "Ballard", Rows: []NeighborhoodStat{
			{CategoryLabel: "Pothole Repair", MeanDays: 6.5, RequestCount: 12},
		}},
	}

	r := NewRetriever(sim, graph, Hooks{}, log.Nop())
	entities := &entity.Summary{
		ServiceKeywords: []string{"pothole"},
		Location:        &entity.Location{Neighborhood: "Ballard"},
	}

	b := r.Retrieve(context.Background(), "pothole report", entities)

	if len(b.Analogues) != 1 || len(b.Categories) != 1 || b.Stats == nil {
		t.Fatalf("bundle incomplete: %+v", b)
	}
	want := []string{SourceVector, SourceGraph, SourceNeighborhood}
	if len(b.Sources) != 3 {
		t.Fatalf("sources = %v, want %v", b.Sources, want)
	}
	for i, s := range want {
		if b.Sources[i] != s {
			t.Errorf("sources[%d] = %q, want %q", i, b.Sources[i], s)
		}
	}
}

func TestRetrieve_QueryEnrichment(t *testing.T) {
	t.Parallel()

	sim := &fakeSimilarity{}
	r := NewRetriever(sim, nil, Hooks{}, log.Nop())

	entities := &entity.Summary{
		ServiceKeywords:   []string{"pothole", "pavement"},
		UrgencyIndicators: []string{"dangerous"},
		Location:          &entity.Location{Address: "500 5th Ave"},
	}
	r.Retrieve(context.Background(), "big hole in the road", entities)

	want := "big hole in the road pothole pavement location: 500 5th Ave urgent"
	if sim.gotQuery != want {
		t.Errorf("query = %q, want %q", sim.gotQuery, want)
	}
}

func TestRetrieve_SourceFailuresDegradeToEmpty(t *testing.T) {
	t.Parallel()

	sim := &fakeSimilarity{err: errors.New("chroma down")}
	graph := &fakeGraph{matchErr: errors.New("neo4j down"), statsErr: errors.New("neo4j down")}

	var mu sync.Mutex
	var failed []string
	hooks := Hooks{OnSourceFailure: func(source string) {
		mu.Lock()
		failed = append(failed, source)
		mu.Unlock()
	}}

	r := NewRetriever(sim, graph, hooks, log.Nop())
	entities := &entity.Summary{
		ServiceKeywords: []string{"pothole"},
		Location:        &entity.Location{Neighborhood: "Fremont"},
	}

	b := r.Retrieve(context.Background(), "pothole", entities)

	if len(b.Analogues) != 0 || len(b.Categories) != 0 || b.Stats != nil {
		t.Errorf("expected empty bundle, got %+v", b)
	}
	if len(b.Sources) != 0 {
		t.Errorf("sources = %v, want empty", b.Sources)
	}
	if b.Render() != NoContextSentinel {
		t.Errorf("render = %q, want sentinel", b.Render())
	}
	if len(failed) != 3 {
		t.Errorf("failure hook fired %d times, want 3: %v", len(failed), failed)
	}
}

func TestRetrieve_SkipsGraphWithoutKeywordsOrNeighborhood(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{matchErr: errors.New("should not be called")}
	r := NewRetriever(nil, graph, Hooks{}, log.Nop())

	b := r.Retrieve(context.Background(), "hello", &entity.Summary{})

	if len(b.Categories) != 0 || b.Stats != nil {
		t.Errorf("graph evidence present without inputs: %+v", b)
	}
}

func TestRender_SectionOrderAndTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 150)
	b := &Bundle{
		Analogues: []Analogue{
			{Text: long, Similarity: 0.91, ResolutionDays: days(6), Category: "SDOT_POTHOLE"},
			{Text: "second", Similarity: 0.85, Category: "SDOT_POTHOLE"},
			{Text: "third", Similarity: 0.8, ResolutionDays: days(4), Category: "SPU_TREE"},
			{Text: "fourth must not render", Similarity: 0.7, Category: "SPU_TREE"},
		},
		Categories: []CategoryMatch{
			{Code: "SDOT_POTHOLE", Label: "Pothole Repair", Department: "SDOT", SLADays: 3, Priority: 2},
		},
		Stats: &NeighborhoodStats{Neighborhood: "Ballard", Rows: []NeighborhoodStat{
			{CategoryLabel: "Pothole Repair", MeanDays: 6.5, RequestCount: 12},
		}},
	}

	got := b.Render()

	simIdx := strings.Index(got, "### Similar Historical Requests:")
	catIdx := strings.Index(got, "### Matching Service Types:")
	hoodIdx := strings.Index(got, "### Ballard Neighborhood Patterns:")
	if simIdx == -1 || catIdx == -1 || hoodIdx == -1 {
		t.Fatalf("missing section header in:\n%s", got)
	}
	if !(simIdx < catIdx && catIdx < hoodIdx) {
		t.Errorf("sections out of order: %d %d %d", simIdx, catIdx, hoodIdx)
	}

	if strings.Contains(got, "fourth must not render") {
		t.Error("more than 3 analogues rendered")
	}
	if !strings.Contains(got, "1. "+long[:100]+"...") {
		t.Error("long text not truncated to 100 chars")
	}
	if !strings.Contains(got, "Resolution Time: 6 days, Similarity: 0.91") {
		t.Errorf("analogue line malformed:\n%s", got)
	}
	if !strings.Contains(got, "Resolution Time: N/A days") {
		t.Error("unknown duration not rendered as N/A")
	}
	if !strings.Contains(got, "1. Pothole Repair (SDOT_POTHOLE)\n   Department: SDOT, SLA: 3 days, Priority: 2") {
		t.Errorf("category line malformed:\n%s", got)
	}
	if !strings.Contains(got, "- Pothole Repair: avg 6.5 days (12 requests)") {
		t.Errorf("neighborhood line malformed:\n%s", got)
	}
}

func TestRender_MultibyteSnippet(t *testing.T) {
	t.Parallel()

	b := &Bundle{Analogues: []Analogue{
		{Text: strings.Repeat("日", 120), Similarity: 0.9, Category: "SPU_GRAFFITI"},
	}}

	got := b.Render()
	if !utf8.ValidString(got) {
		t.Errorf("rendered context is not valid UTF-8:\n%s", got)
	}
	if !strings.Contains(got, "1. "+strings.Repeat("日", 100)+"...") {
		t.Error("snippet not truncated to 100 runes")
	}
	if strings.Contains(got, strings.Repeat("日", 101)) {
		t.Error("snippet kept more than 100 runes")
	}
}

func TestRender_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	b := &Bundle{
		Categories: []CategoryMatch{{Code: "SPU_TREE", Label: "Tree Maintenance", Department: "SPU", SLADays: 14, Priority: 3}},
	}

	got := b.Render()
	if strings.Contains(got, "Similar Historical Requests") {
		t.Error("empty analogue section rendered")
	}
	if strings.Contains(got, "Neighborhood Patterns") {
		t.Error("empty stats section rendered")
	}
	if !strings.Contains(got, "### Matching Service Types:") {
		t.Error("category section missing")
	}
}

func TestAnalogueMean(t *testing.T) {
	t.Parallel()

	b := &Bundle{Analogues: []Analogue{
		{ResolutionDays: days(5)},
		{ResolutionDays: nil},
		{ResolutionDays: days(7)},
		{ResolutionDays: days(10)},
	}}

	got := b.AnalogueMean(7.0)
	if got < 7.32 || got > 7.34 {
		t.Errorf("mean = %v, want ~7.33", got)
	}

	empty := &Bundle{}
	if got := empty.AnalogueMean(7.0); got != 7.0 {
		t.Errorf("empty mean = %v, want 7.0", got)
	}
}
