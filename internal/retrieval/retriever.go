package retrieval

import (
	"context"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/servicesense/internal/entity"
)

// SimilaritySearch finds historical analogues for free text.
type SimilaritySearch interface {
	Query(ctx context.Context, text string) ([]Analogue, error)
}

// GraphQuery answers structured questions about categories and neighborhoods.
type GraphQuery interface {
	MatchCategories(ctx context.Context, keywords []string) ([]CategoryMatch, error)
	NeighborhoodStats(ctx context.Context, neighborhood string) (*NeighborhoodStats, error)
}

// Hooks are optional callbacks for observing retrieval outcomes.
type Hooks struct {
	// OnSourceFailure is called with a source tag when that source errors.
	OnSourceFailure func(source string)
}

// Retriever fans out to both sources concurrently and merges the results.
type Retriever struct {
	similarity SimilaritySearch
	graph      GraphQuery
	hooks      Hooks
	logger     log.Logger
}

// NewRetriever creates a retriever over the given sources. Either source may
// be nil, in which case it contributes nothing.
func NewRetriever(similarity SimilaritySearch, graph GraphQuery, hooks Hooks, logger log.Logger) *Retriever {
	return &Retriever{
		similarity: similarity,
		graph:      graph,
		hooks:      hooks,
		logger:     logger,
	}
}

// Retrieve runs the similarity and graph searches concurrently and merges
// their results into one bundle. A source failure degrades that source to
// empty evidence; Retrieve itself never fails.
func (r *Retriever) Retrieve(ctx context.Context, rawText string, entities *entity.Summary) *Bundle {
	var (
		analogues []Analogue
		matches   []CategoryMatch
		stats     *NeighborhoodStats
	)

	var g errgroup.Group

	g.Go(func() error {
		if r.similarity == nil {
			return nil
		}
		got, err := r.similarity.Query(ctx, enhanceQuery(rawText, entities))
		if err != nil {
			r.sourceFailed(ctx, SourceVector, err)
			return nil
		}
		analogues = got
		return nil
	})

	g.Go(func() error {
		if r.graph == nil {
			return nil
		}
		if kw := entities.ServiceKeywords; len(kw) > 0 {
			got, err := r.graph.MatchCategories(ctx, kw)
			if err != nil {
				r.sourceFailed(ctx, SourceGraph, err)
			} else {
				matches = got
			}
		}
		if hood := entities.Neighborhood(); hood != "" {
			got, err := r.graph.NeighborhoodStats(ctx, hood)
			if err != nil {
				r.sourceFailed(ctx, SourceNeighborhood, err)
			} else {
				stats = got
			}
		}
		return nil
	})

	_ = g.Wait() // goroutines swallow their own errors

	b := &Bundle{
		Analogues:  analogues,
		Categories: matches,
		Stats:      stats,
		Sources:    []string{},
	}
	if len(b.Analogues) > 0 {
		b.Sources = append(b.Sources, SourceVector)
	}
	if len(b.Categories) > 0 {
		b.Sources = append(b.Sources, SourceGraph)
	}
	if b.Stats != nil && len(b.Stats.Rows) > 0 {
		b.Sources = append(b.Sources, SourceNeighborhood)
	}

	r.logger.Info(ctx, "context retrieved",
		"similar_requests", len(b.Analogues),
		"matching_categories", len(b.Categories),
		"sources", strings.Join(b.Sources, ","),
	)
	return b
}

func (r *Retriever) sourceFailed(ctx context.Context, source string, err error) {
	r.logger.Warn(ctx, "retrieval source failed", "source", source, "error", err)
	if r.hooks.OnSourceFailure != nil {
		r.hooks.OnSourceFailure(source)
	}
}

// enhanceQuery appends extracted keywords, the address, and an urgency token
// to the raw text so the embedding has more to bite on.
func enhanceQuery(text string, entities *entity.Summary) string {
	var b strings.Builder
	b.WriteString(text)

	if len(entities.ServiceKeywords) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(entities.ServiceKeywords, " "))
	}
	if entities.Location != nil && entities.Location.Address != "" {
		b.WriteString(" location: ")
		b.WriteString(entities.Location.Address)
	}
	if entities.Urgent() {
		b.WriteString(" urgent")
	}
	return b.String()
}
