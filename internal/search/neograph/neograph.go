// Package neograph answers graph queries against the Neo4j knowledge graph:
// category matching by keyword and per-neighborhood resolution history.
package neograph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

const matchCategoriesQuery = `
MATCH (s:Service)-[:HAS_KEYWORD]->(k:Keyword)
WHERE k.text IN $keywords
WITH s, count(k) AS keyword_matches
MATCH (s)-[:HANDLED_BY]->(d:Department)
RETURN s.code AS service_code,
       s.name AS service_name,
       d.acronym AS department,
       s.priority AS priority,
       s.sla_days AS sla_days,
       keyword_matches
ORDER BY keyword_matches DESC, s.priority ASC
LIMIT $limit`

const neighborhoodStatsQuery = `
MATCH (n:Neighborhood {name: $neighborhood})<-[:LOCATED_IN]-(r:ServiceRequest)-[:FILED_FOR]->(s:Service)
WHERE r.resolution_days IS NOT NULL
WITH s, count(r) AS request_count, avg(r.resolution_days) AS avg_days
RETURN s.code AS service_code,
       s.name AS service_name,
       request_count,
       avg_days AS avg_resolution_days
ORDER BY request_count DESC
LIMIT 10`

// Client implements retrieval.GraphQuery over Neo4j.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	limit    int
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, user, password, database string, limit int) (*Client, error) {
	if limit <= 0 {
		limit = 5
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}

	return &Client{driver: driver, database: database, limit: limit}, nil
}

// Close shuts down the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// MatchCategories finds service categories whose keyword nodes overlap the
// extracted keywords, ranked by overlap then priority.
func (c *Client) MatchCategories(ctx context.Context, keywords []string) ([]retrieval.CategoryMatch, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, matchCategoriesQuery,
		map[string]any{"keywords": keywords, "limit": c.limit},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
	)
	if err != nil {
		return nil, fmt.Errorf("match categories: %w", err)
	}

	matches := make([]retrieval.CategoryMatch, 0, len(result.Records))
	for _, rec := range result.Records {
		matches = append(matches, retrieval.CategoryMatch{
			Code:           recString(rec, "service_code"),
			Label:          recString(rec, "service_name"),
			Department:     recString(rec, "department"),
			SLADays:        recInt(rec, "sla_days"),
			Priority:       recInt(rec, "priority"),
			KeywordMatches: recInt(rec, "keyword_matches"),
		})
	}
	return matches, nil
}

// NeighborhoodStats returns per-category historical resolution numbers for a
// neighborhood. Graph data stores neighborhood names upper-cased.
func (c *Client) NeighborhoodStats(ctx context.Context, neighborhood string) (*retrieval.NeighborhoodStats, error) {
	if neighborhood == "" {
		return nil, nil
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, neighborhoodStatsQuery,
		map[string]any{"neighborhood": strings.ToUpper(neighborhood)},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
	)
	if err != nil {
		return nil, fmt.Errorf("neighborhood stats: %w", err)
	}

	stats := &retrieval.NeighborhoodStats{Neighborhood: neighborhood}
	for _, rec := range result.Records {
		stats.Rows = append(stats.Rows, retrieval.NeighborhoodStat{
			CategoryCode:  recString(rec, "service_code"),
			CategoryLabel: recString(rec, "service_name"),
			RequestCount:  recInt(rec, "request_count"),
			MeanDays:      recFloat(rec, "avg_resolution_days"),
		})
	}
	return stats, nil
}

func recString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func recInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recFloat(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
