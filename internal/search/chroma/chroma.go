// Package chroma implements similarity search over the Chroma HTTP API. The
// collection holds embedded historical service requests; queries run
// server-side against the collection's embedding function.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

// Client queries a Chroma collection for similar requests.
type Client struct {
	endpoint   string
	collection string
	limit      int
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

// New creates a Chroma client for the given endpoint and collection name.
func New(endpoint, collection string, limit int) *Client {
	if limit <= 0 {
		limit = 5
	}
	return &Client{
		endpoint:   endpoint,
		collection: collection,
		limit:      limit,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type queryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
	Include    []string `json:"include"`
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// Query returns the most similar historical requests for the given text.
func (c *Client) Query(ctx context.Context, text string) ([]retrieval.Analogue, error) {
	id, err := c.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(queryRequest{
		QueryTexts: []string{text},
		NResults:   c.limit,
		Include:    []string{"documents", "metadatas", "distances"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	var resp queryResponse
	if err := c.post(ctx, "api/v1/collections/"+id+"/query", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	analogues := make([]retrieval.Analogue, 0, len(resp.IDs[0]))
	for i := range resp.IDs[0] {
		a := retrieval.Analogue{
			RequestNumber: resp.IDs[0][i],
		}
		if i < len(resp.Documents[0]) {
			a.Text = resp.Documents[0][i]
		}
		if i < len(resp.Distances[0]) {
			a.Similarity = 1 - resp.Distances[0][i]
		}
		if i < len(resp.Metadatas[0]) {
			md := resp.Metadatas[0][i]
			a.Category, _ = md["service_type"].(string)
			a.Department, _ = md["department"].(string)
			if days, ok := md["resolution_days"].(float64); ok {
				a.ResolutionDays = &days
			}
		}
		analogues = append(analogues, a)
	}
	return analogues, nil
}

// resolveCollection maps the collection name to its ID, once.
func (c *Client) resolveCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, "api/v1/collections", c.collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get collection: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chroma returned %d: %s", resp.StatusCode, string(data))
	}

	var col struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &col); err != nil {
		return "", fmt.Errorf("decode collection: %w", err)
	}
	if col.ID == "" {
		return "", fmt.Errorf("collection %q has no id", c.collection)
	}

	c.collectionID = col.ID
	return c.collectionID, nil
}

func (c *Client) post(ctx context.Context, p string, body []byte, out any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma query failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20)) // 5 MB
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma returned %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
