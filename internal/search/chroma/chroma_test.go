package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, queryStatus int, queryBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/collections/service_requests", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"col-123","name":"service_requests"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/col-123/query", func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode query request: %v", err)
		}
		if len(req.QueryTexts) != 1 {
			t.Errorf("query_texts = %v, want one entry", req.QueryTexts)
		}
		if req.NResults != 5 {
			t.Errorf("n_results = %d, want 5", req.NResults)
		}
		w.WriteHeader(queryStatus)
		_, _ = w.Write([]byte(queryBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQuery(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{
		"ids": [["20-000001", "20-000002"]],
		"documents": [["Pothole on main street", "Another pothole"]],
		"metadatas": [[
			{"service_type": "SDOT_POTHOLE", "department": "SDOT", "resolution_days": 6},
			{"service_type": "SDOT_POTHOLE", "department": "SDOT"}
		]],
		"distances": [[0.11, 0.25]]
	}`)

	c := New(srv.URL, "service_requests", 5)
	got, err := c.Query(context.Background(), "big hole in the street")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	first := got[0]
	if first.RequestNumber != "20-000001" {
		t.Errorf("request number = %q", first.RequestNumber)
	}
	if first.Similarity < 0.88 || first.Similarity > 0.9 {
		t.Errorf("similarity = %v, want 1-0.11", first.Similarity)
	}
	if first.Category != "SDOT_POTHOLE" || first.Department != "SDOT" {
		t.Errorf("metadata not mapped: %+v", first)
	}
	if first.ResolutionDays == nil || *first.ResolutionDays != 6 {
		t.Errorf("resolution days = %v, want 6", first.ResolutionDays)
	}
	if got[1].ResolutionDays != nil {
		t.Errorf("missing resolution days should stay nil, got %v", *got[1].ResolutionDays)
	}
}

func TestQuery_ServerError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusInternalServerError, `boom`)

	c := New(srv.URL, "service_requests", 5)
	if _, err := c.Query(context.Background(), "anything"); err == nil {
		t.Error("Query succeeded on 500")
	}
}

func TestQuery_EmptyResult(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"ids": [], "documents": [], "metadatas": [], "distances": []}`)

	c := New(srv.URL, "service_requests", 5)
	got, err := c.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestResolveCollection_Cached(t *testing.T) {
	t.Parallel()

	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/collections/service_requests", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"id":"col-123"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/col-123/query", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ids":[[]],"documents":[[]],"metadatas":[[]],"distances":[[]]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "service_requests", 5)
	for range 3 {
		if _, err := c.Query(context.Background(), "x"); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("collection resolved %d times, want 1", calls)
	}
}
