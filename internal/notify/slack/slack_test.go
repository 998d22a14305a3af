package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/servicesense/internal/classify"
	"github.com/linnemanlabs/servicesense/internal/predict"
	"github.com/linnemanlabs/servicesense/internal/respond"
	"github.com/linnemanlabs/servicesense/internal/triage"
)

func sampleResult() *triage.Result {
	return &triage.Result{
		ID:      "01JN123",
		RawText: "Large pothole on 5th Ave",
		Response: &respond.Response{
			Summary: "Your request has been classified as 'Pothole Repair'.",
			Classification: &classify.Classification{
				Code:       "SDOT_POTHOLE",
				Label:      "Pothole Repair",
				Department: "SDOT",
				Confidence: 0.92,
				Method:     classify.MethodFallback,
			},
			Prediction: &predict.Result{
				PredictedDays: 6.2,
				Lower90:       3.1,
				Upper90:       9.4,
				ModelVersion:  "v1",
			},
			ProcessingMS: 42.5,
		},
		CreatedAt: time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}
}

func TestTriageComplete_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.TriageComplete(context.Background(), sampleResult()); err != nil {
		t.Fatalf("TriageComplete: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, summary, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Pothole Repair") {
		t.Errorf("header text = %q, want to contain Pothole Repair", headerText)
	}
	if !strings.Contains(headerText, "\U0001f7e2") {
		t.Error("header should contain green circle for high confidence")
	}

	ctxBlock := blocks[6].(map[string]any)
	elements := ctxBlock["elements"].([]any)
	ctxText := elements[0].(map[string]any)["text"].(string)
	if !strings.Contains(ctxText, "01JN123") {
		t.Errorf("context text = %q, want to contain result ID", ctxText)
	}
}

func TestTriageComplete_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.TriageComplete(context.Background(), &triage.Result{}); err != nil {
		t.Fatalf("TriageComplete with empty URL should be no-op, got: %v", err)
	}
}

func TestTriageComplete_TruncatesLongSummary(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := sampleResult()
	result.Response.Summary = strings.Repeat("x", 4000)

	n := New(srv.URL)
	if err := n.TriageComplete(context.Background(), result); err != nil {
		t.Fatalf("TriageComplete: %v", err)
	}

	blocks := got["blocks"].([]any)
	summarySection := blocks[4].(map[string]any)
	text := summarySection["text"].(map[string]any)["text"].(string)

	if len(text) > maxSummaryLen+len("*Summary*\n\n") {
		t.Errorf("summary text length = %d, expected <= %d", len(text), maxSummaryLen+len("*Summary*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated summary to end with ...")
	}
}

func TestConfidenceEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence float64
		want       string
	}{
		{"high", 0.95, "\U0001f7e2"},
		{"boundary high", 0.9, "\U0001f7e2"},
		{"moderate", 0.75, "\U0001f7e1"},
		{"low", 0.5, "\U0001f534"},
		{"zero", 0, "\U0001f534"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := confidenceEmoji(tt.confidence); got != tt.want {
				t.Errorf("confidenceEmoji(%v) = %q, want %q", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestBuildMessage_NilResponse(t *testing.T) {
	t.Parallel()

	msg := buildMessage(&triage.Result{ID: "01JN456", CreatedAt: time.Now()})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("buildMessage produced non-marshalable output: %v", err)
	}
	if !strings.Contains(string(data), "Unclassified") {
		t.Error("expected Unclassified header when no classification is present")
	}
	if !strings.Contains(string(data), "No summary available") {
		t.Error("expected summary placeholder when no response is present")
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("Pothole Repair", "SDOT", 0.92, "A pothole summary.")
	f.Add("", "", 0.0, "")
	f.Add("<@U123> mention", "SPU", 0.5, "*bold* _italic_ ~strike~")
	f.Add("label\x00\x01\x02", "dep\nline", -1.5, "summary\ttab")
	f.Add(strings.Repeat("A", 5000), "SDOT", 2.0, strings.Repeat("x", 10000))

	f.Fuzz(func(t *testing.T, label, department string, confidence float64, summary string) {
		result := &triage.Result{
			ID: "fuzz-id",
			Response: &respond.Response{
				Summary: summary,
				Classification: &classify.Classification{
					Label:      label,
					Department: department,
					Confidence: confidence,
				},
			},
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// Must not panic
		msg := buildMessage(result)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}

func TestTriageComplete_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.TriageComplete(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
