// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/servicesense/internal/classify"
	"github.com/linnemanlabs/servicesense/internal/predict"
	"github.com/linnemanlabs/servicesense/internal/triage"
)

const (
	maxSummaryLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, TriageComplete is
// a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// TriageComplete posts a triage result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) TriageComplete(ctx context.Context, result *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *triage.Result) map[string]any {
	var c *classify.Classification
	var p *predict.Result
	if r.Response != nil {
		c = r.Response.Classification
		p = r.Response.Prediction
	}

	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(c),
			{"type": "divider"},
			fieldsBlock(r, c, p),
			{"type": "divider"},
			summaryBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(c *classify.Classification) map[string]any {
	label := "Unclassified"
	emoji := "\U0001f534" // red circle
	if c != nil {
		label = c.Label
		emoji = confidenceEmoji(c.Confidence)
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s New Request: %s", emoji, label),
		},
	}
}

func fieldsBlock(r *triage.Result, c *classify.Classification, p *predict.Result) map[string]any {
	department, confidence := "-", "-"
	if c != nil {
		department = c.Department
		confidence = fmt.Sprintf("%.0f%% (%s)", c.Confidence*100, c.Method)
	}

	estimate, band, model := "-", "-", "-"
	if p != nil {
		estimate = fmt.Sprintf("%.0f days", p.PredictedDays)
		band = fmt.Sprintf("%.0f-%.0f days", p.Lower90, p.Upper90)
		model = p.ModelVersion
	}

	var processingMS float64
	if r.Response != nil {
		processingMS = r.Response.ProcessingMS
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Department:* %s", department),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %s", confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Estimate:* %s", estimate),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*90%% band:* %s", band),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Model:* %s", model),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Processing:* %.0fms", processingMS),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(r *triage.Result) map[string]any {
	var text string
	if r.Response != nil {
		text = truncate(r.Response.Summary, maxSummaryLen)
	}
	if text == "" {
		text = "_No summary available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func contextBlock(r *triage.Result) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("servicesense • triage %s • %s", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

// confidenceEmoji mirrors the summary qualifier thresholds.
func confidenceEmoji(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "\U0001f7e2" // green circle
	case confidence >= 0.7:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f534" // red circle, review needed
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
