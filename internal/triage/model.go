package triage

import (
	"time"

	"github.com/linnemanlabs/servicesense/internal/respond"
)

// Result is one completed triage run.
type Result struct {
	ID        string            `json:"request_id"`
	RawText   string            `json:"raw_text"`
	Response  *respond.Response `json:"response"`
	CreatedAt time.Time         `json:"created_at"`
}
