package triage

import (
	"context"

	"github.com/linnemanlabs/servicesense/internal/entity"
)

// Store is the persistence interface for triage results.
type Store interface {
	Get(ctx context.Context, id string) (*Result, bool, error)
	Put(ctx context.Context, result *Result) error
}

// Cache is an optional read-through cache keyed by request text and location.
type Cache interface {
	Lookup(ctx context.Context, text string, loc *entity.Location) (*Result, bool, error)
	Save(ctx context.Context, text string, loc *entity.Location, result *Result) error
}

// Notifier is told about completed triage runs.
type Notifier interface {
	TriageComplete(ctx context.Context, result *Result) error
}
