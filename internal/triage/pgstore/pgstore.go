// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/servicesense/internal/respond"
	"github.com/linnemanlabs/servicesense/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/servicesense/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Get retrieves a triage result by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT id, raw_text, response, created_at FROM triage_results WHERE id = $1`

	r := &triage.Result{}
	var responseJSON []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&r.ID, &r.RawText, &responseJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("select triage result: %w", err)
	}

	r.Response = &respond.Response{}
	if err := json.Unmarshal(responseJSON, r.Response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	return r, true, nil
}

// Put inserts or updates a triage result.
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	responseJSON, err := json.Marshal(r.Response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	query := `INSERT INTO triage_results (id, raw_text, service_code, department, response, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id) DO UPDATE SET
		raw_text     = EXCLUDED.raw_text,
		service_code = EXCLUDED.service_code,
		department   = EXCLUDED.department,
		response     = EXCLUDED.response`

	var code, dept string
	if r.Response != nil && r.Response.Classification != nil {
		code = r.Response.Classification.Code
		dept = r.Response.Classification.Department
	}

	if _, err := s.pool.Exec(ctx, query, r.ID, r.RawText, code, dept, responseJSON, r.CreatedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert triage result: %w", err)
	}
	return nil
}
