// Package store persists entity documents. The Postgres store keeps one
// JSONB document table per entity; the Memory store backs tests and local
// development with the same filter semantics.
package store

import (
	"context"
	"errors"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// ErrNotFound is returned by Get and Delete when the id does not resolve.
var ErrNotFound = errors.New("store: not found")

// Filters maps canonical "<fieldPath>__<operator>" keys to raw values.
// Keys are pre-validated by the filter builder; stores evaluate them
// without re-checking.
type Filters map[string]string

// Store is the persistence port the engine talks to.
type Store interface {
	// Filter returns every document matching all filters, sorted by
	// orderBy (the schema's default order when empty).
	Filter(ctx context.Context, s *schema.EntitySchema, filters Filters, orderBy string) ([]map[string]any, error)

	// Get returns the document with the given primary key.
	Get(ctx context.Context, s *schema.EntitySchema, id string) (map[string]any, error)

	// Save inserts or fully replaces a document keyed by its primary key.
	Save(ctx context.Context, s *schema.EntitySchema, doc map[string]any) error

	// Delete removes the document, ErrNotFound when absent.
	Delete(ctx context.Context, s *schema.EntitySchema, id string) error
}
