package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

func cacheTestSchema() *schema.EntitySchema {
	return schema.NewEntitySchema("product", "products",
		&schema.FieldDescriptor{Name: "id", Kind: schema.KindString, PrimaryKey: true},
		&schema.FieldDescriptor{Name: "name", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "unit", Kind: schema.KindString},
	).WithOrderBy("name")
}

func seedProducts(t *testing.T, db *store.Memory, s *schema.EntitySchema, names ...string) {
	t.Helper()
	for i, name := range names {
		err := db.Save(context.Background(), s, map[string]any{
			"id": string(rune('a' + i)), "name": name, "unit": "kg",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestQueryCache_ServesCachedRowsUntilRecompute(t *testing.T) {
	ctx := context.Background()
	s := cacheTestSchema()
	db := store.NewMemory()
	seedProducts(t, db, s, "chicken", "beef")

	qc := NewQueryCache(db, 1<<20, time.Minute)

	rows, err := qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// Write behind the cache's back: the entry keeps serving the old rows.
	if err := db.Save(ctx, s, map[string]any{"id": "c", "name": "lamb", "unit": "kg"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rows, err = qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected stale 2 rows before recompute, got %d", len(rows))
	}

	// Recompute refreshes the entry for this filter context.
	if err := qc.Recompute(ctx, s, FilterExpression{}, ""); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	rows, err = qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("third read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after recompute, got %d", len(rows))
	}
}

func TestQueryCache_TTLExpiryRecomputes(t *testing.T) {
	ctx := context.Background()
	s := cacheTestSchema()
	db := store.NewMemory()
	seedProducts(t, db, s, "chicken")

	qc := NewQueryCache(db, 1<<20, 10*time.Millisecond)

	if _, err := qc.GetOrCompute(ctx, s, FilterExpression{}, ""); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := db.Save(ctx, s, map[string]any{"id": "x", "name": "beef", "unit": "kg"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	rows, err := qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("read after expiry: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected fresh rows after TTL, got %d", len(rows))
	}
}

func TestQueryCache_DistinctFilterContextsDistinctEntries(t *testing.T) {
	ctx := context.Background()
	s := cacheTestSchema()
	db := store.NewMemory()
	seedProducts(t, db, s, "chicken", "beef")

	qc := NewQueryCache(db, 1<<20, time.Minute)

	all, err := qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("unfiltered read: %v", err)
	}
	filtered, err := qc.GetOrCompute(ctx, s, FilterExpression{"name__exact": "beef"}, "")
	if err != nil {
		t.Fatalf("filtered read: %v", err)
	}
	if len(all) != 2 || len(filtered) != 1 {
		t.Fatalf("expected 2/1 rows, got %d/%d", len(all), len(filtered))
	}

	// Recomputing the filtered context leaves the unfiltered entry stale.
	if err := db.Save(ctx, s, map[string]any{"id": "z", "name": "lamb", "unit": "kg"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := qc.Recompute(ctx, s, FilterExpression{"name__exact": "beef"}, ""); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	all, err = qc.GetOrCompute(ctx, s, FilterExpression{}, "")
	if err != nil {
		t.Fatalf("unfiltered reread: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered entry should still hold 2 rows, got %d", len(all))
	}
}

func TestQueryCache_OrderByPartOfKey(t *testing.T) {
	ctx := context.Background()
	s := cacheTestSchema()
	db := store.NewMemory()
	seedProducts(t, db, s, "chicken", "beef")

	qc := NewQueryCache(db, 1<<20, time.Minute)

	byName, err := qc.GetOrCompute(ctx, s, FilterExpression{}, "name")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	byUnit, err := qc.GetOrCompute(ctx, s, FilterExpression{}, "id")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byName[0]["name"] != "beef" {
		t.Fatalf("expected beef first by name, got %v", byName[0]["name"])
	}
	if byUnit[0]["name"] != "chicken" {
		t.Fatalf("expected chicken first by id, got %v", byUnit[0]["name"])
	}
}
