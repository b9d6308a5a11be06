package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

// QueryCache memoizes filtered, ordered query results. It is the single
// choke point for cached reads: all components go through GetOrCompute and
// Recompute, nothing touches the backing store directly.
//
// Writes recompute the entry for the triggering request's filter context.
// Entries for other filter combinations stay until their TTL lapses; that
// staleness window is a documented property of the design, not a bug.
type QueryCache struct {
	cache *fastcache.Cache
	db    store.Store
	ttl   time.Duration
}

type cacheEnvelope struct {
	StoredAt time.Time        `json:"stored_at"`
	Rows     []map[string]any `json:"rows"`
}

func NewQueryCache(db store.Store, maxBytes int, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		cache: fastcache.New(maxBytes),
		db:    db,
		ttl:   ttl,
	}
}

// GetOrCompute returns the cached result set for (entity, filters, orderBy),
// computing and storing it on miss or expiry.
func (qc *QueryCache) GetOrCompute(ctx context.Context, s *schema.EntitySchema, filters FilterExpression, orderBy string) ([]map[string]any, error) {
	key := qc.key(s.Name, filters, orderBy)

	if raw := qc.cache.GetBig(nil, key); len(raw) > 0 {
		var env cacheEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && time.Since(env.StoredAt) < qc.ttl {
			return env.Rows, nil
		}
	}

	return qc.compute(ctx, s, filters, orderBy, key)
}

// Recompute refreshes the entry for the given filter context. Called after
// every successful create, update or delete.
func (qc *QueryCache) Recompute(ctx context.Context, s *schema.EntitySchema, filters FilterExpression, orderBy string) error {
	key := qc.key(s.Name, filters, orderBy)
	_, err := qc.compute(ctx, s, filters, orderBy, key)
	return err
}

func (qc *QueryCache) compute(ctx context.Context, s *schema.EntitySchema, filters FilterExpression, orderBy string, key []byte) ([]map[string]any, error) {
	rows, err := qc.db.Filter(ctx, s, store.Filters(filters), orderBy)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cacheEnvelope{StoredAt: time.Now(), Rows: rows})
	if err == nil {
		qc.cache.SetBig(key, raw)
	}
	return rows, nil
}

func (qc *QueryCache) key(entity string, filters FilterExpression, orderBy string) []byte {
	if orderBy == "" {
		orderBy = "-"
	}
	return []byte(entity + "|" + filters.Canonical() + "|" + orderBy)
}
