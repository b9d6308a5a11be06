package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// Memory is an in-process Store. It backs tests and local development and
// evaluates the same operator set the Postgres store translates to SQL.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]any // collection -> id -> doc
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]map[string]any)}
}

func (m *Memory) Filter(ctx context.Context, s *schema.EntitySchema, filters Filters, orderBy string) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []map[string]any
	for _, doc := range m.docs[s.Collection] {
		matched := true
		for key, val := range filters {
			if !matchFilter(doc, key, val) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, cloneDoc(doc))
		}
	}

	if orderBy == "" {
		orderBy = s.OrderBy
	}
	sort.SliceStable(out, func(i, j int) bool {
		return toString(out[i][orderBy]) < toString(out[j][orderBy])
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, s *schema.EntitySchema, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[s.Collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Save(ctx context.Context, s *schema.EntitySchema, doc map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.docs[s.Collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		m.docs[s.Collection] = coll
	}
	id := toString(doc[s.PrimaryKey])
	coll[id] = cloneDoc(doc)
	return nil
}

func (m *Memory) Delete(ctx context.Context, s *schema.EntitySchema, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.docs[s.Collection]
	if _, ok := coll[id]; !ok {
		return ErrNotFound
	}
	delete(coll, id)
	return nil
}

// cloneDoc deep-copies through JSON so callers never share nested maps
// with the store.
func cloneDoc(doc map[string]any) map[string]any {
	raw, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return doc
	}
	return out
}
