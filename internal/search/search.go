// Package search defines the optional full-text collaborator used by bulk
// reads when a q parameter is present. When no provider is wired the
// dispatcher degrades to ordinary filtering.
package search

import (
	"context"
	"strings"
	"sync"
)

// Provider returns the ids of documents matching a free-text query over the
// given fields.
type Provider interface {
	Search(ctx context.Context, index, query string, fields []string) ([]string, error)
}

// MemoryIndex is an in-process Provider for tests and single-node setups.
// Documents are indexed by id; matching is case-insensitive substring over
// the requested fields.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]string // index -> id -> field -> text
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]map[string]map[string]string)}
}

// Index adds or replaces a document's searchable text.
func (m *MemoryIndex) Index(index, id string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.docs[index]
	if byID == nil {
		byID = make(map[string]map[string]string)
		m.docs[index] = byID
	}
	byID[id] = fields
}

func (m *MemoryIndex) Search(ctx context.Context, index, query string, fields []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	fieldSet := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldSet[f] = true
	}

	var ids []string
	for id, doc := range m.docs[index] {
		for field, text := range doc {
			if len(fieldSet) > 0 && !fieldSet[field] {
				continue
			}
			if strings.Contains(strings.ToLower(text), query) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}
