package schema

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEntity is returned by Describe for names never registered.
var ErrUnknownEntity = errors.New("unknown entity")

// Registry holds every entity schema in the process. Populated once during
// startup; a read lock guards against misuse but registration after boot is
// a programming error.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntitySchema
}

func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntitySchema)}
}

// MustRegister adds a schema. Duplicate names panic: registration happens
// once at boot and a clash is a setup defect.
func (r *Registry) MustRegister(s *EntitySchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[s.Name]; ok {
		panic(fmt.Sprintf("schema: entity %q registered twice", s.Name))
	}
	r.entities[s.Name] = s
}

// Describe returns the schema for the given entity name.
func (r *Registry) Describe(name string) (*EntitySchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return s, nil
}

// AllEntities returns every registered schema.
func (r *Registry) AllEntities() []*EntitySchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EntitySchema, 0, len(r.entities))
	for _, s := range r.entities {
		out = append(out, s)
	}
	return out
}
