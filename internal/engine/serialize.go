package engine

import (
	"context"
	"fmt"

	"github.com/rezabhm/slaughter-erp/internal/client"
	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

// Expander turns bare Reference ids into full nested representations, one
// level deep. Local references resolve through the store; remote ones go
// over HTTP through the service client. A failed remote expansion degrades
// to a placeholder instead of failing the request.
type Expander struct {
	db     store.Store
	remote *client.ServiceClient
}

func NewExpander(db store.Store, remote *client.ServiceClient) *Expander {
	return &Expander{db: db, remote: remote}
}

// Expand returns a serialized copy of doc with Reference fields expanded.
// Embedded fields pass through unchanged; list-of-reference fields expand
// element-wise.
func (e *Expander) Expand(ctx context.Context, s *schema.EntitySchema, doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	for _, f := range s.Fields {
		switch {
		case f.Kind == schema.KindReference:
			id, ok := out[f.Name].(string)
			if !ok || id == "" {
				continue
			}
			out[f.Name] = e.resolve(ctx, f, id)
		case f.Kind == schema.KindList && f.Elem != nil && f.Elem.Kind == schema.KindReference:
			list, ok := out[f.Name].([]any)
			if !ok {
				continue
			}
			expanded := make([]any, len(list))
			for i, el := range list {
				id, ok := el.(string)
				if !ok {
					expanded[i] = el
					continue
				}
				expanded[i] = e.resolve(ctx, f.Elem, id)
			}
			out[f.Name] = expanded
		}
	}
	return out
}

// ExpandAll serializes a result set.
func (e *Expander) ExpandAll(ctx context.Context, s *schema.EntitySchema, rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = e.Expand(ctx, s, row)
	}
	return out
}

func (e *Expander) resolve(ctx context.Context, f *schema.FieldDescriptor, id string) any {
	if f.Nested == nil {
		return id
	}
	if f.Service == "" {
		doc, err := e.db.Get(ctx, f.Nested, id)
		if err != nil {
			return placeholder(f.Nested.Name)
		}
		return doc
	}
	if e.remote == nil {
		return placeholder(f.Nested.Name)
	}
	doc, err := e.remote.FetchDocument(ctx, f.Service, f.Nested.Name, id)
	if err != nil {
		return placeholder(f.Nested.Name)
	}
	return doc
}

func placeholder(entity string) map[string]any {
	return map[string]any{"message": fmt.Sprintf("can't get data from [%s]", entity)}
}
