package schema

// EntitySchema describes one persisted entity: its fields, primary key and
// default ordering. Built statically at startup and read-only afterwards.
type EntitySchema struct {
	Name       string
	Collection string
	PrimaryKey string
	OrderBy    string
	Fields     []*FieldDescriptor

	byName map[string]*FieldDescriptor
}

// NewEntitySchema builds a schema. PrimaryKey defaults to "id" and OrderBy
// defaults to the primary key when unset.
func NewEntitySchema(name, collection string, fields ...*FieldDescriptor) *EntitySchema {
	s := &EntitySchema{
		Name:       name,
		Collection: collection,
		PrimaryKey: "id",
		OrderBy:    "id",
		Fields:     fields,
		byName:     make(map[string]*FieldDescriptor, len(fields)),
	}
	for _, f := range fields {
		if f.PrimaryKey {
			s.PrimaryKey = f.Name
			s.OrderBy = f.Name
		}
		s.byName[f.Name] = f
	}
	return s
}

// WithOrderBy overrides the default ordering field.
func (s *EntitySchema) WithOrderBy(field string) *EntitySchema {
	s.OrderBy = field
	return s
}

// GetField returns the descriptor for the given field name, or nil.
func (s *EntitySchema) GetField(name string) *FieldDescriptor {
	return s.byName[name]
}

// HasField reports whether the entity has a field with the given name.
func (s *EntitySchema) HasField(name string) bool {
	return s.byName[name] != nil
}

// WritableFields returns fields a client may set on create. The generated
// primary key is excluded.
func (s *EntitySchema) WritableFields() []*FieldDescriptor {
	var fields []*FieldDescriptor
	for _, f := range s.Fields {
		if f.PrimaryKey {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// RequiredFields returns the names of fields that must appear in a create
// payload (required, no default, not the primary key).
func (s *EntitySchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.PrimaryKey || !f.Required || f.Default != nil {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}
