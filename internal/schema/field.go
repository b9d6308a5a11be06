package schema

import "time"

// Kind is the type tag of a field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindList
	KindEmbedded
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindList:
		return "list"
	case KindEmbedded:
		return "embedded"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Context carries the per-request values a computed default may need.
type Context struct {
	UserID string
	Now    time.Time
}

// DefaultProvider supplies a value for a field omitted from a create payload.
// Exactly one of Constant/Compute is set; the variant is resolved by tag,
// never by probing.
type DefaultProvider struct {
	constant any
	compute  func(Context) any
}

func Constant(v any) *DefaultProvider {
	return &DefaultProvider{constant: v}
}

func Computed(fn func(Context) any) *DefaultProvider {
	return &DefaultProvider{compute: fn}
}

// Resolve returns the default value for the given context.
func (d *DefaultProvider) Resolve(ctx Context) any {
	if d.compute != nil {
		return d.compute(ctx)
	}
	return d.constant
}

// FieldDescriptor describes one field of an entity.
//
// Nested is set iff Kind is Embedded or Reference. Elem describes the
// element type of a List field (nil means list of strings). Service names
// the owning microservice for a Reference resolved over HTTP; empty means
// the referenced entity lives in the local store.
type FieldDescriptor struct {
	Name       string
	Kind       Kind
	Required   bool
	PrimaryKey bool
	Default    *DefaultProvider
	Nested     *EntitySchema
	Elem       *FieldDescriptor
	Service    string
}

// AcceptsValue reports whether a decoded JSON value is acceptable for the
// field's kind. DateTime deliberately accepts strings only; downstream
// parsing expects the wire format.
func (f *FieldDescriptor) AcceptsValue(v any) bool {
	if v == nil {
		return !f.Required
	}
	switch f.Kind {
	case KindString, KindDateTime:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case KindFloat:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindList:
		_, ok := v.([]any)
		return ok
	case KindEmbedded:
		_, ok := v.(map[string]any)
		return ok
	case KindReference:
		// References travel as bare ids and expand on read.
		switch v.(type) {
		case string, map[string]any:
			return true
		}
		return false
	}
	return false
}
