package engine

import (
	"fmt"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// ValidDataSentinel marks an element of a bulk payload that passed
// validation in the per-index result map.
const ValidDataSentinel = "Valid data"

// ValidateSingle checks a create/update payload against the schema.
// fieldsAllowed restricts which fields are checked; nil means every
// writable field. Every allowed field must be present with a value
// acceptable to its kind.
func ValidateSingle(s *schema.EntitySchema, payload map[string]any, fieldsAllowed []string) []ErrorDetail {
	fields := resolveAllowed(s, fieldsAllowed)

	var errs []ErrorDetail
	for _, f := range fields {
		val, present := payload[f.Name]
		if !present {
			if f.Default != nil || !f.Required {
				continue
			}
			errs = append(errs, ErrorDetail{
				Field:   f.Name,
				Message: fmt.Sprintf("Missing required field: %s", f.Name),
			})
			continue
		}
		if !f.AcceptsValue(val) {
			errs = append(errs, ErrorDetail{
				Field:   f.Name,
				Message: fmt.Sprintf("Invalid format for %s (expected: %s)", f.Name, f.Kind),
			})
		}
	}
	return errs
}

// ValidatePartial checks only the fields present in the payload, for PATCH.
// Keys that do not resolve on the schema are reported, not dropped.
func ValidatePartial(s *schema.EntitySchema, payload map[string]any) []ErrorDetail {
	var errs []ErrorDetail
	for name, val := range payload {
		if name == s.PrimaryKey {
			continue
		}
		f := s.GetField(name)
		if f == nil {
			errs = append(errs, ErrorDetail{
				Field:   name,
				Message: fmt.Sprintf("Unknown field: %s", name),
			})
			continue
		}
		if !f.AcceptsValue(val) {
			errs = append(errs, ErrorDetail{
				Field:   name,
				Message: fmt.Sprintf("Invalid format for %s (expected: %s)", name, f.Kind),
			})
		}
	}
	return errs
}

// BulkResult maps a bulk payload index to that element's validation
// outcome: the ValidDataSentinel string, or the element's error details.
type BulkResult map[int]any

// ValidateBulk validates each element of a bulk payload independently.
// The batch is all-or-nothing: ok is false if ANY element fails, but the
// per-index detail is always returned so callers can see which ones did.
func ValidateBulk(s *schema.EntitySchema, payload []any, fieldsAllowed []string, partial bool) (BulkResult, bool) {
	result := make(BulkResult, len(payload))
	ok := true
	for i, el := range payload {
		obj, isMap := el.(map[string]any)
		if !isMap {
			result[i] = []ErrorDetail{{Message: "Element must be an object"}}
			ok = false
			continue
		}
		var errs []ErrorDetail
		if partial {
			errs = ValidatePartial(s, obj)
		} else {
			errs = ValidateSingle(s, obj, fieldsAllowed)
		}
		if len(errs) > 0 {
			result[i] = errs
			ok = false
		} else {
			result[i] = ValidDataSentinel
		}
	}
	return result, ok
}

// ApplyDefaults fills omitted fields from their DefaultProvider and stamps
// a generated primary key. Fields outside fieldsAllowed are always filled
// from defaults, never from the payload.
func ApplyDefaults(s *schema.EntitySchema, payload map[string]any, fieldsAllowed []string, ctx schema.Context, newID func() string) map[string]any {
	allowed := make(map[string]bool)
	for _, f := range resolveAllowed(s, fieldsAllowed) {
		allowed[f.Name] = true
	}

	doc := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.PrimaryKey {
			doc[f.Name] = newID()
			continue
		}
		if val, present := payload[f.Name]; present && allowed[f.Name] {
			doc[f.Name] = val
			continue
		}
		if f.Default != nil {
			doc[f.Name] = f.Default.Resolve(ctx)
		}
	}
	return doc
}

func resolveAllowed(s *schema.EntitySchema, fieldsAllowed []string) []*schema.FieldDescriptor {
	if fieldsAllowed == nil {
		return s.WritableFields()
	}
	var fields []*schema.FieldDescriptor
	for _, name := range fieldsAllowed {
		if f := s.GetField(name); f != nil && !f.PrimaryKey {
			fields = append(fields, f)
		}
	}
	return fields
}
