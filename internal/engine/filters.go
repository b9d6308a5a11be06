package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// FilterExpression is a validated set of "<fieldPath>__<operator>" keys
// mapped to their raw caller-supplied values. Paths use "__" between nested
// segments as well, so "actor__user__exact" filters actor.user.
type FilterExpression map[string]string

// maxNestedDepth bounds recursive expansion of Embedded/Reference schemas.
// Two levels of nesting are filterable; deeper chains are not enumerated.
const maxNestedDepth = 2

var operatorsByKind = map[schema.Kind][]string{
	schema.KindString: {
		"exact", "iexact", "contains", "icontains",
		"startswith", "istartswith", "endswith", "iendswith",
		"in", "nin", "exists", "regex",
	},
	schema.KindInt:      {"exact", "ne", "lt", "lte", "gt", "gte", "in", "nin", "exists"},
	schema.KindFloat:    {"exact", "ne", "lt", "lte", "gt", "gte", "in", "nin", "exists"},
	schema.KindBool:     {"exact", "ne", "exists"},
	schema.KindDateTime: {"exact", "ne", "lt", "lte", "gt", "gte", "exists"},
	schema.KindList:     {"all", "size", "in", "nin", "exists"},
}

// Operators shared by Embedded and Reference fields themselves; their
// nested fields expand recursively on top of these.
var nestedFieldOperators = []string{"exact", "exists"}

// reservedParams are query keys the dispatcher consumes itself.
var reservedParams = map[string]bool{"q": true, "order_by": true}

// AllowedFilterParams enumerates every valid filter key for a schema,
// sorted. The primary-key field is excluded.
func AllowedFilterParams(s *schema.EntitySchema) []string {
	set := make(map[string]bool)
	collectFilterParams(s, "", 0, true, set)
	params := make([]string, 0, len(set))
	for p := range set {
		params = append(params, p)
	}
	sort.Strings(params)
	return params
}

func collectFilterParams(s *schema.EntitySchema, prefix string, depth int, topLevel bool, out map[string]bool) {
	for _, f := range s.Fields {
		// The primary key is never filterable at the top level; nested
		// schemas keep their id fields because references filter by them.
		if topLevel && f.Name == s.PrimaryKey {
			continue
		}
		path := f.Name
		if prefix != "" {
			path = prefix + "__" + f.Name
		}

		switch f.Kind {
		case schema.KindEmbedded, schema.KindReference:
			for _, op := range nestedFieldOperators {
				out[path+"__"+op] = true
			}
			if f.Nested != nil && depth < maxNestedDepth {
				collectFilterParams(f.Nested, path, depth+1, false, out)
			}
		default:
			for _, op := range operatorsByKind[f.Kind] {
				out[path+"__"+op] = true
			}
		}
	}
}

// BuildFilters validates raw query parameters against the schema's filter
// whitelist. Any unknown key rejects the whole request; the returned
// AppError carries the complete whitelist.
func BuildFilters(s *schema.EntitySchema, raw map[string]string) (FilterExpression, *AppError) {
	if len(raw) == 0 {
		return FilterExpression{}, nil
	}

	allowed := AllowedFilterParams(s)
	allowedSet := make(map[string]bool, len(allowed))
	for _, p := range allowed {
		allowedSet[p] = true
	}

	expr := make(FilterExpression, len(raw))
	var bad []string
	for key, val := range raw {
		if reservedParams[key] {
			continue
		}
		if !allowedSet[key] {
			bad = append(bad, key)
			continue
		}
		expr[key] = val
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, FilterError(
			fmt.Sprintf("Invalid filter parameters: %s", strings.Join(bad, ", ")),
			allowed,
		)
	}
	return expr, nil
}

// Canonical serializes the filter expression deterministically for use as
// a cache key component.
func (f FilterExpression) Canonical() string {
	if len(f) == 0 {
		return "*"
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f[k])
	}
	return b.String()
}
