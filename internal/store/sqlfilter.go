package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type paramBuilder struct {
	params []any
	n      int
}

func (p *paramBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

// buildWhere translates a validated filter expression into a parameterized
// WHERE clause over the doc JSONB column. Keys are iterated in sorted order
// so the generated SQL is deterministic.
func buildWhere(filters Filters, pb *paramBuilder) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, key := range keys {
		clause, err := buildClause(key, filters[key], pb)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

func buildClause(key, want string, pb *paramBuilder) (string, error) {
	path, op := splitKey(key)
	text := textExpr(path)
	node := nodeExpr(path)

	switch op {
	case "exact":
		if _, err := strconv.ParseFloat(want, 64); err == nil {
			return fmt.Sprintf("(%s)::numeric = %s", text, pb.Add(want)), nil
		}
		return fmt.Sprintf("%s = %s", text, pb.Add(want)), nil
	case "iexact":
		return fmt.Sprintf("lower(%s) = lower(%s)", text, pb.Add(want)), nil
	case "ne":
		return fmt.Sprintf("%s IS DISTINCT FROM %s", text, pb.Add(want)), nil
	case "contains":
		return fmt.Sprintf("%s LIKE '%%' || %s || '%%'", text, pb.Add(want)), nil
	case "icontains":
		return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", text, pb.Add(want)), nil
	case "startswith":
		return fmt.Sprintf("%s LIKE %s || '%%'", text, pb.Add(want)), nil
	case "istartswith":
		return fmt.Sprintf("%s ILIKE %s || '%%'", text, pb.Add(want)), nil
	case "endswith":
		return fmt.Sprintf("%s LIKE '%%' || %s", text, pb.Add(want)), nil
	case "iendswith":
		return fmt.Sprintf("%s ILIKE '%%' || %s", text, pb.Add(want)), nil
	case "regex":
		return fmt.Sprintf("%s ~ %s", text, pb.Add(want)), nil
	case "lt", "lte", "gt", "gte":
		cmp := map[string]string{"lt": "<", "lte": "<=", "gt": ">", "gte": ">="}[op]
		if _, err := strconv.ParseFloat(want, 64); err == nil {
			return fmt.Sprintf("(%s)::numeric %s %s", text, cmp, pb.Add(want)), nil
		}
		return fmt.Sprintf("%s %s %s", text, cmp, pb.Add(want)), nil
	case "in":
		return fmt.Sprintf("%s = ANY(%s)", text, pb.Add(splitList(want))), nil
	case "nin":
		return fmt.Sprintf("%s != ALL(%s)", text, pb.Add(splitList(want))), nil
	case "exists":
		wantExists, _ := strconv.ParseBool(want)
		if wantExists {
			return fmt.Sprintf("%s IS NOT NULL", node), nil
		}
		return fmt.Sprintf("%s IS NULL", node), nil
	case "all":
		items := splitList(want)
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = jsonString(item)
		}
		arr := "[" + strings.Join(quoted, ",") + "]"
		return fmt.Sprintf("%s @> %s::jsonb", node, pb.Add(arr)), nil
	case "size":
		n, err := strconv.Atoi(want)
		if err != nil {
			return "", fmt.Errorf("size filter needs an integer, got %q", want)
		}
		return fmt.Sprintf("jsonb_array_length(%s) = %s", node, pb.Add(n)), nil
	default:
		return "", fmt.Errorf("unsupported filter operator: %s", op)
	}
}

// textExpr extracts the value at path as text: doc #>> '{a,b}'.
func textExpr(path []string) string {
	return fmt.Sprintf("doc #>> '{%s}'", strings.Join(path, ","))
}

// nodeExpr extracts the value at path as jsonb: doc #> '{a,b}'.
func nodeExpr(path []string) string {
	return fmt.Sprintf("doc #> '{%s}'", strings.Join(path, ","))
}

func splitList(want string) []string {
	parts := strings.Split(want, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
