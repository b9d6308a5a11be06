package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// splitKey splits a canonical filter key into path segments and operator.
func splitKey(key string) ([]string, string) {
	parts := strings.Split(key, "__")
	if len(parts) < 2 {
		return parts, "exact"
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// resolvePath walks nested maps along the field path. ok is false when a
// segment is missing or a non-map is hit mid-path.
func resolvePath(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// matchFilter evaluates one canonical filter key against a document. The
// memory store runs every document through this; the Postgres store
// translates the same operator set to SQL instead.
func matchFilter(doc map[string]any, key, want string) bool {
	path, op := splitKey(key)
	val, present := resolvePath(doc, path)

	if op == "exists" {
		wantExists, _ := strconv.ParseBool(want)
		return present == wantExists
	}
	if !present {
		return false
	}

	switch op {
	case "exact":
		return compareEq(val, want)
	case "iexact":
		return strings.EqualFold(toString(val), want)
	case "ne":
		return !compareEq(val, want)
	case "contains":
		return strings.Contains(toString(val), want)
	case "icontains":
		return strings.Contains(strings.ToLower(toString(val)), strings.ToLower(want))
	case "startswith":
		return strings.HasPrefix(toString(val), want)
	case "istartswith":
		return strings.HasPrefix(strings.ToLower(toString(val)), strings.ToLower(want))
	case "endswith":
		return strings.HasSuffix(toString(val), want)
	case "iendswith":
		return strings.HasSuffix(strings.ToLower(toString(val)), strings.ToLower(want))
	case "regex":
		re, err := regexp.Compile(want)
		return err == nil && re.MatchString(toString(val))
	case "in":
		return memberOf(val, want)
	case "nin":
		return !memberOf(val, want)
	case "lt", "lte", "gt", "gte":
		return compareOrdered(val, want, op)
	case "all":
		list, ok := val.([]any)
		if !ok {
			return false
		}
		for _, item := range strings.Split(want, ",") {
			if !listContains(list, strings.TrimSpace(item)) {
				return false
			}
		}
		return true
	case "size":
		list, ok := val.([]any)
		if !ok {
			return false
		}
		n, err := strconv.Atoi(want)
		return err == nil && len(list) == n
	default:
		return false
	}
}

func compareEq(val any, want string) bool {
	switch v := val.(type) {
	case bool:
		b, err := strconv.ParseBool(want)
		return err == nil && v == b
	case float64, int, int64:
		f, err := strconv.ParseFloat(want, 64)
		return err == nil && toFloat(val) == f
	default:
		return toString(v) == want
	}
}

func compareOrdered(val any, want, op string) bool {
	var cmp int
	switch v := val.(type) {
	case float64, int, int64:
		f, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false
		}
		cmp = compareFloat(toFloat(v), f)
	case string:
		// Datetimes travel as strings; compare chronologically when both
		// sides parse, lexically otherwise.
		if lt, lw, ok := parseTimes(v, want); ok {
			cmp = compareTime(lt, lw)
		} else {
			cmp = strings.Compare(v, want)
		}
	default:
		return false
	}
	switch op {
	case "lt":
		return cmp < 0
	case "lte":
		return cmp <= 0
	case "gt":
		return cmp > 0
	case "gte":
		return cmp >= 0
	}
	return false
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimes(a, b string) (time.Time, time.Time, bool) {
	ta, ok := parseTime(a)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	tb, ok := parseTime(b)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return ta, tb, true
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func memberOf(val any, want string) bool {
	// List-typed fields: membership of any wanted item in the list.
	if list, ok := val.([]any); ok {
		for _, item := range strings.Split(want, ",") {
			if listContains(list, strings.TrimSpace(item)) {
				return true
			}
		}
		return false
	}
	s := toString(val)
	for _, item := range strings.Split(want, ",") {
		if s == strings.TrimSpace(item) {
			return true
		}
	}
	return false
}

func listContains(list []any, want string) bool {
	for _, el := range list {
		if toString(el) == want {
			return true
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
