package engine

import (
	"strings"
	"testing"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

func filterTestSchema() *schema.EntitySchema {
	product := schema.NewEntitySchema("product", "products",
		&schema.FieldDescriptor{Name: "id", Kind: schema.KindString, PrimaryKey: true},
		&schema.FieldDescriptor{Name: "name", Kind: schema.KindString},
	)
	actor := schema.NewEntitySchema("actor", "actors",
		&schema.FieldDescriptor{Name: "user", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "date", Kind: schema.KindDateTime},
	)
	done := schema.NewEntitySchema("check_status", "check_statuses",
		&schema.FieldDescriptor{Name: "status", Kind: schema.KindBool},
		&schema.FieldDescriptor{Name: "actor", Kind: schema.KindEmbedded, Nested: actor},
	)
	return schema.NewEntitySchema("purchase_order", "purchase_orders",
		&schema.FieldDescriptor{Name: "id", Kind: schema.KindString, PrimaryKey: true},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "quality", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "have_factor", Kind: schema.KindBool},
		&schema.FieldDescriptor{Name: "created_at", Kind: schema.KindDateTime},
		&schema.FieldDescriptor{Name: "tags", Kind: schema.KindList,
			Elem: &schema.FieldDescriptor{Name: "tag", Kind: schema.KindString}},
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Nested: product},
		&schema.FieldDescriptor{Name: "done", Kind: schema.KindEmbedded, Nested: done},
	)
}

func TestAllowedFilterParams_OperatorTables(t *testing.T) {
	params := AllowedFilterParams(filterTestSchema())
	set := make(map[string]bool, len(params))
	for _, p := range params {
		set[p] = true
	}

	for _, want := range []string{
		"weight__gt", "weight__lte", "weight__exists",
		"quality__icontains", "quality__regex", "quality__istartswith",
		"have_factor__exact", "have_factor__ne",
		"created_at__gte", "created_at__lt",
		"tags__all", "tags__size",
		"product__exact", "product__exists",
		"product__name__icontains",
		"done__exact",
		"done__status__exact",
		"done__actor__user__exact",
	} {
		if !set[want] {
			t.Errorf("expected %s in whitelist", want)
		}
	}

	for _, reject := range []string{
		"id__exact",              // primary key is not filterable
		"quality__gt",            // ordered ops don't apply to strings
		"have_factor__contains",  // substring ops don't apply to bools
		"weight__icontains",      // substring ops don't apply to floats
		"done__actor__icontains", // embedded fields only take exact/exists
	} {
		if set[reject] {
			t.Errorf("did not expect %s in whitelist", reject)
		}
	}
}

func TestAllowedFilterParams_NestedIDStaysFilterable(t *testing.T) {
	params := AllowedFilterParams(filterTestSchema())
	found := false
	for _, p := range params {
		if p == "product__id__exact" {
			found = true
		}
	}
	if !found {
		t.Fatal("nested reference id should stay filterable")
	}
}

func TestBuildFilters_WholesaleRejection(t *testing.T) {
	s := filterTestSchema()

	expr, appErr := BuildFilters(s, map[string]string{
		"weight__gt": "10",
		"weigth__gt": "10", // typo
	})
	if appErr == nil {
		t.Fatal("expected rejection")
	}
	if expr != nil {
		t.Fatalf("expected no partial expression, got %v", expr)
	}
	if appErr.Status != 400 {
		t.Fatalf("expected 400, got %d", appErr.Status)
	}
	if !strings.Contains(appErr.Message, "weigth__gt") {
		t.Fatalf("expected offending key in message, got %q", appErr.Message)
	}
	if len(appErr.AllowedFilters) == 0 {
		t.Fatal("expected allowed_filter_parameters in error")
	}
	whitelisted := false
	for _, p := range appErr.AllowedFilters {
		if p == "weight__gt" {
			whitelisted = true
		}
	}
	if !whitelisted {
		t.Fatal("expected weight__gt in allowed_filter_parameters")
	}
}

func TestBuildFilters_ValidAndReserved(t *testing.T) {
	s := filterTestSchema()

	expr, appErr := BuildFilters(s, map[string]string{
		"weight__gt":       "10",
		"quality__iexact":  "premium",
		"q":                "chicken",
		"order_by":         "created_at",
		"done__actor__user__exact": "erp-admin",
	})
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(expr) != 3 {
		t.Fatalf("expected 3 filters (reserved keys skipped), got %d: %v", len(expr), expr)
	}
	if expr["weight__gt"] != "10" {
		t.Fatalf("expected raw value preserved, got %q", expr["weight__gt"])
	}
}

func TestFilterExpression_Canonical(t *testing.T) {
	if got := (FilterExpression{}).Canonical(); got != "*" {
		t.Fatalf("empty expression should canonicalize to *, got %q", got)
	}

	a := FilterExpression{"weight__gt": "10", "quality__iexact": "premium"}
	b := FilterExpression{"quality__iexact": "premium", "weight__gt": "10"}
	if a.Canonical() != b.Canonical() {
		t.Fatal("canonical form must not depend on map order")
	}
	if a.Canonical() != "quality__iexact=premium&weight__gt=10" {
		t.Fatalf("unexpected canonical form %q", a.Canonical())
	}
}
