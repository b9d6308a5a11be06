package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

func validateTestSchema() *schema.EntitySchema {
	return schema.NewEntitySchema("purchase_order", "purchase_orders",
		&schema.FieldDescriptor{Name: "id", Kind: schema.KindString, PrimaryKey: true},
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "required_deadline", Kind: schema.KindDateTime, Required: true},
		&schema.FieldDescriptor{Name: "have_factor", Kind: schema.KindBool, Default: schema.Constant(false)},
		&schema.FieldDescriptor{Name: "status", Kind: schema.KindString, Default: schema.Constant("pending")},
	)
}

func TestValidateSingle_MissingRequired(t *testing.T) {
	s := validateTestSchema()

	errs := ValidateSingle(s, map[string]any{"weight": 12.5}, nil)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	joined := ""
	for _, e := range errs {
		joined += e.Message + ";"
	}
	if !strings.Contains(joined, "Missing required field: product") {
		t.Errorf("expected product error, got %q", joined)
	}
	if !strings.Contains(joined, "Missing required field: required_deadline") {
		t.Errorf("expected required_deadline error, got %q", joined)
	}
}

func TestValidateSingle_KindMismatch(t *testing.T) {
	s := validateTestSchema()

	errs := ValidateSingle(s, map[string]any{
		"product":           "p-1",
		"required_deadline": "2026-09-01T00:00:00Z",
		"weight":            "heavy",
	}, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "weight" {
		t.Fatalf("expected weight error, got %s", errs[0].Field)
	}
	if !strings.Contains(errs[0].Message, "Invalid format for weight") {
		t.Fatalf("unexpected message %q", errs[0].Message)
	}
}

func TestValidateSingle_DefaultedFieldsMayBeAbsent(t *testing.T) {
	s := validateTestSchema()

	errs := ValidateSingle(s, map[string]any{
		"product":           "p-1",
		"required_deadline": "2026-09-01T00:00:00Z",
	}, nil)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateSingle_FieldsAllowedRestricts(t *testing.T) {
	s := validateTestSchema()

	// required_deadline outside fieldsAllowed is not checked
	errs := ValidateSingle(s, map[string]any{"product": "p-1"}, []string{"product", "weight"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidatePartial_UnknownFieldReported(t *testing.T) {
	s := validateTestSchema()

	errs := ValidatePartial(s, map[string]any{"weigth": 5})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !strings.Contains(errs[0].Message, "Unknown field: weigth") {
		t.Fatalf("unexpected message %q", errs[0].Message)
	}
}

func TestValidateBulk_AllOrNothing(t *testing.T) {
	s := validateTestSchema()

	payload := []any{
		map[string]any{"product": "p-1", "required_deadline": "2026-09-01T00:00:00Z"},
		map[string]any{"weight": 10.0}, // missing both required fields
		"not-an-object",
	}

	result, ok := ValidateBulk(s, payload, nil, false)
	if ok {
		t.Fatal("expected batch rejection when any element fails")
	}
	if result[0] != ValidDataSentinel {
		t.Fatalf("expected element 0 marked valid, got %v", result[0])
	}
	if _, valid := result[1].(string); valid {
		t.Fatalf("expected element 1 error details, got %v", result[1])
	}
	if _, valid := result[2].(string); valid {
		t.Fatalf("expected element 2 error details, got %v", result[2])
	}
}

func TestValidateBulk_AllValid(t *testing.T) {
	s := validateTestSchema()

	payload := []any{
		map[string]any{"product": "p-1", "required_deadline": "2026-09-01T00:00:00Z"},
		map[string]any{"product": "p-2", "required_deadline": "2026-09-02T00:00:00Z", "weight": 4.5},
	}
	result, ok := ValidateBulk(s, payload, nil, false)
	if !ok {
		t.Fatalf("expected batch acceptance, got %v", result)
	}
	for i := range payload {
		if result[i] != ValidDataSentinel {
			t.Fatalf("expected element %d marked valid, got %v", i, result[i])
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	s := validateTestSchema()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ctx := schema.Context{UserID: "u-1", Now: now}

	doc := ApplyDefaults(s, map[string]any{
		"product":           "p-1",
		"required_deadline": "2026-09-01T00:00:00Z",
		"status":            "done", // not in fieldsAllowed, must come from default
	}, []string{"product", "required_deadline", "weight"}, ctx, func() string { return "generated-id" })

	if doc["id"] != "generated-id" {
		t.Fatalf("expected generated pk, got %v", doc["id"])
	}
	if doc["product"] != "p-1" {
		t.Fatalf("expected payload value kept, got %v", doc["product"])
	}
	if doc["status"] != "pending" {
		t.Fatalf("payload must not override a field outside fieldsAllowed, got %v", doc["status"])
	}
	if doc["have_factor"] != false {
		t.Fatalf("expected default false, got %v", doc["have_factor"])
	}
	if _, present := doc["weight"]; present {
		t.Fatalf("absent field without default should stay unset, got %v", doc["weight"])
	}
}
