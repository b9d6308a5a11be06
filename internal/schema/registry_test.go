package schema

import (
	"errors"
	"testing"
	"time"
)

func TestDescribeUnknownEntity(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Describe("nope")
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestRegisterAndDescribe(t *testing.T) {
	reg := NewRegistry()
	s := NewEntitySchema("product", "products",
		&FieldDescriptor{Name: "id", Kind: KindString, PrimaryKey: true},
		&FieldDescriptor{Name: "name", Kind: KindString, Required: true},
	)
	reg.MustRegister(s)

	got, err := reg.Describe("product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PrimaryKey != "id" {
		t.Errorf("expected primary key id, got %s", got.PrimaryKey)
	}
	if !got.HasField("name") {
		t.Error("expected field name")
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := NewRegistry()
	s := NewEntitySchema("product", "products")
	reg.MustRegister(s)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg.MustRegister(s)
}

func TestDefaultProviderVariants(t *testing.T) {
	c := Constant("pending")
	if c.Resolve(Context{}) != "pending" {
		t.Error("constant default not resolved")
	}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Computed(func(ctx Context) any { return ctx.Now.Format(time.RFC3339) })
	if d.Resolve(Context{Now: now}) != "2025-01-01T00:00:00Z" {
		t.Error("computed default not resolved from context")
	}
}

func TestAcceptsValue(t *testing.T) {
	cases := []struct {
		kind Kind
		val  any
		ok   bool
	}{
		{KindString, "x", true},
		{KindString, 4, false},
		{KindInt, float64(3), true},
		{KindInt, 3.5, false},
		{KindFloat, 3.5, true},
		{KindBool, true, true},
		{KindBool, "true", false},
		{KindDateTime, "2025-01-01T00:00:00", true},
		{KindDateTime, 1735689600, false},
		{KindList, []any{"a"}, true},
		{KindEmbedded, map[string]any{"a": 1}, true},
		{KindReference, "some-id", true},
	}
	for _, tc := range cases {
		f := &FieldDescriptor{Name: "f", Kind: tc.kind, Required: true}
		if got := f.AcceptsValue(tc.val); got != tc.ok {
			t.Errorf("kind %s value %v: expected %v, got %v", tc.kind, tc.val, tc.ok, got)
		}
	}
}

func TestRequiredFields(t *testing.T) {
	s := NewEntitySchema("order", "orders",
		&FieldDescriptor{Name: "id", Kind: KindString, PrimaryKey: true},
		&FieldDescriptor{Name: "product", Kind: KindString, Required: true},
		&FieldDescriptor{Name: "status", Kind: KindString, Required: true, Default: Constant("open")},
		&FieldDescriptor{Name: "note", Kind: KindString},
	)
	req := s.RequiredFields()
	if len(req) != 1 || req[0] != "product" {
		t.Errorf("expected [product], got %v", req)
	}
}
