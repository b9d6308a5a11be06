// Package erp registers the slaughterhouse domain: entity schemas, CRUD
// resources and workflow actions across purchasing, production, sales and
// warehouse management.
package erp

import (
	"time"

	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/workflow"
)

// Schemas holds every registered entity schema, for wiring and tests.
type Schemas struct {
	User                           *schema.EntitySchema
	Product                        *schema.EntitySchema
	Warehouse                      *schema.EntitySchema
	PurchaseOrder                  *schema.EntitySchema
	Invoice                        *schema.EntitySchema
	ProductionOrder                *schema.EntitySchema
	PlanningSeries                 *schema.EntitySchema
	PoultryCuttingProductionSeries *schema.EntitySchema
	TruckLoading                   *schema.EntitySchema
	Order                          *schema.EntitySchema
	Transaction                    *schema.EntitySchema
}

func pk() *schema.FieldDescriptor {
	return &schema.FieldDescriptor{Name: "id", Kind: schema.KindString, PrimaryKey: true}
}

func createdAt() *schema.FieldDescriptor {
	return &schema.FieldDescriptor{
		Name: "created_at",
		Kind: schema.KindDateTime,
		Default: schema.Computed(func(ctx schema.Context) any {
			return ctx.Now.UTC().Format(time.RFC3339)
		}),
	}
}

func statusField(initial string) *schema.FieldDescriptor {
	return &schema.FieldDescriptor{
		Name:    "status",
		Kind:    schema.KindString,
		Default: schema.Constant(initial),
	}
}

// actorSchema describes the user stamp inside a CheckStatus.
func actorSchema() *schema.EntitySchema {
	return schema.NewEntitySchema("actor", "actors",
		&schema.FieldDescriptor{Name: "user", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "date", Kind: schema.KindDateTime},
	)
}

// checkStatusSchema describes the embedded record stamped by each workflow
// transition: who approved/rejected/performed it and when.
func checkStatusSchema() *schema.EntitySchema {
	return schema.NewEntitySchema("check_status", "check_statuses",
		&schema.FieldDescriptor{Name: "status", Kind: schema.KindBool},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "actor", Kind: schema.KindEmbedded, Nested: actorSchema()},
	)
}

func check(name string) *schema.FieldDescriptor {
	return &schema.FieldDescriptor{Name: name, Kind: schema.KindEmbedded, Nested: checkStatusSchema()}
}

// NewSchemas builds every domain schema. All schemas are static: built once
// here, registered at boot, never derived from live records.
func NewSchemas() *Schemas {
	s := &Schemas{}

	s.User = schema.NewEntitySchema("user", "users",
		pk(),
		&schema.FieldDescriptor{Name: "username", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "password_hash", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "roles", Kind: schema.KindList,
			Elem: &schema.FieldDescriptor{Name: "role", Kind: schema.KindString}},
		createdAt(),
	)

	s.Product = schema.NewEntitySchema("product", "products",
		pk(),
		&schema.FieldDescriptor{Name: "name", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "code", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "unit", Kind: schema.KindString, Default: schema.Constant("kg")},
		createdAt(),
	).WithOrderBy("name")

	s.Warehouse = schema.NewEntitySchema("warehouse", "warehouses",
		pk(),
		&schema.FieldDescriptor{Name: "name", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "is_active", Kind: schema.KindBool, Default: schema.Constant(true)},
		statusField("active"),
		check("activated"),
		check("deactivated"),
		createdAt(),
	).WithOrderBy("name")

	s.PurchaseOrder = schema.NewEntitySchema("purchase_order", "purchase_orders",
		pk(),
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true, Nested: s.Product},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "quality", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "estimated_price", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "final_price", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "required_deadline", Kind: schema.KindDateTime, Required: true},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "have_factor", Kind: schema.KindBool, Default: schema.Constant(false)},
		statusField(workflow.PurchaseOrderInitial),
		check("approved_by_finance"),
		check("approved_by_purchaser"),
		check("purchased"),
		check("received"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.Invoice = schema.NewEntitySchema("invoice", "invoices",
		pk(),
		&schema.FieldDescriptor{Name: "customer", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "product_list", Kind: schema.KindList,
			Elem: &schema.FieldDescriptor{Name: "purchase_order", Kind: schema.KindReference, Nested: s.PurchaseOrder},
			Default: schema.Constant([]any{})},
		&schema.FieldDescriptor{Name: "price", Kind: schema.KindFloat},
		statusField("pending for verified"),
		check("verified"),
		check("paid"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.ProductionOrder = schema.NewEntitySchema("production_order", "production_orders",
		pk(),
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true, Nested: s.Product},
		&schema.FieldDescriptor{Name: "agriculture", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		statusField("pending for verified"),
		check("verified"),
		check("received"),
		check("finished"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.PlanningSeries = schema.NewEntitySchema("planning_series", "planning_series",
		pk(),
		&schema.FieldDescriptor{Name: "date", Kind: schema.KindDateTime, Required: true},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "production_orders", Kind: schema.KindList,
			Elem: &schema.FieldDescriptor{Name: "production_order", Kind: schema.KindReference, Nested: s.ProductionOrder},
			Default: schema.Constant([]any{})},
		statusField("pending for start"),
		check("started"),
		check("finished"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("date")

	s.PoultryCuttingProductionSeries = schema.NewEntitySchema(
		"poultry_cutting_production_series", "poultry_cutting_production_series",
		pk(),
		&schema.FieldDescriptor{Name: "series", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "description", Kind: schema.KindString},
		statusField("pending for start"),
		check("started"),
		check("verified"),
		check("finished"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.TruckLoading = schema.NewEntitySchema("truck_loading", "truck_loadings",
		pk(),
		&schema.FieldDescriptor{Name: "car", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "driver", Kind: schema.KindString},
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true, Nested: s.Product},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		statusField("pending for loading"),
		check("loaded"),
		check("exited"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.Order = schema.NewEntitySchema("order", "orders",
		pk(),
		&schema.FieldDescriptor{Name: "customer", Kind: schema.KindString, Required: true},
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true, Nested: s.Product},
		&schema.FieldDescriptor{Name: "weight", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "price", Kind: schema.KindFloat},
		statusField("pending for verified"),
		check("verified"),
		check("shipped"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	s.Transaction = schema.NewEntitySchema("transaction", "transactions",
		pk(),
		&schema.FieldDescriptor{Name: "warehouse", Kind: schema.KindReference, Required: true, Nested: s.Warehouse},
		&schema.FieldDescriptor{Name: "product", Kind: schema.KindReference, Required: true, Nested: s.Product},
		&schema.FieldDescriptor{Name: "quantity", Kind: schema.KindFloat, Required: true},
		&schema.FieldDescriptor{Name: "price", Kind: schema.KindFloat},
		&schema.FieldDescriptor{Name: "transaction_type", Kind: schema.KindString, Default: schema.Constant("import")},
		statusField("pending for verified"),
		check("verified"),
		check("done"),
		check("cancelled"),
		createdAt(),
	).WithOrderBy("created_at")

	return s
}

// RegisterAll adds every schema to the registry.
func (s *Schemas) RegisterAll(reg *schema.Registry) {
	reg.MustRegister(s.User)
	reg.MustRegister(s.Product)
	reg.MustRegister(s.Warehouse)
	reg.MustRegister(s.PurchaseOrder)
	reg.MustRegister(s.Invoice)
	reg.MustRegister(s.ProductionOrder)
	reg.MustRegister(s.PlanningSeries)
	reg.MustRegister(s.PoultryCuttingProductionSeries)
	reg.MustRegister(s.TruckLoading)
	reg.MustRegister(s.Order)
	reg.MustRegister(s.Transaction)
}
