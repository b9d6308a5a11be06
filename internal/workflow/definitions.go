package workflow

// Status workflow tables, one per resource. Each table is independent;
// there is no shared generic machine.

const (
	PurchaseOrderInitial = "pending for approved by financial department"
)

// PurchaseOrder: finance approval, purchaser approval, purchase, receipt,
// factor handoff.
func PurchaseOrder() *Definition {
	return NewDefinition("purchase_order", PurchaseOrderInitial,
		&Transition{
			Name:          "verified_finance",
			Field:         "approved_by_finance",
			From:          []string{PurchaseOrderInitial},
			OnTrue:        "pending for approved by purchaser",
			OnFalse:       "rejected by financial",
			PayloadFields: []string{"estimated_price"},
		},
		&Transition{
			Name:    "verified_purchaser",
			Field:   "approved_by_purchaser",
			From:    []string{"pending for approved by purchaser"},
			OnTrue:  "pending for purchased",
			OnFalse: "rejected by purchaser",
		},
		&Transition{
			Name:          "purchased",
			Field:         "purchased",
			From:          []string{"pending for purchased"},
			OnTrue:        "pending for received",
			OnFalse:       "purchased failed",
			PayloadFields: []string{"final_price"},
		},
		&Transition{
			Name:          "received",
			Field:         "received",
			From:          []string{"pending for received"},
			OnTrue:        "add to factor",
			OnFalse:       "received failed",
			PayloadFields: []string{"weight", "quality"},
		},
		&Transition{
			Name:          "done",
			Field:         "done",
			From:          []string{"add to factor"},
			OnTrue:        "done",
			PayloadFields: []string{"have_factor"},
		},
		&Transition{
			Name:   "cancelled",
			Field:  "cancelled",
			OnTrue: "cancelled",
		},
	)
}

// Invoice: verification and payment. add_purchase_orders is a custom action
// registered alongside these transitions.
func Invoice() *Definition {
	return NewDefinition("invoice", "pending for verified",
		&Transition{
			Name:    "verified",
			Field:   "verified",
			From:    []string{"pending for verified"},
			OnTrue:  "pending for paid",
			OnFalse: "rejected by financial",
		},
		&Transition{
			Name:          "paid",
			Field:         "paid",
			From:          []string{"pending for paid"},
			OnTrue:        "pending for done",
			OnFalse:       "paid failed",
			PayloadFields: []string{"price"},
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// ProductionOrder: verification, receipt of raw product, finish.
func ProductionOrder() *Definition {
	return NewDefinition("production_order", "pending for verified",
		&Transition{
			Name:    "verified",
			Field:   "verified",
			From:    []string{"pending for verified"},
			OnTrue:  "pending for received",
			OnFalse: "rejected by production manager",
		},
		&Transition{
			Name:          "received",
			Field:         "received",
			From:          []string{"pending for received"},
			OnTrue:        "pending for finished",
			OnFalse:       "received failed",
			PayloadFields: []string{"weight"},
		},
		&Transition{
			Name:    "finished",
			Field:   "finished",
			From:    []string{"pending for finished"},
			OnTrue:  "pending for done",
			OnFalse: "finished failed",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// PlanningSeries: start and finish of a planning run.
func PlanningSeries() *Definition {
	return NewDefinition("planning_series", "pending for start",
		&Transition{
			Name:    "started",
			Field:   "started",
			From:    []string{"pending for start"},
			OnTrue:  "in progress",
			OnFalse: "start failed",
		},
		&Transition{
			Name:    "finished",
			Field:   "finished",
			From:    []string{"in progress"},
			OnTrue:  "pending for done",
			OnFalse: "finished failed",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// PoultryCuttingProductionSeries: cutting run with a manager verification
// between start and finish.
func PoultryCuttingProductionSeries() *Definition {
	return NewDefinition("poultry_cutting_production_series", "pending for start",
		&Transition{
			Name:    "started",
			Field:   "started",
			From:    []string{"pending for start"},
			OnTrue:  "in progress",
			OnFalse: "start failed",
		},
		&Transition{
			Name:    "verified",
			Field:   "verified",
			From:    []string{"in progress"},
			OnTrue:  "pending for finished",
			OnFalse: "rejected by production manager",
		},
		&Transition{
			Name:    "finished",
			Field:   "finished",
			From:    []string{"pending for finished"},
			OnTrue:  "pending for done",
			OnFalse: "finished failed",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// TruckLoading: loading and gate exit.
func TruckLoading() *Definition {
	return NewDefinition("truck_loading", "pending for loading",
		&Transition{
			Name:          "loaded",
			Field:         "loaded",
			From:          []string{"pending for loading"},
			OnTrue:        "pending for exit",
			OnFalse:       "loading failed",
			PayloadFields: []string{"weight"},
		},
		&Transition{
			Name:    "exited",
			Field:   "exited",
			From:    []string{"pending for exit"},
			OnTrue:  "pending for done",
			OnFalse: "exit failed",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// Order: sales order verification and shipment.
func Order() *Definition {
	return NewDefinition("order", "pending for verified",
		&Transition{
			Name:    "verified",
			Field:   "verified",
			From:    []string{"pending for verified"},
			OnTrue:  "pending for shipped",
			OnFalse: "rejected by sales",
		},
		&Transition{
			Name:    "shipped",
			Field:   "shipped",
			From:    []string{"pending for shipped"},
			OnTrue:  "pending for done",
			OnFalse: "shipped failed",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// Transaction: warehouse movement verification. Verification requires the
// related warehouse to be active; an inactive warehouse rejects with 400,
// not 404.
func Transaction() *Definition {
	return NewDefinition("transaction", "pending for verified",
		&Transition{
			Name:          "verified",
			Field:         "verified",
			From:          []string{"pending for verified"},
			OnTrue:        "pending for done",
			OnFalse:       "rejected by warehouse manager",
			PayloadFields: []string{"price"},
			Guard:         `related.warehouse != nil && related.warehouse.is_active == true`,
			GuardMsg:      "related warehouse is inactive",
		},
		&Transition{Name: "done", Field: "done", From: []string{"pending for done"}, OnTrue: "done"},
		&Transition{Name: "cancelled", Field: "cancelled", OnTrue: "cancelled"},
	)
}

// Warehouse: activation toggling. The erp wiring keeps is_active in sync
// with these transitions.
func Warehouse() *Definition {
	return NewDefinition("warehouse", "active",
		&Transition{
			Name:    "deactivated",
			Field:   "deactivated",
			From:    []string{"active"},
			OnTrue:  "inactive",
			OnFalse: "active",
		},
		&Transition{
			Name:    "activated",
			Field:   "activated",
			From:    []string{"inactive"},
			OnTrue:  "active",
			OnFalse: "inactive",
		},
	)
}
