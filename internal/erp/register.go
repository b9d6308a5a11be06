package erp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rezabhm/slaughter-erp/internal/engine"
	"github.com/rezabhm/slaughter-erp/internal/store"
	"github.com/rezabhm/slaughter-erp/internal/workflow"
)

// relatedFn loads the related documents a transition guard inspects.
type relatedFn func(ctx context.Context, doc map[string]any) map[string]any

// Register wires every domain resource and its workflow actions into the
// dispatcher. Route names follow the app layout: order-*, production-*,
// sale-* group the resources the way their owning department sees them.
func Register(h *engine.Handler, db store.Store, s *Schemas) {
	h.MustAddResource("product", &engine.Resource{
		Schema:       s.Product,
		Post:         &engine.VerbConfig{FieldsAllowed: []string{"name", "code", "unit"}},
		Patch:        &engine.VerbConfig{FieldsAllowed: []string{"name", "code", "unit"}},
		SearchFields: []string{"name", "code"},
	})

	h.MustAddResource("warehouse", &engine.Resource{
		Schema:       s.Warehouse,
		Post:         &engine.VerbConfig{FieldsAllowed: []string{"name", "description"}},
		Patch:        &engine.VerbConfig{FieldsAllowed: []string{"name", "description"}},
		SearchFields: []string{"name"},
	})

	h.MustAddResource("order-purchase-order", &engine.Resource{
		Schema: s.PurchaseOrder,
		Post: &engine.VerbConfig{FieldsAllowed: []string{
			"product", "weight", "quality", "required_deadline", "description",
		}},
		Patch: &engine.VerbConfig{FieldsAllowed: []string{
			"weight", "quality", "required_deadline", "description",
		}},
	})

	h.MustAddResource("order-invoice", &engine.Resource{
		Schema: s.Invoice,
		Post:   &engine.VerbConfig{FieldsAllowed: []string{"customer", "product_list", "price"}},
		Patch:  &engine.VerbConfig{FieldsAllowed: []string{"customer", "price"}},
	})

	h.MustAddResource("production-order", &engine.Resource{
		Schema: s.ProductionOrder,
		Post: &engine.VerbConfig{FieldsAllowed: []string{
			"product", "agriculture", "weight", "description",
		}},
		Patch: &engine.VerbConfig{FieldsAllowed: []string{"agriculture", "weight", "description"}},
	})

	h.MustAddResource("planning-series", &engine.Resource{
		Schema: s.PlanningSeries,
		Post:   &engine.VerbConfig{FieldsAllowed: []string{"date", "description", "production_orders"}},
		Patch:  &engine.VerbConfig{FieldsAllowed: []string{"date", "description"}},
	})

	h.MustAddResource("poultry-cutting-production-series", &engine.Resource{
		Schema: s.PoultryCuttingProductionSeries,
		Post:   &engine.VerbConfig{FieldsAllowed: []string{"series", "description"}},
		Patch:  &engine.VerbConfig{FieldsAllowed: []string{"description"}},
	})

	h.MustAddResource("truck-loading", &engine.Resource{
		Schema: s.TruckLoading,
		Post:   &engine.VerbConfig{FieldsAllowed: []string{"car", "driver", "product", "weight"}},
		Patch:  &engine.VerbConfig{FieldsAllowed: []string{"car", "driver", "weight"}},
	})

	h.MustAddResource("sale-order", &engine.Resource{
		Schema: s.Order,
		Post:   &engine.VerbConfig{FieldsAllowed: []string{"customer", "product", "weight", "price"}},
		Patch:  &engine.VerbConfig{FieldsAllowed: []string{"weight", "price"}},
	})

	h.MustAddResource("transaction", &engine.Resource{
		Schema: s.Transaction,
		Post: &engine.VerbConfig{FieldsAllowed: []string{
			"warehouse", "product", "quantity", "price", "transaction_type",
		}},
		Patch: &engine.VerbConfig{FieldsAllowed: []string{"quantity", "price"}},
	})

	actions := h.Actions()
	bindWorkflow(actions, "order-purchase-order", workflow.PurchaseOrder(), nil, nil)
	bindWorkflow(actions, "order-invoice", workflow.Invoice(), nil, nil)
	bindWorkflow(actions, "production-order", workflow.ProductionOrder(), nil, nil)
	bindWorkflow(actions, "planning-series", workflow.PlanningSeries(), nil, nil)
	bindWorkflow(actions, "poultry-cutting-production-series", workflow.PoultryCuttingProductionSeries(), nil, nil)
	bindWorkflow(actions, "truck-loading", workflow.TruckLoading(), nil, nil)
	bindWorkflow(actions, "sale-order", workflow.Order(), nil, nil)
	bindWorkflow(actions, "transaction", workflow.Transaction(),
		warehouseLoader(db, s), nil)
	bindWorkflow(actions, "warehouse", workflow.Warehouse(), nil, syncWarehouseActive)

	actions.Register("order-invoice", "add_purchase_orders", addPurchaseOrders(db, s))
}

// bindWorkflow registers one transition handler per definition entry.
// after, when set, runs on the mutated document once the transition lands.
func bindWorkflow(actions *engine.ActionRegistry, resource string, def *workflow.Definition,
	related relatedFn, after func(doc map[string]any)) {
	for _, t := range def.Transitions {
		actions.Register(resource, t.Name, func(ctx context.Context, req *engine.ActionRequest) (string, error) {
			p := workflow.DecodePayload(t, req.Body)
			var rel map[string]any
			if related != nil {
				rel = related(ctx, req.Doc)
			}
			if err := def.Apply(t, req.Doc, p, req.Actor, req.Now, rel); err != nil {
				var tErr *workflow.TransitionError
				if errors.As(err, &tErr) {
					return "", engine.NewAppError("INVALID_TRANSITION", 400, tErr.Message)
				}
				return "", err
			}
			if after != nil {
				after(req.Doc)
			}
			return fmt.Sprintf("Action %s applied successfully", t.Name), nil
		})
	}
}

// warehouseLoader resolves the transaction's warehouse reference so the
// verified guard can check is_active.
func warehouseLoader(db store.Store, s *Schemas) relatedFn {
	return func(ctx context.Context, doc map[string]any) map[string]any {
		rel := map[string]any{"warehouse": nil}
		id := refID(doc["warehouse"])
		if id == "" {
			return rel
		}
		wh, err := db.Get(ctx, s.Warehouse, id)
		if err != nil {
			return rel
		}
		rel["warehouse"] = wh
		return rel
	}
}

// syncWarehouseActive keeps the is_active flag aligned with the status the
// activate/deactivate transitions produce.
func syncWarehouseActive(doc map[string]any) {
	status, _ := doc["status"].(string)
	doc["is_active"] = status == "active"
}

// addPurchaseOrders appends a purchase order reference to the invoice's
// product_list. Adding an id already on the list is rejected without
// touching the invoice.
func addPurchaseOrders(db store.Store, s *Schemas) engine.ActionHandler {
	return func(ctx context.Context, req *engine.ActionRequest) (string, error) {
		id := refID(req.Body["purchase_order"])
		if id == "" {
			return "", engine.ValidationError([]engine.ErrorDetail{
				{Field: "purchase_order", Message: "Missing required field: purchase_order"},
			})
		}
		if _, err := db.Get(ctx, s.PurchaseOrder, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", engine.NotFoundError("purchase_order", id)
			}
			return "", err
		}

		list, _ := req.Doc["product_list"].([]any)
		for _, item := range list {
			if refID(item) == id {
				return "", engine.NewAppError("DUPLICATE_REFERENCE", 400,
					fmt.Sprintf("PurchaseOrder with ID %s already exists in the invoice product_list", id))
			}
		}
		req.Doc["product_list"] = append(list, id)
		return "PurchaseOrder added to invoice successfully", nil
	}
}

// refID extracts the id from a reference value, which is stored either as
// the bare id string or as an expanded document.
func refID(v any) string {
	switch ref := v.(type) {
	case string:
		return ref
	case map[string]any:
		id, _ := ref["id"].(string)
		return id
	default:
		return ""
	}
}
