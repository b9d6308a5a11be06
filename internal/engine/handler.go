package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/search"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

// VerbConfig scopes which fields a write verb accepts. A nil VerbConfig on
// a resource disables the verb's schema entirely (singlePost without one is
// a 500: a setup defect, not a user error).
type VerbConfig struct {
	FieldsAllowed []string // nil = every writable field
}

// Resource binds a route name to an entity schema and its verb configs.
type Resource struct {
	Schema       *schema.EntitySchema
	Post         *VerbConfig
	Patch        *VerbConfig
	SearchFields []string // full-text searchable fields; empty disables q
}

// Handler is the CRUD dispatcher: one composed struct instead of a mixin
// stack, holding the filter builder's schema registry, the validator, cache,
// persistence adaptor, authorizer and serializer.
type Handler struct {
	resources map[string]*Resource
	actions   *ActionRegistry
	db        store.Store
	cache     *QueryCache
	expander  *Expander
	search    search.Provider
	authz     Authorizer
	audit     AuditSink
	log       *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewHandler(db store.Store, cache *QueryCache, expander *Expander, authz Authorizer, log *zap.Logger) *Handler {
	return &Handler{
		resources: make(map[string]*Resource),
		actions:   NewActionRegistry(),
		db:        db,
		cache:     cache,
		expander:  expander,
		authz:     authz,
		log:       log,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// WithSearch wires the optional full-text provider.
func (h *Handler) WithSearch(p search.Provider) *Handler {
	h.search = p
	return h
}

// WithAudit wires the optional audit sink.
func (h *Handler) WithAudit(a AuditSink) *Handler {
	h.audit = a
	return h
}

// Actions exposes the registration table for boot-time wiring.
func (h *Handler) Actions() *ActionRegistry {
	return h.actions
}

// MustAddResource registers a route name for an entity schema.
func (h *Handler) MustAddResource(name string, r *Resource) {
	if _, dup := h.resources[name]; dup {
		panic(fmt.Sprintf("engine: resource %q registered twice", name))
	}
	h.resources[name] = r
}

// BulkGet handles GET /:resource. Filters come from the query string; a q
// parameter routes to full-text search when a provider and search fields
// are configured, and degrades to plain filtering otherwise.
func (h *Handler) BulkGet(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "get"); err != nil {
		return err
	}

	if q := c.Query("q"); q != "" && h.search != nil && len(res.SearchFields) > 0 {
		return h.searchGet(c, res, q)
	}

	filters, appErr := BuildFilters(res.Schema, c.Queries())
	if appErr != nil {
		return h.respondError(c, appErr)
	}

	rows, err := h.cache.GetOrCompute(c.Context(), res.Schema, filters, c.Query("order_by"))
	if err != nil {
		return fmt.Errorf("list %s: %w", name, err)
	}

	out := h.expander.ExpandAll(c.Context(), res.Schema, rows)
	if out == nil {
		out = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": out})
}

func (h *Handler) searchGet(c *fiber.Ctx, res *Resource, q string) error {
	ids, err := h.search.Search(c.Context(), res.Schema.Collection, q, res.SearchFields)
	if err != nil {
		// Search failure degrades to an empty result, never a 500.
		h.log.Warn("search failed", zap.String("entity", res.Schema.Name), zap.Error(err))
		return c.JSON(fiber.Map{"data": []map[string]any{}})
	}

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		doc, err := h.db.Get(c.Context(), res.Schema, id)
		if err != nil {
			continue
		}
		out = append(out, h.expander.Expand(c.Context(), res.Schema, doc))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SingleGet handles GET /:resource/:id and returns the bare object.
func (h *Handler) SingleGet(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "get"); err != nil {
		return err
	}

	id := c.Params("id")
	doc, err := h.db.Get(c.Context(), res.Schema, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.respondError(c, NotFoundError(res.Schema.Name, id))
		}
		return fmt.Errorf("get %s/%s: %w", name, id, err)
	}
	return c.JSON(h.expander.Expand(c.Context(), res.Schema, doc))
}

// SingleCreate handles POST /:resource/create.
func (h *Handler) SingleCreate(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "post"); err != nil {
		return err
	}
	if res.Post == nil {
		return h.respondError(c, ConfigurationError(fmt.Sprintf("No POST schema configured for %s", name)))
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return h.respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	if errs := ValidateSingle(res.Schema, body, res.Post.FieldsAllowed); len(errs) > 0 {
		return h.respondError(c, ValidationError(errs))
	}

	doc := ApplyDefaults(res.Schema, body, res.Post.FieldsAllowed, h.schemaCtx(c), h.newID)
	if err := h.db.Save(c.Context(), res.Schema, doc); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	h.afterWrite(c, name, res, "post", toString(doc[res.Schema.PrimaryKey]), fiber.StatusOK)

	return c.JSON(h.expander.Expand(c.Context(), res.Schema, doc))
}

// BulkCreate handles POST /:resource with body {"data": [...]}. Validation
// is all-or-nothing: any invalid element rejects the batch, the per-index
// detail is still returned.
func (h *Handler) BulkCreate(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "post"); err != nil {
		return err
	}
	if res.Post == nil {
		return h.respondError(c, ConfigurationError(fmt.Sprintf("No POST schema configured for %s", name)))
	}

	list, appErr := h.bulkBody(c)
	if appErr != nil {
		return h.respondError(c, appErr)
	}

	result, ok := ValidateBulk(res.Schema, list, res.Post.FieldsAllowed, false)
	if !ok {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation failed",
			"data":    indexKeyed(result),
		})
	}

	created := make([]map[string]any, 0, len(list))
	for _, el := range list {
		body := el.(map[string]any)
		doc := ApplyDefaults(res.Schema, body, res.Post.FieldsAllowed, h.schemaCtx(c), h.newID)
		if err := h.db.Save(c.Context(), res.Schema, doc); err != nil {
			return fmt.Errorf("bulk create %s: %w", name, err)
		}
		created = append(created, h.expander.Expand(c.Context(), res.Schema, doc))
	}
	h.afterWrite(c, name, res, "post", "", fiber.StatusOK)

	return c.JSON(fiber.Map{"data": created})
}

// SinglePatch handles PATCH /:resource/:id. Only fields resolvable on the
// schema are applied.
func (h *Handler) SinglePatch(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "patch"); err != nil {
		return err
	}

	id := c.Params("id")
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return h.respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	doc, appErr := h.applyPatch(c.Context(), res, id, body)
	if appErr != nil {
		return h.respondError(c, appErr)
	}
	h.afterWrite(c, name, res, "patch", id, fiber.StatusOK)

	return c.JSON(h.expander.Expand(c.Context(), res.Schema, doc))
}

// BulkPatch handles PATCH /:resource with body {"data": [{"id": ..}, ..]}.
// Every element is reported in the result map, including the ones whose id
// does not resolve.
func (h *Handler) BulkPatch(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "patch"); err != nil {
		return err
	}

	list, appErr := h.bulkBody(c)
	if appErr != nil {
		return h.respondError(c, appErr)
	}

	result, ok := ValidateBulk(res.Schema, list, nil, true)
	if !ok {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation failed",
			"data":    indexKeyed(result),
		})
	}

	outcome := make(map[string]any, len(list))
	applied := 0
	for i, el := range list {
		body := el.(map[string]any)
		id := toString(body[res.Schema.PrimaryKey])
		if id == "" {
			// No id to key the entry by, so the element's index stands in.
			outcome[strconv.Itoa(i)] = fiber.Map{
				"message": fmt.Sprintf("Missing %s field", res.Schema.PrimaryKey),
				"status":  400,
			}
			continue
		}
		delete(body, res.Schema.PrimaryKey)
		if _, appErr := h.applyPatch(c.Context(), res, id, body); appErr != nil {
			outcome[id] = fiber.Map{"message": appErr.Message, "status": appErr.Status}
			continue
		}
		outcome[id] = fiber.Map{"message": "Object updated successfully", "status": 200}
		applied++
	}

	if applied == 0 {
		return h.respondError(c, NewAppError("INVALID_PAYLOAD", 400, "No valid objects found in data"))
	}
	h.afterWrite(c, name, res, "patch", "", fiber.StatusOK)

	return c.JSON(fiber.Map{"data": outcome})
}

func (h *Handler) applyPatch(ctx context.Context, res *Resource, id string, body map[string]any) (map[string]any, *AppError) {
	doc, err := h.db.Get(ctx, res.Schema, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError(res.Schema.Name, id)
		}
		return nil, NewAppError("INTERNAL_ERROR", 500, err.Error())
	}

	if errs := ValidatePartial(res.Schema, body); len(errs) > 0 {
		return nil, ValidationError(errs)
	}

	allowed := map[string]bool{}
	if res.Patch != nil && res.Patch.FieldsAllowed != nil {
		for _, f := range res.Patch.FieldsAllowed {
			allowed[f] = true
		}
	}
	for k, v := range body {
		if k == res.Schema.PrimaryKey || !res.Schema.HasField(k) {
			continue
		}
		if len(allowed) > 0 && !allowed[k] {
			continue
		}
		doc[k] = v
	}

	if err := h.db.Save(ctx, res.Schema, doc); err != nil {
		return nil, NewAppError("INTERNAL_ERROR", 500, err.Error())
	}
	return doc, nil
}

// SingleDelete handles DELETE /:resource/:id.
func (h *Handler) SingleDelete(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "delete"); err != nil {
		return err
	}

	id := c.Params("id")
	if err := h.db.Delete(c.Context(), res.Schema, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.respondError(c, NotFoundError(res.Schema.Name, id))
		}
		return fmt.Errorf("delete %s/%s: %w", name, id, err)
	}
	h.afterWrite(c, name, res, "delete", id, fiber.StatusOK)

	return c.JSON(fiber.Map{"message": "Object deleted successfully"})
}

// BulkDelete handles DELETE /:resource with body {"data": [id, ...]} and
// reports a per-id outcome map.
func (h *Handler) BulkDelete(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "delete"); err != nil {
		return err
	}

	list, appErr := h.bulkBody(c)
	if appErr != nil {
		return h.respondError(c, appErr)
	}

	outcome := make(map[string]any, len(list))
	for _, el := range list {
		id := toString(el)
		if id == "" {
			continue
		}
		if err := h.db.Delete(c.Context(), res.Schema, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				outcome[id] = fiber.Map{
					"message": fmt.Sprintf("%s with id %s not found", res.Schema.Name, id),
					"status":  404,
				}
			} else {
				outcome[id] = fiber.Map{"message": err.Error(), "status": 500}
			}
			continue
		}
		outcome[id] = fiber.Map{"message": "Object deleted successfully", "status": 200}
	}
	h.afterWrite(c, name, res, "delete", "", fiber.StatusOK)

	return c.JSON(fiber.Map{"data": outcome})
}

// Action handles POST /:resource/:id/:action — the workflow entry point
// parallel to generic CRUD.
func (h *Handler) Action(c *fiber.Ctx) error {
	name, res, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := h.authorize(c, name, "action"); err != nil {
		return err
	}

	actionName := c.Params("action")
	handler := h.actions.Lookup(name, actionName)
	if handler == nil {
		return h.respondError(c, NewAppError("UNKNOWN_ACTION", 404,
			fmt.Sprintf("Unknown action %s on %s (available: %s)",
				actionName, name, strings.Join(h.actions.Names(name), ", "))))
	}

	id := c.Params("id")
	doc, err := h.db.Get(c.Context(), res.Schema, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.respondError(c, NotFoundError(res.Schema.Name, id))
		}
		return fmt.Errorf("get %s/%s: %w", name, id, err)
	}

	body := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return h.respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
		}
	}

	req := &ActionRequest{
		Schema: res.Schema,
		Doc:    doc,
		Body:   body,
		Actor:  h.actorName(c),
		Now:    h.now(),
	}
	message, actErr := handler(c.Context(), req)
	if actErr != nil {
		var appErr *AppError
		if errors.As(actErr, &appErr) {
			return h.respondError(c, appErr)
		}
		return fmt.Errorf("action %s on %s/%s: %w", actionName, name, id, actErr)
	}

	if err := h.db.Save(c.Context(), res.Schema, req.Doc); err != nil {
		return fmt.Errorf("save %s/%s after %s: %w", name, id, actionName, err)
	}
	h.afterWrite(c, name, res, "action", id, fiber.StatusOK)

	return c.JSON(fiber.Map{"message": message})
}

func (h *Handler) resolve(c *fiber.Ctx) (string, *Resource, error) {
	name := c.Params("resource")
	res, ok := h.resources[name]
	if !ok {
		return "", nil, h.respondError(c, UnknownEntityError(name))
	}
	return name, res, nil
}

func (h *Handler) authorize(c *fiber.Ctx, resource, verb string) error {
	user := GetUser(c)
	if err := h.authz.Allowed(user, resource, verb); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return h.respondError(c, appErr)
		}
		return err
	}
	return nil
}

// afterWrite recomputes the cache entry for the triggering request's filter
// context and ships an audit record. Entries for other filter combinations
// age out on TTL. status is the code about to be written; the fiber response
// does not carry it yet when this runs.
func (h *Handler) afterWrite(c *fiber.Ctx, name string, res *Resource, verb, recordID string, status int) {
	filters, appErr := BuildFilters(res.Schema, c.Queries())
	if appErr != nil {
		filters = FilterExpression{}
	}
	if err := h.cache.Recompute(c.Context(), res.Schema, filters, c.Query("order_by")); err != nil {
		h.log.Warn("cache recompute failed", zap.String("entity", res.Schema.Name), zap.Error(err))
	}
	if h.audit != nil {
		h.audit.Record(h.actorName(c), name, verb, recordID, status)
	}
}

func (h *Handler) bulkBody(c *fiber.Ctx) ([]any, *AppError) {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return nil, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	raw, ok := body["data"]
	if !ok {
		return nil, NewAppError("INVALID_PAYLOAD", 400, "Missing data field in request body")
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, NewAppError("INVALID_PAYLOAD", 400, "data must be a non-empty list")
	}
	return list, nil
}

func (h *Handler) schemaCtx(c *fiber.Ctx) schema.Context {
	return schema.Context{UserID: h.actorName(c), Now: h.now()}
}

func (h *Handler) actorName(c *fiber.Ctx) string {
	if user := GetUser(c); user != nil {
		if user.Name != "" {
			return user.Name
		}
		return user.ID
	}
	return "anonymous"
}

func (h *Handler) respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(appErr)
}

// GetUser extracts the authenticated caller from the request context.
func GetUser(c *fiber.Ctx) *UserContext {
	user, _ := c.Locals("user").(*UserContext)
	return user
}

func indexKeyed(r BulkResult) map[string]any {
	out := make(map[string]any, len(r))
	for i, v := range r {
		out[strconv.Itoa(i)] = v
	}
	return out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
