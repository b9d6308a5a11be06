package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rezabhm/slaughter-erp/internal/schema"
)

// ActionRequest is everything an action handler gets: the target document
// (mutated in place on success), the decoded request body, and the caller.
type ActionRequest struct {
	Schema *schema.EntitySchema
	Doc    map[string]any
	Body   map[string]any
	Actor  string
	Now    time.Time
}

// ActionHandler applies one workflow action. On success the dispatcher
// persists req.Doc and returns the message as {"message": ...}. Returning
// an *AppError propagates its status; any other error becomes a 500.
type ActionHandler func(ctx context.Context, req *ActionRequest) (message string, err error)

// ActionRegistry is the explicit registration table for workflow actions.
// Populated once per resource at router-setup time, read-only afterwards.
type ActionRegistry struct {
	byResource map[string]map[string]ActionHandler
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{byResource: make(map[string]map[string]ActionHandler)}
}

// Register exposes handler as POST /<resource>/<id>/<action>/. Two actions
// sharing a name on one resource is a setup defect and panics at boot.
func (r *ActionRegistry) Register(resource, action string, handler ActionHandler) {
	byName := r.byResource[resource]
	if byName == nil {
		byName = make(map[string]ActionHandler)
		r.byResource[resource] = byName
	}
	if _, dup := byName[action]; dup {
		panic(fmt.Sprintf("engine: action %q registered twice on %s", action, resource))
	}
	byName[action] = handler
}

// Lookup returns the handler for (resource, action), or nil.
func (r *ActionRegistry) Lookup(resource, action string) ActionHandler {
	return r.byResource[resource][action]
}

// Names returns the registered action names for a resource, sorted.
func (r *ActionRegistry) Names(resource string) []string {
	byName := r.byResource[resource]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
