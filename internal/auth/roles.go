package auth

import (
	"fmt"

	"github.com/rezabhm/slaughter-erp/internal/engine"
)

// RoleTable is the authorization provider: a per-(resource, verb) role
// allow-list sourced from config, defaulting to admin-only when a pair is
// unconfigured.
type RoleTable struct {
	allowed func(resource, verb string) []string
}

func NewRoleTable(allowed func(resource, verb string) []string) *RoleTable {
	return &RoleTable{allowed: allowed}
}

// Allowed implements engine.Authorizer.
func (t *RoleTable) Allowed(user *engine.UserContext, resource, verb string) error {
	if user == nil {
		return engine.UnauthorizedError("Authentication required")
	}
	if user.IsAdmin() {
		return nil
	}
	for _, role := range t.allowed(resource, verb) {
		if user.HasRole(role) {
			return nil
		}
	}
	return engine.ForbiddenError(fmt.Sprintf("Permission denied for %s on %s", verb, resource))
}
