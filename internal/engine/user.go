package engine

import "strings"

// UserContext is the decoded caller identity set by the auth middleware.
type UserContext struct {
	ID    string
	Name  string
	Roles []string
}

func (u *UserContext) IsAdmin() bool {
	return u.HasRole("admin")
}

func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Authorizer decides whether a caller may perform a verb on a resource.
// The auth package implements it over the configured allow-lists.
type Authorizer interface {
	Allowed(user *UserContext, resource, verb string) error
}

// AuditSink receives one record per handled mutating request. Shipping is
// fire-and-forget; implementations must never block the caller.
type AuditSink interface {
	Record(actor, resource, verb, recordID string, status int)
}
