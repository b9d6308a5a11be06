// Package workflow implements the guarded status state machines driven by
// action endpoints. Each resource carries its own independent transition
// table; an action stamps one CheckStatus field and recomputes the status
// enum from the table.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Transition is one named action on a resource's workflow.
type Transition struct {
	// Name is the action name exposed as POST /<resource>/<id>/<name>/.
	Name string

	// Field is the CheckStatus field stamped by this action. Empty means
	// the action only moves the status (done/cancelled style).
	Field string

	// OnTrue/OnFalse are the statuses reached depending on the payload's
	// status flag. An action with no false branch leaves OnFalse empty and
	// always lands on OnTrue.
	OnTrue  string
	OnFalse string

	// From restricts which statuses may take this action. Empty means any
	// non-terminal status.
	From []string

	// PayloadFields are extra payload keys copied onto the entity when
	// present (estimated_price, final_price, weight, quality, price, ...).
	PayloadFields []string

	// Guard is an optional expr-lang expression over {record, payload,
	// related}. The action is rejected when it evaluates to false.
	Guard    string
	GuardMsg string

	compiled *vm.Program
}

// Definition is one resource's complete workflow.
type Definition struct {
	Resource    string
	Initial     string
	Transitions []*Transition

	byName map[string]*Transition
}

func NewDefinition(resource, initial string, transitions ...*Transition) *Definition {
	d := &Definition{
		Resource:    resource,
		Initial:     initial,
		Transitions: transitions,
		byName:      make(map[string]*Transition, len(transitions)),
	}
	for _, t := range transitions {
		if _, dup := d.byName[t.Name]; dup {
			panic(fmt.Sprintf("workflow: duplicate transition %q on %s", t.Name, resource))
		}
		// Guards compile once here. Transitions are shared across requests,
		// so compilation must not happen on the request path.
		if t.Guard != "" {
			prog, err := expr.Compile(t.Guard, expr.AsBool())
			if err != nil {
				panic(fmt.Sprintf("workflow: bad guard on %s.%s: %v", resource, t.Name, err))
			}
			t.compiled = prog
		}
		d.byName[t.Name] = t
	}
	return d
}

// Get returns the named transition, or nil.
func (d *Definition) Get(name string) *Transition {
	return d.byName[name]
}

// Payload is the decoded action request body.
type Payload struct {
	Status      bool
	Description string
	Extra       map[string]any
}

// DecodePayload reads status/description with their defaults and collects
// the transition's extra fields.
func DecodePayload(t *Transition, body map[string]any) Payload {
	p := Payload{Status: true, Description: "", Extra: map[string]any{}}
	if v, ok := body["status"].(bool); ok {
		p.Status = v
	}
	if v, ok := body["description"].(string); ok {
		p.Description = v
	}
	for _, name := range t.PayloadFields {
		if v, ok := body[name]; ok {
			p.Extra[name] = v
		}
	}
	return p
}

// IsTerminal reports whether a status accepts no further actions.
func IsTerminal(status string) bool {
	if status == "done" || status == "cancelled" {
		return true
	}
	return strings.HasSuffix(status, "failed") || strings.HasPrefix(status, "rejected by")
}

// TransitionError is a rejected action: terminal state, wrong source
// status, or a failed guard. Always a client error, never a 404.
type TransitionError struct {
	Message string
}

func (e *TransitionError) Error() string {
	return e.Message
}

// Apply executes one transition against the entity document in place:
// enforces terminality and the From set, evaluates the guard, stamps the
// CheckStatus field and recomputes status. related carries extra documents
// a guard may inspect (e.g. the Warehouse of a Transaction).
func (d *Definition) Apply(t *Transition, doc map[string]any, p Payload, actor string, now time.Time, related map[string]any) error {
	current, _ := doc["status"].(string)

	if IsTerminal(current) {
		return &TransitionError{
			Message: fmt.Sprintf("%s is in terminal status %q and accepts no further actions", d.Resource, current),
		}
	}
	if len(t.From) > 0 && !contains(t.From, current) {
		return &TransitionError{
			Message: fmt.Sprintf("action %s is not allowed from status %q", t.Name, current),
		}
	}

	if t.Guard != "" {
		ok, err := t.evalGuard(doc, p, related)
		if err != nil {
			return &TransitionError{Message: fmt.Sprintf("guard evaluation failed: %v", err)}
		}
		if !ok {
			msg := t.GuardMsg
			if msg == "" {
				msg = fmt.Sprintf("action %s rejected by guard", t.Name)
			}
			return &TransitionError{Message: msg}
		}
	}

	if t.Field != "" {
		doc[t.Field] = map[string]any{
			"status":      p.Status,
			"description": p.Description,
			"actor": map[string]any{
				"user": actor,
				"date": now.UTC().Format(time.RFC3339),
			},
		}
	}

	for name, val := range p.Extra {
		doc[name] = val
	}

	next := t.OnTrue
	if !p.Status && t.OnFalse != "" {
		next = t.OnFalse
	}
	doc["status"] = next
	return nil
}

func (t *Transition) evalGuard(doc map[string]any, p Payload, related map[string]any) (bool, error) {
	if t.compiled == nil {
		return false, fmt.Errorf("guard on %s not compiled; transitions must be built through NewDefinition", t.Name)
	}

	env := map[string]any{
		"record": doc,
		"payload": map[string]any{
			"status":      p.Status,
			"description": p.Description,
		},
		"related": related,
	}
	if related == nil {
		env["related"] = map[string]any{}
	}

	result, err := expr.Run(t.compiled, env)
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

func contains(list []string, s string) bool {
	for _, el := range list {
		if el == s {
			return true
		}
	}
	return false
}
