// Package authz decides which caller roles may touch which API resources.
// The policy is a fixed casbin RBAC model compiled into the binary.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Roles a caller may present in the X-Actor-Role header.
const (
	RoleCustomer     = "customer"
	RoleSupplier     = "supplier"
	RoleRecordKeeper = "record_keeper"
	RoleAdmin        = "admin"
)

// Resources guarded by the policy.
const (
	ResourceSlots        = "slots"
	ResourceAvailability = "availability"
	ResourceOrders       = "orders"
	ResourceOrderStatus  = "order_status"
	ResourceReports      = "reports"
)

// Actions on a resource.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionCreate = "create"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

var policies = [][]string{
	{RoleCustomer, ResourceSlots, ActionRead},
	{RoleCustomer, ResourceAvailability, ActionRead},
	{RoleCustomer, ResourceOrders, ActionRead},
	{RoleCustomer, ResourceOrders, ActionCreate},

	{RoleSupplier, ResourceSlots, ActionRead},
	{RoleSupplier, ResourceSlots, ActionWrite},
	{RoleSupplier, ResourceAvailability, ActionRead},
	{RoleSupplier, ResourceAvailability, ActionWrite},
	{RoleSupplier, ResourceOrders, ActionRead},
	{RoleSupplier, ResourceOrderStatus, ActionWrite},
	{RoleSupplier, ResourceReports, ActionRead},

	{RoleRecordKeeper, ResourceOrders, ActionRead},
	{RoleRecordKeeper, ResourceReports, ActionRead},
}

var groupings = [][]string{
	{RoleAdmin, RoleCustomer},
	{RoleAdmin, RoleSupplier},
}

// Enforcer checks role permissions against the built-in policy.
type Enforcer struct {
	e *casbin.Enforcer
}

// New compiles the model and loads the built-in policy.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz.New: model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz.New: enforcer: %w", err)
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("authz.New: policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(groupings); err != nil {
		return nil, fmt.Errorf("authz.New: roles: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allow reports whether role may perform action on resource.
func (a *Enforcer) Allow(role, resource, action string) (bool, error) {
	ok, err := a.e.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("authz.Enforcer.Allow: %w", err)
	}
	return ok, nil
}
