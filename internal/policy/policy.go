// Package policy is the pure role-policy engine. It has no I/O and no
// state: every decision is a function of the actor's role and, where an
// object is involved, the target's identity and role.
//
// The manager tier's reduced visibility (managers never see admins) is
// defined once in roleVisible and consumed by both the list filter and
// the single-object check, so the two call sites cannot drift apart.
package policy

// Role is the closed set of RBAC tiers with defined policy.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Roles lists every tier with defined policy, used by seeding and tests.
var Roles = []Role{RoleAdmin, RoleManager, RoleEmployee}

// Valid reports whether r is one of the tiers with defined policy.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Actor is the authenticated identity performing a request.
type Actor struct {
	UserID uint
	Role   Role
}

// CanListUsers gates the list/search endpoint.
func CanListUsers(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

// CanCreateUser gates registration. Only admins create users.
func CanCreateUser(r Role) bool {
	return r == RoleAdmin
}

// CanAssignRole reports whether the actor may hand out newRole to a user
// it creates or updates. Any admin-assigned role is currently allowed;
// the hook exists so role escalation can be tightened without touching
// call sites.
func CanAssignRole(actor Role, newRole Role) bool {
	if !newRole.Valid() {
		return false
	}
	return actor == RoleAdmin
}

// CanViewOrEdit is the single-object access check: self-service is always
// allowed, admins act on anyone, managers on anyone below the admin tier.
func CanViewOrEdit(actor Actor, targetID uint, targetRole Role) bool {
	if actor.UserID == targetID {
		return true
	}
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return roleVisible(RoleManager, targetRole)
	default:
		return false
	}
}

// VisibleRoleFilter returns the predicate a list query must satisfy:
// admins see every role, managers everything but admins, employees
// nothing (the list endpoint itself is gated by CanListUsers).
func VisibleRoleFilter(actor Role) func(Role) bool {
	a := actor
	return func(target Role) bool {
		switch a {
		case RoleAdmin:
			return true
		case RoleManager:
			return roleVisible(RoleManager, target)
		default:
			return false
		}
	}
}

// HiddenRoles returns the role names the actor's list queries must
// exclude, for pushing VisibleRoleFilter down into SQL. It is derived
// from the same predicate, not a second rule.
func HiddenRoles(actor Role) []string {
	var hidden []string
	visible := VisibleRoleFilter(actor)
	for _, r := range Roles {
		if !visible(r) {
			hidden = append(hidden, string(r))
		}
	}
	return hidden
}

// roleVisible is the shared admin-exclusion predicate for the manager
// tier. Both CanViewOrEdit and VisibleRoleFilter route through it.
func roleVisible(actor Role, target Role) bool {
	if actor == RoleManager {
		return target != RoleAdmin
	}
	return actor == RoleAdmin
}
