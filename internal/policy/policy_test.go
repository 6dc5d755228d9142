package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanListUsers(t *testing.T) {
	assert.True(t, CanListUsers(RoleAdmin))
	assert.True(t, CanListUsers(RoleManager))
	assert.False(t, CanListUsers(RoleEmployee))
	assert.False(t, CanListUsers(Role("")))
}

func TestCanCreateUser(t *testing.T) {
	assert.True(t, CanCreateUser(RoleAdmin))
	assert.False(t, CanCreateUser(RoleManager))
	assert.False(t, CanCreateUser(RoleEmployee))
}

func TestCanAssignRole(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, CanAssignRole(RoleAdmin, r), "admin should assign %s", r)
		assert.False(t, CanAssignRole(RoleManager, r), "manager should not assign %s", r)
		assert.False(t, CanAssignRole(RoleEmployee, r), "employee should not assign %s", r)
	}
	assert.False(t, CanAssignRole(RoleAdmin, Role("ceo")))
}

func TestCanViewOrEdit(t *testing.T) {
	admin := Actor{UserID: 1, Role: RoleAdmin}
	manager := Actor{UserID: 2, Role: RoleManager}
	employee := Actor{UserID: 3, Role: RoleEmployee}

	tests := []struct {
		name       string
		actor      Actor
		targetID   uint
		targetRole Role
		want       bool
	}{
		{"self-service always allowed", employee, 3, RoleEmployee, true},
		{"admin edits anyone", admin, 99, RoleAdmin, true},
		{"manager edits employee", manager, 99, RoleEmployee, true},
		{"manager edits other manager", manager, 99, RoleManager, true},
		{"manager cannot touch admin", manager, 99, RoleAdmin, false},
		{"manager edits self even if demoted rules applied", manager, 2, RoleManager, true},
		{"employee cannot touch others", employee, 99, RoleEmployee, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewOrEdit(tt.actor, tt.targetID, tt.targetRole))
		})
	}
}

func TestVisibleRoleFilter(t *testing.T) {
	adminSees := VisibleRoleFilter(RoleAdmin)
	managerSees := VisibleRoleFilter(RoleManager)
	employeeSees := VisibleRoleFilter(RoleEmployee)

	for _, r := range Roles {
		assert.True(t, adminSees(r), "admin should see %s", r)
		assert.False(t, employeeSees(r), "employee should see nothing")
	}
	assert.True(t, managerSees(RoleManager))
	assert.True(t, managerSees(RoleEmployee))
	assert.False(t, managerSees(RoleAdmin))
}

func TestHiddenRoles(t *testing.T) {
	assert.Empty(t, HiddenRoles(RoleAdmin))
	assert.Equal(t, []string{"admin"}, HiddenRoles(RoleManager))
	assert.ElementsMatch(t, []string{"admin", "manager", "employee"}, HiddenRoles(RoleEmployee))
}

// The list filter and the object-permission check must never disagree:
// for a manager acting on someone else, visibility in the list implies
// edit permission and vice versa, for every role pair.
func TestListFilterMatchesObjectCheck(t *testing.T) {
	const otherID uint = 42
	for _, actorRole := range Roles {
		actor := Actor{UserID: 1, Role: actorRole}
		visible := VisibleRoleFilter(actorRole)
		for _, targetRole := range Roles {
			assert.Equal(t,
				visible(targetRole),
				CanViewOrEdit(actor, otherID, targetRole),
				"actor=%s target=%s", actorRole, targetRole,
			)
		}
	}
}
