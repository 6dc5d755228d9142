package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperr "erpcore/internal/errors"
	"erpcore/internal/model"
	"erpcore/internal/policy"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open in-memory db")
	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.User{}, &model.Session{}))
	return db
}

func seedRoles(t *testing.T, db *gorm.DB) map[string]*model.Role {
	t.Helper()
	roles := make(map[string]*model.Role)
	repo := NewRoleRepository(db)
	for _, name := range []policy.Role{policy.RoleAdmin, policy.RoleManager, policy.RoleEmployee} {
		role, err := repo.GetOrCreate(context.Background(), string(name), "")
		require.NoError(t, err)
		roles[string(name)] = role
	}
	return roles
}

func newUser(role *model.Role, username, email string) *model.User {
	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
		Active:       true,
	}
	if role != nil {
		u.RoleID = &role.ID
	}
	return u
}

func TestRoleRepository_GetOrCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "admin", "System administrator")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "admin", "different description")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "System administrator", second.Description)
}

func TestRoleRepository_DeleteReferencedRole(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	userRepo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, userRepo.Create(ctx, newUser(roles["employee"], "ann", "ann@corp.test")))

	err := NewRoleRepository(db).Delete(ctx, roles["employee"].ID)
	assert.ErrorIs(t, err, apperr.ErrRoleInUse)
}

func TestUserRepository_DuplicateFields(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	empID := "E-100"
	first := newUser(roles["employee"], "ann", "ann@corp.test")
	first.EmployeeID = &empID
	require.NoError(t, repo.Create(ctx, first))

	tests := []struct {
		name  string
		user  *model.User
		field string
	}{
		{"email", newUser(roles["employee"], "bob", "ann@corp.test"), "email"},
		{"username", newUser(roles["employee"], "ann", "bob@corp.test"), "username"},
		{"employee_id", func() *model.User {
			u := newUser(roles["employee"], "bob", "bob@corp.test")
			id := "E-100"
			u.EmployeeID = &id
			return u
		}(), "employee_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			var dup *apperr.DuplicateFieldError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.field, dup.Field)
		})
	}

	// Nothing was committed for the failed creates.
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// A concurrent writer can land between the uniqueness pre-check and the
// insert. The loser's driver error must still surface as the typed
// DuplicateFieldError, not as an opaque constraint failure.
func TestUserRepository_DuplicateRaceLoserGetsTypedError(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	var rivalErr error
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("rival_writer", func(tx *gorm.DB) {
		if injected {
			return
		}
		u, ok := tx.Statement.Dest.(*model.User)
		if !ok || u.Username != "racer" {
			return
		}
		injected = true
		rival := newUser(roles["employee"], "rival", "contested@corp.test")
		rivalErr = tx.Session(&gorm.Session{NewDB: true}).Create(rival).Error
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Callback().Create().Remove("rival_writer"))
	}()

	loser := newUser(roles["employee"], "racer", "contested@corp.test")
	err = repo.Create(ctx, loser)
	require.NoError(t, rivalErr)

	var dup *apperr.DuplicateFieldError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	// The rival rides the loser's transaction here, so the rollback
	// takes both rows with it.
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestUserRepository_AdminCannotHaveManager(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	boss := newUser(roles["manager"], "boss", "boss@corp.test")
	require.NoError(t, repo.Create(ctx, boss))

	admin := newUser(roles["admin"], "root", "root@corp.test")
	admin.ManagerID = &boss.ID
	err := repo.Create(ctx, admin)

	var hier *apperr.HierarchyError
	require.ErrorAs(t, err, &hier)
	assert.Equal(t, apperr.InvariantAdminManager, hier.Invariant)
}

func TestUserRepository_SelfManagerRejectedOnUpdate(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser(roles["employee"], "ann", "ann@corp.test")
	require.NoError(t, repo.Create(ctx, user))

	user.ManagerID = &user.ID
	err := repo.Update(ctx, user)

	var hier *apperr.HierarchyError
	require.ErrorAs(t, err, &hier)
	assert.Equal(t, apperr.InvariantSelfManager, hier.Invariant)

	// Prior state unchanged.
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ManagerID)
}

func TestUserRepository_ManagerCycleRejected(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := newUser(roles["manager"], "alice", "alice@corp.test")
	require.NoError(t, repo.Create(ctx, alice))
	bob := newUser(roles["employee"], "bob", "bob@corp.test")
	bob.ManagerID = &alice.ID
	require.NoError(t, repo.Create(ctx, bob))

	// alice -> bob would close the loop alice -> bob -> alice.
	alice.ManagerID = &bob.ID
	err := repo.Update(ctx, alice)

	var hier *apperr.HierarchyError
	require.ErrorAs(t, err, &hier)
	assert.Equal(t, apperr.InvariantManagerCycle, hier.Invariant)
}

func TestUserRepository_DeactivateIdempotent(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser(roles["employee"], "ann", "ann@corp.test")
	require.NoError(t, repo.Create(ctx, user))

	first, err := repo.Deactivate(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, first.Active)

	second, err := repo.Deactivate(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, second.Active)

	// The row survives the soft delete.
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)
}

func TestUserRepository_DeactivateUnknownUser(t *testing.T) {
	db := newTestDB(t)
	seedRoles(t, db)
	repo := NewUserRepository(db)

	_, err := repo.Deactivate(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestUserRepository_FindVisibilityAndSearch(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	root := newUser(roles["admin"], "root", "root@corp.test")
	require.NoError(t, repo.Create(ctx, root))
	mgr := newUser(roles["manager"], "maria", "maria@corp.test")
	mgr.FirstName = "Maria"
	mgr.Department = "Engineering"
	require.NoError(t, repo.Create(ctx, mgr))
	emp := newUser(roles["employee"], "erik", "erik@corp.test")
	emp.FirstName = "Erik"
	emp.Department = "Engineering"
	require.NoError(t, repo.Create(ctx, emp))

	t.Run("manager scope hides admins", func(t *testing.T) {
		users, err := repo.Find(ctx, Filter{HiddenRoles: policy.HiddenRoles(policy.RoleManager)})
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			assert.NotEqual(t, "admin", u.RoleName())
		}
	})

	t.Run("admin scope sees everyone", func(t *testing.T) {
		users, err := repo.Find(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})

	t.Run("search is case-insensitive across fields", func(t *testing.T) {
		users, err := repo.Find(ctx, Filter{Search: "MARIA"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "maria", users[0].Username)
	})

	t.Run("role and department filters", func(t *testing.T) {
		users, err := repo.Find(ctx, Filter{RoleName: "employee", Department: "engineering"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "erik", users[0].Username)
	})
}

func TestUserRepository_UpdateRevalidatesMergedState(t *testing.T) {
	db := newTestDB(t)
	roles := seedRoles(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	ann := newUser(roles["employee"], "ann", "ann@corp.test")
	require.NoError(t, repo.Create(ctx, ann))
	bob := newUser(roles["employee"], "bob", "bob@corp.test")
	require.NoError(t, repo.Create(ctx, bob))

	bob.Email = "ann@corp.test"
	err := repo.Update(ctx, bob)

	var dup *apperr.DuplicateFieldError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	reloaded, err := repo.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@corp.test", reloaded.Email)
}
