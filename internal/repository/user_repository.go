package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperr "erpcore/internal/errors"
	"erpcore/internal/model"
	"erpcore/internal/policy"
)

// maxManagerDepth bounds the ancestor walk that rejects transitive
// manager cycles. No real org chart is this deep; hitting the bound is
// treated as a cycle.
const maxManagerDepth = 128

// Filter narrows a user listing. HiddenRoles comes from
// policy.HiddenRoles so the list query and the object-permission check
// share one visibility rule.
type Filter struct {
	HiddenRoles []string
	RoleName    string
	Department  string
	Search      string
}

// UserRepository is the identity store for users. Create and Update
// enforce the uniqueness and manager-hierarchy invariants inside a
// transaction, so no write path can commit a corrupted graph.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Find(ctx context.Context, f Filter) ([]model.User, error)
	// Deactivate is the soft delete: idempotent, the row and its
	// relations stay put.
	Deactivate(ctx context.Context, id uint) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, roleName string) (int64, error)
	CountByManager(ctx context.Context, managerID uint) (int64, error)
	CountByDepartment(ctx context.Context, department string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateUnique(tx, user, 0); err != nil {
			return err
		}
		if err := validateHierarchy(tx, user); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			// Concurrent writer won the unique index race.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if dupErr := validateUnique(tx, user, 0); dupErr != nil {
					return dupErr
				}
			}
			return err
		}
		return nil
	})
}

// Update persists the merged user state. Invariants are re-validated
// against the resulting record, not just the changed fields.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.User
		if err := tx.First(&existing, user.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}
		if err := validateUnique(tx, user, user.ID); err != nil {
			return err
		}
		if err := validateHierarchy(tx, user); err != nil {
			return err
		}
		if err := tx.Save(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if dupErr := validateUnique(tx, user, user.ID); dupErr != nil {
					return dupErr
				}
			}
			return err
		}
		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Manager").
		Preload("Manager.Role").
		Preload("Subordinates").
		Preload("Subordinates.Role").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Find(ctx context.Context, f Filter) ([]model.User, error) {
	q := r.db.WithContext(ctx).
		Model(&model.User{}).
		Preload("Role").
		Preload("Manager").
		Order("created_at DESC")

	if len(f.HiddenRoles) > 0 {
		q = q.Where(
			"role_id IS NULL OR role_id NOT IN (SELECT id FROM roles WHERE name IN ?)",
			f.HiddenRoles,
		)
	}
	if f.RoleName != "" {
		q = q.Where("role_id IN (SELECT id FROM roles WHERE name = ?)", f.RoleName)
	}
	if f.Department != "" {
		q = q.Where("LOWER(department) LIKE ?", "%"+strings.ToLower(f.Department)+"%")
	}
	if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ?",
			term, term, term, term,
		)
	}

	var users []model.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Role").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}
		if !user.Active {
			return nil // already inactive, no-op success
		}
		user.Active = false
		return tx.Model(&model.User{}).Where("id = ?", id).Update("active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("active = ?", true).Count(&n).Error
	return n, err
}

func (r *userRepository) CountByRole(ctx context.Context, roleName string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role_id IN (SELECT id FROM roles WHERE name = ?)", roleName).
		Count(&n).Error
	return n, err
}

func (r *userRepository) CountByManager(ctx context.Context, managerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("manager_id = ?", managerID).Count(&n).Error
	return n, err
}

func (r *userRepository) CountByDepartment(ctx context.Context, department string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("department = ?", department).Count(&n).Error
	return n, err
}

// validateUnique reports the first unique-field collision as a typed
// error naming the field. excludeID skips the user's own row on update.
func validateUnique(tx *gorm.DB, user *model.User, excludeID uint) error {
	type check struct {
		field string
		query *gorm.DB
	}
	checks := []check{
		{"username", tx.Model(&model.User{}).Where("username = ?", user.Username)},
		{"email", tx.Model(&model.User{}).Where("email = ?", user.Email)},
	}
	if user.EmployeeID != nil && *user.EmployeeID != "" {
		checks = append(checks, check{
			"employee_id",
			tx.Model(&model.User{}).Where("employee_id = ?", *user.EmployeeID),
		})
	}

	for _, c := range checks {
		q := c.query
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &apperr.DuplicateFieldError{Field: c.field}
		}
	}
	return nil
}

// validateHierarchy enforces the manager-graph invariants on the merged
// state: no self-management, no manager on an admin, and no transitive
// cycle through the manager chain.
func validateHierarchy(tx *gorm.DB, user *model.User) error {
	if user.ManagerID == nil {
		return nil
	}

	if user.ID != 0 && *user.ManagerID == user.ID {
		return &apperr.HierarchyError{Invariant: apperr.InvariantSelfManager}
	}

	if user.RoleID != nil {
		var role model.Role
		if err := tx.First(&role, *user.RoleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrUnknownRole
			}
			return err
		}
		if role.Name == string(policy.RoleAdmin) {
			return &apperr.HierarchyError{Invariant: apperr.InvariantAdminManager}
		}
	}

	var manager model.User
	if err := tx.First(&manager, *user.ManagerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}

	// A brand new user has no subordinates yet, so only updates can
	// close a loop. Walk the proposed manager's ancestor chain.
	if user.ID == 0 {
		return nil
	}
	current := manager
	for depth := 0; ; depth++ {
		if current.ID == user.ID || depth >= maxManagerDepth {
			return &apperr.HierarchyError{Invariant: apperr.InvariantManagerCycle}
		}
		if current.ManagerID == nil {
			return nil
		}
		var next model.User
		if err := tx.First(&next, *current.ManagerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // dangling reference, chain ends here
			}
			return err
		}
		current = next
	}
}
