package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperr "erpcore/internal/errors"
	"erpcore/internal/model"
)

// RoleRepository defines role persistence operations.
type RoleRepository interface {
	// GetOrCreate returns the existing role with the given name or
	// creates it. Seeding relies on these upsert semantics being
	// idempotent.
	GetOrCreate(ctx context.Context, name, description string) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindAll(ctx context.Context) ([]model.Role, error)
	// Delete refuses to remove a role that users still reference.
	Delete(ctx context.Context, id uint) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository builds a GORM-backed repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetOrCreate(ctx context.Context, name, description string) (*model.Role, error) {
	role := model.Role{Name: name, Description: description}
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Attrs(model.Role{Description: description}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.ErrRoleInUse
		}
		res := tx.Delete(&model.Role{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("role not found")
		}
		return nil
	})
}
