package repository

import (
	"context"

	"gorm.io/gorm"

	"erpcore/internal/model"
)

// SessionRepository persists session audit rows, one per issued refresh
// token.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByJTI(ctx context.Context, jti string) (*model.Session, error)
	// MarkInactive flips the session's active flag. Marking an already
	// inactive or unknown session is a no-op.
	MarkInactive(ctx context.Context, jti string) error
	ListActiveByUser(ctx context.Context, userID uint) ([]model.Session, error)
	// DeactivateAllForUser marks every active session of the user
	// inactive and returns the rows as they were, so the caller can
	// deny-list their token IDs.
	DeactivateAllForUser(ctx context.Context, userID uint) ([]model.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds a GORM-backed repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByJTI(ctx context.Context, jti string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("token_jti = ?", jti).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) MarkInactive(ctx context.Context, jti string) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("token_jti = ?", jti).
		Update("active", false).Error
}

func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID uint) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID uint) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND active = ?", userID, true).Find(&sessions).Error; err != nil {
			return err
		}
		if len(sessions) == 0 {
			return nil
		}
		return tx.Model(&model.Session{}).
			Where("user_id = ? AND active = ?", userID, true).
			Update("active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
