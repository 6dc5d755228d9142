package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperr "erpcore/internal/errors"
	"erpcore/internal/metrics"
	"erpcore/internal/model"
	"erpcore/internal/policy"
	"erpcore/internal/repository"
)

// RegisterInput carries an admin-initiated user registration.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	RoleName        string
	EmployeeID      *string
	PhoneNumber     string
	Department      string
	ManagerID       *uint
}

// UpdateInput is an administrative patch. Nil pointers leave the field
// untouched; a ManagerID of 0 clears the manager.
type UpdateInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Department  *string
	EmployeeID  *string
	RoleName    *string
	Active      *bool
	ManagerID   *uint
}

// ProfileInput is the self-service subset of UpdateInput: role and
// activation are immutable through /me.
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Department  *string
}

// ListInput narrows the user listing.
type ListInput struct {
	RoleName   string
	Department string
	Search     string
}

// UserService orchestrates account operations: every call takes the
// acting identity explicitly and consults the policy engine before
// touching the identity store.
type UserService interface {
	Register(ctx context.Context, actor policy.Actor, in RegisterInput) (*model.User, error)
	Get(ctx context.Context, actor policy.Actor, id uint) (*model.User, error)
	Update(ctx context.Context, actor policy.Actor, id uint, in UpdateInput) (*model.User, error)
	Deactivate(ctx context.Context, actor policy.Actor, id uint) (*model.User, error)
	List(ctx context.Context, actor policy.Actor, in ListInput) ([]model.User, error)
	Profile(ctx context.Context, actor policy.Actor) (*model.User, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, in ProfileInput) (*model.User, error)
	Stats(ctx context.Context, actor policy.Actor) (map[string]interface{}, error)
	// Roles returns the role catalogue. Not policy-scoped: the tier
	// names are already visible in registration payloads.
	Roles(ctx context.Context) ([]model.Role, error)
}

type userService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	revoker  SessionRevoker
}

// SessionRevoker invalidates every live session of a user. Used when an
// account is deactivated so the soft delete takes effect immediately.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint) error
}

// NewUserService builds the account service.
func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	revoker SessionRevoker,
) UserService {
	return &userService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		revoker:  revoker,
	}
}

func (s *userService) Register(ctx context.Context, actor policy.Actor, in RegisterInput) (*model.User, error) {
	if !policy.CanCreateUser(actor.Role) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}
	if in.Password != in.PasswordConfirm {
		return nil, apperr.ErrPasswordMismatch
	}

	role, err := s.roleRepo.FindByName(ctx, in.RoleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnknownRole
		}
		return nil, fmt.Errorf("look up role: %w", err)
	}
	if !policy.CanAssignRole(actor.Role, policy.Role(role.Name)) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashed),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		EmployeeID:   in.EmployeeID,
		PhoneNumber:  in.PhoneNumber,
		Department:   in.Department,
		RoleID:       &role.ID,
		ManagerID:    in.ManagerID,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *userService) Get(ctx context.Context, actor policy.Actor, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewOrEdit(actor, user.ID, policy.Role(user.RoleName())) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor policy.Actor, id uint, in UpdateInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewOrEdit(actor, user.ID, policy.Role(user.RoleName())) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}

	if in.RoleName != nil {
		role, err := s.roleRepo.FindByName(ctx, *in.RoleName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.ErrUnknownRole
			}
			return nil, fmt.Errorf("look up role: %w", err)
		}
		if !policy.CanAssignRole(actor.Role, policy.Role(role.Name)) {
			metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
			return nil, apperr.ErrForbidden
		}
		user.RoleID = &role.ID
		user.Role = role
	}

	applyProfileFields(user, ProfileInput{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Department:  in.Department,
	})
	if in.EmployeeID != nil {
		if *in.EmployeeID == "" {
			user.EmployeeID = nil
		} else {
			user.EmployeeID = in.EmployeeID
		}
	}
	if in.ManagerID != nil {
		if *in.ManagerID == 0 {
			user.ManagerID = nil
		} else {
			user.ManagerID = in.ManagerID
		}
	}

	deactivating := false
	if in.Active != nil {
		deactivating = user.Active && !*in.Active
		user.Active = *in.Active
	}

	// Save without loaded associations so stale preloads cannot clobber
	// related rows.
	user.Manager = nil
	user.Subordinates = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if deactivating && s.revoker != nil {
		if err := s.revoker.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return s.userRepo.FindByID(ctx, user.ID)
}

func (s *userService) Deactivate(ctx context.Context, actor policy.Actor, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewOrEdit(actor, user.ID, policy.Role(user.RoleName())) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}

	deactivated, err := s.userRepo.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeAllForUser(ctx, id); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return deactivated, nil
}

func (s *userService) List(ctx context.Context, actor policy.Actor, in ListInput) ([]model.User, error) {
	if !policy.CanListUsers(actor.Role) {
		metrics.PolicyDenialsTotal.WithLabelValues(string(actor.Role)).Inc()
		return nil, apperr.ErrForbidden
	}
	return s.userRepo.Find(ctx, repository.Filter{
		HiddenRoles: policy.HiddenRoles(actor.Role),
		RoleName:    in.RoleName,
		Department:  in.Department,
		Search:      in.Search,
	})
}

func (s *userService) Roles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.FindAll(ctx)
}

func (s *userService) Profile(ctx context.Context, actor policy.Actor) (*model.User, error) {
	return s.userRepo.FindByID(ctx, actor.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor policy.Actor, in ProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	applyProfileFields(user, in)
	user.Manager = nil
	user.Subordinates = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, actor.UserID)
}

// Stats returns the role-scoped dashboard aggregate.
func (s *userService) Stats(ctx context.Context, actor policy.Actor) (map[string]interface{}, error) {
	switch actor.Role {
	case policy.RoleAdmin:
		return s.adminStats(ctx)
	case policy.RoleManager:
		return s.managerStats(ctx, actor.UserID)
	default:
		return s.employeeStats(ctx, actor.UserID)
	}
}

func (s *userService) adminStats(ctx context.Context) (map[string]interface{}, error) {
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	stats := map[string]interface{}{
		"total_users":  total,
		"active_users": active,
	}
	for _, role := range policy.Roles {
		n, err := s.userRepo.CountByRole(ctx, string(role))
		if err != nil {
			return nil, err
		}
		stats[string(role)+"s_count"] = n
	}
	return stats, nil
}

func (s *userService) managerStats(ctx context.Context, managerID uint) (map[string]interface{}, error) {
	teamSize, err := s.userRepo.CountByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	me, err := s.userRepo.FindByID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	var departmentUsers int64
	if me.Department != "" {
		departmentUsers, err = s.userRepo.CountByDepartment(ctx, me.Department)
		if err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{
		"team_size":        teamSize,
		"department_users": departmentUsers,
	}, nil
}

func (s *userService) employeeStats(ctx context.Context, userID uint) (map[string]interface{}, error) {
	me, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"profile_completion": profileCompletion(me),
	}, nil
}

// profileCompletion scores how many optional profile fields are filled.
func profileCompletion(u *model.User) int {
	fields := []bool{
		u.FirstName != "",
		u.LastName != "",
		u.PhoneNumber != "",
		u.Department != "",
		u.EmployeeID != nil && *u.EmployeeID != "",
	}
	filled := 0
	for _, ok := range fields {
		if ok {
			filled++
		}
	}
	return filled * 100 / len(fields)
}

func applyProfileFields(user *model.User, in ProfileInput) {
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.Department != nil {
		user.Department = *in.Department
	}
}

// sessionRevoker wires the session repository and token store into the
// SessionRevoker used on forced deactivation.
type sessionRevoker struct {
	sessionRepo repository.SessionRepository
	tokenStore  tokenDenier
}

type tokenDenier interface {
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	DenyRefreshToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// NewSessionRevoker builds the revoker used by the account service.
func NewSessionRevoker(sessionRepo repository.SessionRepository, tokenStore tokenDenier) SessionRevoker {
	return &sessionRevoker{sessionRepo: sessionRepo, tokenStore: tokenStore}
}

func (r *sessionRevoker) RevokeAllForUser(ctx context.Context, userID uint) error {
	sessions, err := r.sessionRepo.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := r.tokenStore.DeleteRefreshToken(ctx, sess.TokenJTI); err != nil {
			return err
		}
		if err := r.tokenStore.DenyRefreshToken(ctx, sess.TokenJTI, time.Until(sess.ExpiresAt)); err != nil {
			return err
		}
		metrics.SessionsRevokedTotal.Inc()
	}
	return nil
}
