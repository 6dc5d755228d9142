package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"erpcore/internal/auth"
	apperr "erpcore/internal/errors"
	"erpcore/internal/metrics"
	"erpcore/internal/model"
	"erpcore/internal/repository"
)

const bcryptCost = 10

// LoginResult bundles the issued token pair with the authenticated user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService is the session manager: it authenticates credentials,
// issues token pairs, refreshes access tokens, and revokes sessions.
type AuthService interface {
	Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	// Logout revokes the refresh token: the session row flips inactive,
	// the stored token is removed, and the JTI joins the deny-list for
	// its remaining lifetime so it cannot be replayed.
	Logout(ctx context.Context, refreshToken string) error
	// RevokeAccessToken blacklists an outstanding access token until its
	// natural expiry. Best effort on logout; invalid tokens are ignored.
	RevokeAccessToken(ctx context.Context, accessToken string) error
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtService  *auth.JWTService
	tokenStore  auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtService:  jwtService,
		tokenStore:  tokenStore,
	}
}

// Login authenticates the email/password pair and issues a session.
// Deactivated users and unknown emails fail identically.
func (s *authService) Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.Active {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, apperr.ErrInvalidCredentials
	}

	role := user.RoleName()

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	session := &model.Session{
		UserID:    user.ID,
		TokenJTI:  tokenID,
		IPAddress: clientIP,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(auth.RefreshTokenExpiry),
		Active:    true,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh validates a refresh token against signature, deny-list, stored
// record, and session state, then returns a fresh access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", apperr.ErrInvalidRefreshToken
	}

	denied, err := s.tokenStore.IsRefreshTokenDenied(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check deny-list: %w", err)
	}
	if denied {
		return "", apperr.ErrInvalidRefreshToken
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", apperr.ErrInvalidRefreshToken
	}
	if storedUserID != claims.UserID || storedEmail != claims.Email {
		return "", apperr.ErrInvalidRefreshToken
	}

	session, err := s.sessionRepo.FindByJTI(ctx, claims.ID)
	if err != nil || !session.Active {
		return "", apperr.ErrInvalidRefreshToken
	}

	accessToken, err := s.jwtService.GenerateAccessToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return apperr.ErrInvalidRefreshToken
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if err := s.tokenStore.DenyRefreshToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("deny refresh token: %w", err)
	}
	if err := s.sessionRepo.MarkInactive(ctx, claims.ID); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}

	metrics.SessionsRevokedTotal.Inc()
	return nil
}

func (s *authService) RevokeAccessToken(ctx context.Context, accessToken string) error {
	claims, err := s.jwtService.ValidateToken(accessToken)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.tokenStore.BlacklistAccessToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}
