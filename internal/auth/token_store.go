package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erpcore/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	refreshDenyKeyPrefix  = "denylist:refresh_token:"
	accessDenyKeyPrefix   = "blacklist:access_token:"
)

// TokenStoreInterface defines the interface for token storage operations.
// Deny-list entries carry a TTL equal to the token's remaining natural
// expiry, so the set cannot grow without bound.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID uint, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	DenyRefreshToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRefreshTokenDenied(ctx context.Context, tokenID string) (bool, error)
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshTokenData struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenData{UserID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (userID uint, email string, err error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil {
		return 0, "", fmt.Errorf("get refresh token: %w", err)
	}
	if data == nil {
		return 0, "", fmt.Errorf("refresh token not found")
	}

	var tokenData refreshTokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return 0, "", fmt.Errorf("unmarshal token data: %w", err)
	}
	return tokenData.UserID, tokenData.Email, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// DenyRefreshToken adds a revoked refresh token to the deny-list so it
// cannot be replayed before its natural expiry.
func (s *TokenStore) DenyRefreshToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already past natural expiry
	}
	return s.cache.Set(ctx, refreshDenyKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRefreshTokenDenied checks the deny-list. Store errors propagate: the
// check must fail closed, not report "not denied".
func (s *TokenStore) IsRefreshTokenDenied(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, refreshDenyKeyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("check deny-list: %w", err)
	}
	return data != nil, nil
}

// BlacklistAccessToken invalidates an outstanding access token until it
// expires, used on logout and forced deactivation.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessDenyKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessDenyKeyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return data != nil, nil
}
