package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or revoked.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrForbidden is a policy denial. Deliberately detail-free so a
	// manager cannot probe for admin-only records.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound is returned for unknown user ids.
	ErrUserNotFound = errors.New("user not found")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords don't match")
	// ErrUnknownRole is returned when a role name does not exist.
	ErrUnknownRole = errors.New("role does not exist")
	// ErrRoleInUse is returned when deleting a role still referenced by users.
	ErrRoleInUse = errors.New("role is referenced by existing users")
)

// Hierarchy invariant identifiers carried by HierarchyError.
const (
	InvariantSelfManager  = "self_manager"
	InvariantAdminManager = "admin_manager"
	InvariantManagerCycle = "manager_cycle"
)

// DuplicateFieldError reports which unique field collided on write.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// HierarchyError reports which manager-graph invariant a write violated.
type HierarchyError struct {
	Invariant string
}

func (e *HierarchyError) Error() string {
	switch e.Invariant {
	case InvariantSelfManager:
		return "user cannot be their own manager"
	case InvariantAdminManager:
		return "admin users cannot have managers"
	case InvariantManagerCycle:
		return "manager assignment would create a cycle"
	default:
		return "invalid manager hierarchy"
	}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Token errors never
// say which part of the token was wrong, and duplicate unique fields are
// conflicts rather than generic validation failures.
func MapErrorToHTTP(err error) *HTTPError {
	var dup *DuplicateFieldError
	if errors.As(err, &dup) {
		return NewHTTPError(http.StatusConflict, dup.Error(), "DUPLICATE_FIELD")
	}
	var hier *HierarchyError
	if errors.As(err, &hier) {
		return NewHTTPError(http.StatusUnprocessableEntity, hier.Error(), "INVALID_HIERARCHY")
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrPasswordMismatch):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "PASSWORD_MISMATCH")
	case errors.Is(err, ErrUnknownRole):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "UNKNOWN_ROLE")
	case errors.Is(err, ErrRoleInUse):
		return NewHTTPError(http.StatusConflict, err.Error(), "ROLE_IN_USE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
