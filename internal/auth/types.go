package auth

import (
	"errors"
	"regexp"
)

// usernamePattern defines the valid format for operator usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// The length check short-circuits before the pattern runs on oversized input.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

// RoleAdmin is the operator account configured for the daemon. It can
// drive sessions (re-scan, logout), clear the identity cell and read
// every observation surface.
const RoleAdmin Role = "admin"

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
