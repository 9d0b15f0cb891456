package auth

import (
	"strings"
	"time"
)

// Account is a credentialed identity stored in a tenant's schema.
type Account struct {
	ID           string
	Identifier   string // login identifier, usually an email
	PasswordHash string
	Roles        []string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the resolved, authenticated identity attached to a request.
// Immutable after construction; never persisted.
type Principal struct {
	Subject string
	Tenant  string
	Roles   []string
	Enabled bool
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RefreshToken is a persisted, opaque, server-tracked credential. At most
// one live row exists per account.
type RefreshToken struct {
	Value     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
