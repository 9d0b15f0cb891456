package auth

import (
	"context"
	"database/sql"
)

// ConnSource supplies schema-bound connections for tenant-scoped data
// access. Satisfied by tenant.Router.
type ConnSource interface {
	Acquire(ctx context.Context) (*sql.Conn, func(), error)
}

// CredentialStore looks up accounts in the current tenant's schema.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
}

// RefreshTokenStore persists refresh tokens in the current tenant's schema.
type RefreshTokenStore interface {
	// Upsert replaces any live token for the account with tok, atomically.
	Upsert(ctx context.Context, tok *RefreshToken) error
	// Find returns the token with the given value.
	Find(ctx context.Context, value string) (*RefreshToken, error)
	// Delete removes a token by value; ErrInvalidRefreshToken if absent.
	Delete(ctx context.Context, value string) error
	// DeleteForAccount removes the account's live token, if any.
	DeleteForAccount(ctx context.Context, accountID string) error
}
