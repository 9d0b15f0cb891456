package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

const refreshValueBytes = 32

// Ledger is the durable record of refresh tokens: exactly one live token
// per account. Issuance replaces any prior token atomically; expired
// tokens are garbage-collected lazily on first touch.
type Ledger struct {
	store RefreshTokenStore
	ttl   time.Duration
	now   func() time.Time
}

// LedgerOption configures Ledger behavior.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the time source (useful for tests).
func WithLedgerClock(fn func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLedger constructs a Ledger issuing tokens with the given lifetime.
func NewLedger(store RefreshTokenStore, ttl time.Duration, opts ...LedgerOption) *Ledger {
	l := &Ledger{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Issue mints a new refresh token for the account, replacing any live one.
// Concurrent issuance for the same account resolves last-writer-wins: the
// store's upsert keeps the row count at one.
func (l *Ledger) Issue(ctx context.Context, accountID string) (*RefreshToken, error) {
	buf := make([]byte, refreshValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	now := l.now().UTC()
	tok := &RefreshToken{
		Value:     base64.RawURLEncoding.EncodeToString(buf),
		AccountID: accountID,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}
	if err := l.store.Upsert(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Redeem looks a token up by value.
func (l *Ledger) Redeem(ctx context.Context, value string) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrInvalidRefreshToken
	}
	return l.store.Find(ctx, value)
}

// VerifyNotExpired checks the token's expiry. An expired token is deleted
// as a side effect, so a later Redeem of the same value fails with
// ErrInvalidRefreshToken.
func (l *Ledger) VerifyNotExpired(ctx context.Context, tok *RefreshToken) (*RefreshToken, error) {
	if !tok.ExpiresAt.After(l.now()) {
		_ = l.store.Delete(ctx, tok.Value)
		return nil, ErrRefreshTokenExpired
	}
	return tok, nil
}

// Remove deletes a token by value. ErrInvalidRefreshToken if unknown.
func (l *Ledger) Remove(ctx context.Context, value string) error {
	return l.store.Delete(ctx, value)
}

// RevokeForAccount deletes the account's live token. Used on logout and on
// password change, forcing re-login everywhere.
func (l *Ledger) RevokeForAccount(ctx context.Context, accountID string) error {
	return l.store.DeleteForAccount(ctx, accountID)
}
