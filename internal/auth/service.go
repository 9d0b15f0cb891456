package auth

import (
	"context"
	"errors"
	"time"

	"lexhub.io/internal/tenant"
)

// Service composes the token codec, credential store and refresh ledger
// into the login/refresh/logout and token-authentication flows. All data
// access runs against the tenant bound to the incoming context.
type Service struct {
	creds     CredentialStore
	ledger    *Ledger
	codec     *Codec
	accessTTL time.Duration
}

// NewService constructs the auth service.
func NewService(creds CredentialStore, ledger *Ledger, codec *Codec, accessTTL time.Duration) *Service {
	return &Service{
		creds:     creds,
		ledger:    ledger,
		codec:     codec,
		accessTTL: accessTTL,
	}
}

// Login authenticates credentials and issues a fresh token pair. Any prior
// refresh token for the account is replaced.
func (s *Service) Login(ctx context.Context, identifier, secret string) (TokenPair, Principal, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return TokenPair{}, Principal{}, tenant.ErrNotResolved
	}
	if identifier == "" || secret == "" {
		return TokenPair{}, Principal{}, ErrBadCredentials
	}

	account, err := s.creds.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, Principal{}, ErrBadCredentials
		}
		return TokenPair{}, Principal{}, err
	}
	if err := VerifyPassword(account.PasswordHash, secret); err != nil {
		return TokenPair{}, Principal{}, ErrBadCredentials
	}
	if !account.Enabled {
		return TokenPair{}, Principal{}, ErrAccountDisabled
	}

	pair, err := s.mint(ctx, account, tenantID)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	principal := Principal{
		Subject: account.ID,
		Tenant:  tenantID,
		Roles:   dedupeRoles(account.Roles),
		Enabled: true,
	}
	return pair, principal, nil
}

// Refresh redeems a refresh token and mints a new access token. Roles are
// re-read from the account at refresh time, so role changes take effect
// without a fresh login. The refresh token itself is not rotated; it stays
// valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshValue string) (TokenPair, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return TokenPair{}, tenant.ErrNotResolved
	}

	tok, err := s.ledger.Redeem(ctx, refreshValue)
	if err != nil {
		return TokenPair{}, err
	}
	tok, err = s.ledger.VerifyNotExpired(ctx, tok)
	if err != nil {
		return TokenPair{}, err
	}

	account, err := s.creds.FindByID(ctx, tok.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if !account.Enabled {
		return TokenPair{}, ErrAccountDisabled
	}

	access, accessExp, err := s.codec.Issue(account.ID, tenantID, account.Roles, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     tok.Value,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: tok.ExpiresAt,
	}, nil
}

// Logout deletes the refresh token. ErrInvalidRefreshToken when unknown.
func (s *Service) Logout(ctx context.Context, refreshValue string) error {
	return s.ledger.Remove(ctx, refreshValue)
}

// RevokeSessions deletes the account's live refresh token. Called on
// password change.
func (s *Service) RevokeSessions(ctx context.Context, accountID string) error {
	return s.ledger.RevokeForAccount(ctx, accountID)
}

// ValidateToken verifies an access token signature and expiry. No data
// access happens here; the principal carries the token's claims only.
func (s *Service) ValidateToken(raw string) (Principal, error) {
	return s.codec.Validate(raw)
}

// ResolvePrincipal checks that the token's subject still resolves to an
// existing, enabled account in the tenant bound to ctx.
func (s *Service) ResolvePrincipal(ctx context.Context, p Principal) (Principal, error) {
	account, err := s.creds.FindByID(ctx, p.Subject)
	if err != nil {
		return Principal{}, err
	}
	if !account.Enabled {
		return Principal{}, ErrAccountDisabled
	}
	p.Enabled = true
	return p, nil
}

// CurrentAccount loads the account behind the authenticated principal.
func (s *Service) CurrentAccount(ctx context.Context) (*Account, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.creds.FindByID(ctx, p.Subject)
}

func (s *Service) mint(ctx context.Context, account *Account, tenantID string) (TokenPair, error) {
	access, accessExp, err := s.codec.Issue(account.ID, tenantID, account.Roles, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.ledger.Issue(ctx, account.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
