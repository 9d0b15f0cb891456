package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

var (
	_ CredentialStore   = (*PGCredentialStore)(nil)
	_ RefreshTokenStore = (*PGRefreshTokenStore)(nil)
)

// PGCredentialStore reads accounts from the current tenant's schema. All
// queries run on a connection acquired through the schema router, so table
// names stay unqualified.
type PGCredentialStore struct {
	src ConnSource
}

func NewPGCredentialStore(src ConnSource) *PGCredentialStore {
	return &PGCredentialStore{src: src}
}

const accountColumns = `id, identifier, password_hash, roles, enabled, created_at, updated_at`

func (s *PGCredentialStore) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := conn.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where identifier=$1`, identifier)
	return scanAccount(row)
}

func (s *PGCredentialStore) FindByID(ctx context.Context, id string) (*Account, error) {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := conn.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var (
		a     Account
		roles []byte
	)
	if err := row.Scan(&a.ID, &a.Identifier, &a.PasswordHash, &roles, &a.Enabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(roles, &a.Roles)
	return &a, nil
}

// PGRefreshTokenStore persists refresh tokens in the current tenant's
// schema. A unique index on account_id backs the one-live-token-per-account
// invariant; Upsert rides on it so two concurrent issuances for the same
// account cannot both leave a row.
type PGRefreshTokenStore struct {
	src ConnSource
}

func NewPGRefreshTokenStore(src ConnSource) *PGRefreshTokenStore {
	return &PGRefreshTokenStore{src: src}
}

func (s *PGRefreshTokenStore) Upsert(ctx context.Context, tok *RefreshToken) error {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	_, err = conn.ExecContext(ctx,
		`insert into refresh_tokens(value, account_id, expires_at, created_at)
		 values($1,$2,$3,$4)
		 on conflict (account_id) do update
		 set value=excluded.value, expires_at=excluded.expires_at, created_at=excluded.created_at`,
		tok.Value, tok.AccountID, tok.ExpiresAt, tok.CreatedAt,
	)
	return err
}

func (s *PGRefreshTokenStore) Find(ctx context.Context, value string) (*RefreshToken, error) {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := conn.QueryRowContext(ctx,
		`select value, account_id, expires_at, created_at from refresh_tokens where value=$1`, value)
	var tok RefreshToken
	if err := row.Scan(&tok.Value, &tok.AccountID, &tok.ExpiresAt, &tok.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &tok, nil
}

func (s *PGRefreshTokenStore) Delete(ctx context.Context, value string) error {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	res, err := conn.ExecContext(ctx, `delete from refresh_tokens where value=$1`, value)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

func (s *PGRefreshTokenStore) DeleteForAccount(ctx context.Context, accountID string) error {
	conn, release, err := s.src.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	_, err = conn.ExecContext(ctx, `delete from refresh_tokens where account_id=$1`, accountID)
	return err
}
