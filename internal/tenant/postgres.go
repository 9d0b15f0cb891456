package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"lexhub.io/internal/ids"
)

const uniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store against the system schema in PostgreSQL. The
// table name is always schema-qualified: the registry is the one explicit,
// named code path that bypasses schema routing.
type PGStore struct {
	db           *sql.DB
	systemSchema string
}

// NewPGStore constructs a registry bound to the given system schema.
func NewPGStore(db *sql.DB, systemSchema string) (*PGStore, error) {
	if err := ValidateSchemaName(systemSchema); err != nil {
		return nil, err
	}
	return &PGStore{db: db, systemSchema: systemSchema}, nil
}

func (s *PGStore) table() string {
	return fmt.Sprintf("%q.tenants", s.systemSchema)
}

func (s *PGStore) Create(ctx context.Context, t *Tenant) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.Status == "" {
		t.Status = StatusPendingActivation
	}
	if err := ValidateSchemaName(t.Schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(id, name, schema_name, status) values($1,$2,$3,$4)`, s.table()),
		t.ID, t.Name, t.Schema, string(t.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select id, name, schema_name, status, created_at, updated_at from %s where id=$1`, s.table()), id)
	return scanTenant(row)
}

func (s *PGStore) FindBySchema(ctx context.Context, schema string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select id, name, schema_name, status, created_at, updated_at from %s where schema_name=$1`, s.table()), schema)
	return scanTenant(row)
}

func (s *PGStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select id, name, schema_name, status, created_at, updated_at from %s order by created_at asc`, s.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Tenant
	for rows.Next() {
		var t Tenant
		var status string
		if err := rows.Scan(&t.ID, &t.Name, &t.Schema, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Status = Status(status)
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("tenant: unknown status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`update %s set status=$1, updated_at=$2 where id=$3`, s.table()),
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	var status string
	if err := row.Scan(&t.ID, &t.Name, &t.Schema, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Status = Status(status)
	return &t, nil
}
