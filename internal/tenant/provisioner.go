package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"lexhub.io/internal/migrate"
	"lexhub.io/internal/obs"
)

// Provisioner creates and migrates tenant schemas. A tenant is only marked
// ACTIVE after both steps succeed; any failure leaves it in
// PENDING_ACTIVATION so activation can be retried by an operator.
type Provisioner struct {
	db            *sql.DB
	registry      Store
	router        *Router
	migrationsDir string
}

// NewProvisioner constructs a Provisioner. migrationsDir holds the
// tenant-schema migration set.
func NewProvisioner(db *sql.DB, registry Store, router *Router, migrationsDir string) *Provisioner {
	return &Provisioner{
		db:            db,
		registry:      registry,
		router:        router,
		migrationsDir: migrationsDir,
	}
}

// EnsureSchema creates the schema if it does not exist. Idempotent.
func (p *Provisioner) EnsureSchema(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, "create schema if not exists "+quoteIdent(schema)); err != nil {
		return fmt.Errorf("%w: create schema %s: %v", ErrSchemaProvisioning, schema, err)
	}
	return nil
}

// Migrate applies the tenant migration set to the schema. Idempotent: only
// unapplied migrations execute, tracked in a bookkeeping table inside the
// schema itself.
func (p *Provisioner) Migrate(ctx context.Context, schema string) error {
	if err := ValidateSchemaName(schema); err != nil {
		return err
	}
	mgr := migrate.NewManager(p.db, p.migrationsDir, "", migrate.WithSchema(schema))
	if err := mgr.Up(ctx); err != nil {
		return fmt.Errorf("%w: migrate schema %s: %v", ErrSchemaProvisioning, schema, err)
	}
	return nil
}

// Activate provisions the tenant's schema and transitions it to ACTIVE.
// On any provisioning failure the tenant stays PENDING_ACTIVATION.
func (p *Provisioner) Activate(ctx context.Context, tenantID string) (*Tenant, error) {
	t, err := p.registry.Find(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusActive {
		return t, nil
	}

	err = Scope(ctx, t.ID, func(ctx context.Context) error {
		if err := p.EnsureSchema(ctx, t.Schema); err != nil {
			return err
		}
		return p.Migrate(ctx, t.Schema)
	})
	if err != nil {
		obs.Error("tenant activation aborted", map[string]any{
			"tenant": t.ID,
			"schema": t.Schema,
			"error":  err.Error(),
		})
		return nil, err
	}

	if err := p.registry.UpdateStatus(ctx, t.ID, StatusActive); err != nil {
		return nil, err
	}
	t.Status = StatusActive
	if p.router != nil {
		p.router.Invalidate(t.ID)
	}
	return t, nil
}

// Deactivate transitions the tenant to INACTIVE and drops it from the
// router cache. The schema and its data stay in place.
func (p *Provisioner) Deactivate(ctx context.Context, tenantID string) (*Tenant, error) {
	t, err := p.registry.Find(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusInactive {
		if err := p.registry.UpdateStatus(ctx, t.ID, StatusInactive); err != nil {
			return nil, err
		}
		t.Status = StatusInactive
	}
	if p.router != nil {
		p.router.Invalidate(t.ID)
	}
	return t, nil
}
