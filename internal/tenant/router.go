package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"lexhub.io/internal/obs"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateSchemaName rejects anything that cannot be interpolated into DDL
// as a bare identifier.
func ValidateSchemaName(name string) error {
	if !schemaNamePattern.MatchString(name) {
		return ErrInvalidSchema
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// Router binds pooled connections to the schema of the tenant carried by the
// request context. Binding happens per unit of work: a connection checked
// out through Acquire is reset to the system schema before it returns to
// the pool, so a reused connection can never leak one tenant's search_path
// into another tenant's request.
type Router struct {
	db           *sql.DB
	registry     Store
	systemSchema string

	mu      sync.RWMutex
	schemas map[string]string // tenant id -> schema, active tenants only
}

// NewRouter constructs a Router on top of the tenant registry.
func NewRouter(db *sql.DB, registry Store, systemSchema string) (*Router, error) {
	if err := ValidateSchemaName(systemSchema); err != nil {
		return nil, err
	}
	return &Router{
		db:           db,
		registry:     registry,
		systemSchema: systemSchema,
		schemas:      make(map[string]string),
	}, nil
}

// ResolveSchema maps the tenant bound to ctx to its schema name. It fails
// with ErrNotResolved when no tenant is bound: that is a programming error
// in the calling route, not an authentication failure.
func (r *Router) ResolveSchema(ctx context.Context) (string, error) {
	tenantID, ok := FromContext(ctx)
	if !ok {
		return "", ErrNotResolved
	}

	r.mu.RLock()
	schema, hit := r.schemas[tenantID]
	r.mu.RUnlock()
	if hit {
		return schema, nil
	}

	t, err := r.registry.Find(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if t.Status != StatusActive {
		return "", fmt.Errorf("%w: tenant %s is %s", ErrNotActive, t.ID, t.Status)
	}
	if err := ValidateSchemaName(t.Schema); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.schemas[tenantID] = t.Schema
	r.mu.Unlock()
	return t.Schema, nil
}

// Invalidate drops the cached mapping for a tenant. Called on activation
// and deactivation so the next unit of work re-reads the registry.
func (r *Router) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.schemas, tenantID)
	r.mu.Unlock()
}

// Acquire checks a connection out of the pool with its search_path set to
// the current tenant's schema. The returned release func must be called at
// the end of the unit of work; it re-binds the connection to the system
// schema and returns it to the pool. The reset runs on a background context
// so that request cancellation cannot skip it.
func (r *Router) Acquire(ctx context.Context) (*sql.Conn, func(), error) {
	schema, err := r.ResolveSchema(ctx)
	if err != nil {
		return nil, nil, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.ExecContext(ctx, "set search_path to "+quoteIdent(schema)); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("tenant: bind schema %s: %w", schema, err)
	}
	obs.SchemaSwitch()

	release := func() {
		if _, err := conn.ExecContext(context.Background(), "set search_path to "+quoteIdent(r.systemSchema)); err != nil {
			obs.Error("schema reset failed", map[string]any{"schema": schema, "error": err.Error()})
			// A connection we could not reset must not rejoin the pool in a
			// tenant-bound state; Close below discards it either way.
		}
		_ = conn.Close()
	}
	return conn, release, nil
}

// System checks out a connection bound to the system schema. This is the
// explicit path for tenant-agnostic operations; it is never used as a
// fallback when no tenant is bound.
func (r *Router) System(ctx context.Context) (*sql.Conn, func(), error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.ExecContext(ctx, "set search_path to "+quoteIdent(r.systemSchema)); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	release := func() { _ = conn.Close() }
	return conn, release, nil
}
