package tenant

import "context"

// Store is the registry of tenants. Implementations operate on the system
// schema only; tenant data never lives here.
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Find(ctx context.Context, id string) (*Tenant, error)
	FindBySchema(ctx context.Context, schema string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
