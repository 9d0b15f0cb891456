package tenant

import (
	"context"

	"lexhub.io/internal/obs"
)

type tenantContextKey struct{}

// ContextWithTenant binds a tenant id to the context. Every tenant-scoped
// data access below this point routes through that tenant's schema. The
// binding dies with the derived context, so a pooled worker can never
// observe a tenant left over from an earlier request. Rebinding to a
// different tenant is legal but logged, since it usually means a request
// path forgot it already runs inside a tenant scope.
func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	if prev, ok := FromContext(ctx); ok && prev != tenantID {
		obs.Warn("tenant context rebound", map[string]any{
			"previous": prev,
			"tenant":   tenantID,
		})
	}
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// FromContext returns the tenant id bound to the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Scope runs fn with tenantID bound to a derived context. It is the entry
// point for background and system operations (provisioning, maintenance)
// that act on behalf of a tenant outside a request. The binding cannot
// outlive fn on any exit path, including panic and cancellation, because
// the derived context is never handed back to the caller.
func Scope(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return fn(ContextWithTenant(ctx, tenantID))
}
