package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/tenant"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errMissingBearer = errors.New("missing bearer token")

// withAuth is the per-request authentication pipeline. Each stage derives a
// new context value; nothing request-scoped survives past ServeHTTP, so the
// tenant binding and diagnostic fields are gone on every exit path,
// including panics and cancellation.
//
// Stages: extract bearer token -> validate signature/expiry -> resolve the
// account in the token's tenant -> attach principal and tenant to the
// context -> downstream handler.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || a.isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeAuthError(w, r, err)
			return
		}

		principal, err := a.auth.ValidateToken(raw)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}

		// The tenant claim routes every data access below this point,
		// including the account resolution on the next line.
		ctx := tenant.ContextWithTenant(r.Context(), principal.Tenant)
		principal, err = a.auth.ResolvePrincipal(ctx, principal)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}

		ctx = auth.ContextWithPrincipal(ctx, principal)
		SetLogField(ctx, "account", principal.Subject)
		SetLogField(ctx, "tenant", principal.Tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isPublicPath matches the configured allow-list: entries ending in "*"
// are prefix globs, everything else is an exact match.
func (a *API) isPublicPath(path string) bool {
	for _, p := range a.publicPaths {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingBearer
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errMissingBearer
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

// requireRole guards admin-only handlers. 401 without a principal, 403
// without the role.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeAuthError(w, r, errMissingBearer)
		return false
	}
	if !principal.HasRole(role) {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role")
		return false
	}
	return true
}
