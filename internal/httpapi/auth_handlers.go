package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lexhub.io/internal/audit"
	"lexhub.io/internal/auth"
	"lexhub.io/internal/tenant"
)

const tenantHeader = "X-Tenant"

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// tenantScope resolves the X-Tenant header (tenant id or schema slug)
// through the registry and binds the tenant to a derived context. Login,
// refresh and logout run before any access token exists, so the tenant
// cannot come from token claims.
func (a *API) tenantScope(r *http.Request) (context.Context, error) {
	key := strings.TrimSpace(r.Header.Get(tenantHeader))
	if key == "" {
		return nil, tenant.ErrNotFound
	}
	t, err := a.tenants.Find(r.Context(), key)
	if errors.Is(err, tenant.ErrNotFound) {
		t, err = a.tenants.FindBySchema(r.Context(), key)
	}
	if err != nil {
		return nil, err
	}
	if t.Status != tenant.StatusActive {
		return nil, tenant.ErrNotActive
	}
	ctx := tenant.ContextWithTenant(r.Context(), t.ID)
	SetLogField(ctx, "tenant", t.ID)
	return ctx, nil
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ctx, err := a.tenantScope(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	pair, principal, err := a.auth.Login(ctx, req.Identifier, req.Secret)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	SetLogField(ctx, "account", principal.Subject)
	_ = audit.LogEvent(ctx, audit.EventLogin, map[string]any{
		"account":    principal.Subject,
		"identifier": req.Identifier,
	})
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ctx, err := a.tenantScope(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	pair, err := a.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(ctx, audit.EventTokenRefreshed, nil)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ctx, err := a.tenantScope(r)
	if err != nil {
		a.handleError(w, r, err)
		return
	}

	if err := a.auth.Logout(ctx, req.RefreshToken); err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			writeError(w, r, http.StatusNotFound, "UNKNOWN_REFRESH_TOKEN", "refresh token not found")
			return
		}
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(ctx, audit.EventLogout, nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

type meResponse struct {
	ID         string   `json:"id"`
	Identifier string   `json:"identifier"`
	Tenant     string   `json:"tenant"`
	Roles      []string `json:"roles"`
}

// handleMe reads the caller's account row through the schema router,
// proving the principal and the tenant binding end to end.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAuthError(w, r, errMissingBearer)
		return
	}
	account, err := a.auth.CurrentAccount(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:         account.ID,
		Identifier: account.Identifier,
		Tenant:     principal.Tenant,
		Roles:      principal.Roles,
	})
}
