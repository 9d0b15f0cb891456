package httpapi

import (
	"net/http"
	"strings"
	"time"

	"lexhub.io/internal/audit"
	"lexhub.io/internal/tenant"
)

type createTenantRequest struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Schema    string    `json:"schema"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Schema:    t.Schema,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}

func (a *API) handleTenantsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createTenant(w, r)
	case http.MethodGet:
		a.listTenants(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	if !a.requireRole(w, r, "admin") {
		return
	}
	var req createTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "name is required")
		return
	}
	if err := tenant.ValidateSchemaName(req.Schema); err != nil {
		a.handleError(w, r, err)
		return
	}

	t := &tenant.Tenant{Name: req.Name, Schema: req.Schema}
	if err := a.tenants.Create(r.Context(), t); err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventTenantCreated, map[string]any{
		"tenant": t.ID,
		"schema": t.Schema,
	})
	writeJSON(w, http.StatusCreated, toTenantResponse(t))
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	if !a.requireRole(w, r, "admin") {
		return
	}
	all, err := a.tenants.List(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	items := make([]tenantResponse, 0, len(all))
	for _, t := range all {
		items = append(items, toTenantResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleTenantResource dispatches /v1/tenants/{id}[/activate|/deactivate].
func (a *API) handleTenantResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tenants/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	switch {
	case strings.HasSuffix(path, "/activate"):
		a.activateTenant(w, r, strings.TrimSuffix(path, "/activate"))
	case strings.HasSuffix(path, "/deactivate"):
		a.deactivateTenant(w, r, strings.TrimSuffix(path, "/deactivate"))
	default:
		a.getTenant(w, r, path)
	}
}

func (a *API) getTenant(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requireRole(w, r, "admin") {
		return
	}
	t, err := a.tenants.Find(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (a *API) activateTenant(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requireRole(w, r, "admin") {
		return
	}
	t, err := a.provisioner.Activate(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventTenantActivated, map[string]any{
		"tenant": t.ID,
		"schema": t.Schema,
	})
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (a *API) deactivateTenant(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requireRole(w, r, "admin") {
		return
	}
	t, err := a.provisioner.Deactivate(r.Context(), id)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventTenantDeactivated, map[string]any{
		"tenant": t.ID,
	})
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}
