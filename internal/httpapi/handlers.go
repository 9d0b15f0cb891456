package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/obs"
	"lexhub.io/internal/tenant"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps wires the HTTP layer to the core services.
type Deps struct {
	Auth        *auth.Service
	Tenants     tenant.Store
	Provisioner *tenant.Provisioner
	DB          *sql.DB
	PublicPaths []string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	auth        *auth.Service
	tenants     tenant.Store
	provisioner *tenant.Provisioner
	readyProbe  ReadyProbe
	publicPaths []string
	version     string
}

// New constructs the API and mounts all routes.
func New(deps Deps, version string) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        deps.Auth,
		tenants:     deps.Tenants,
		provisioner: deps.Provisioner,
		readyProbe:  ReadyProbe{DB: deps.DB},
		publicPaths: deps.PublicPaths,
		version:     version,
	}

	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/refresh-token", a.handleRefresh)
	a.mux.HandleFunc("/logout", a.handleLogout)

	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/tenants", a.handleTenantsCollection)
	a.mux.HandleFunc("/v1/tenants/", a.handleTenantResource)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "lexhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}
