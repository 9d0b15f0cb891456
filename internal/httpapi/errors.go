package httpapi

import (
	"errors"
	"net/http"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/obs"
	"lexhub.io/internal/tenant"
)

type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	RequestID    string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorBody{
		ErrorCode:    code,
		ErrorMessage: msg,
		RequestID:    RequestIDFromContext(r.Context()),
	})
}

// authFailureCode maps an authentication error to its stable wire code.
// Pure function: the single-envelope invariant is testable without any
// transport.
func authFailureCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "EXPIRED_TOKEN"
	case errors.Is(err, auth.ErrBadSignature):
		return "BAD_SIGNATURE"
	case errors.Is(err, auth.ErrUnsupportedToken):
		return "UNSUPPORTED_TOKEN"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "MALFORMED_TOKEN"
	case errors.Is(err, auth.ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "ACCOUNT_DISABLED"
	case errors.Is(err, auth.ErrBadCredentials):
		return "BAD_CREDENTIALS"
	case errors.Is(err, auth.ErrRefreshTokenExpired):
		return "REFRESH_TOKEN_EXPIRED"
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return "INVALID_REFRESH_TOKEN"
	default:
		return "UNAUTHENTICATED"
	}
}

// writeAuthError is the single wire shape for "not authenticated",
// regardless of where the failure was detected. The specific kind goes to
// logs and metrics; the response message stays generic.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	code := authFailureCode(err)
	obs.AuthFailure(code)
	obs.Warn("authentication failed", map[string]any{
		"request_id": RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
		"reason":     err.Error(),
	})
	writeError(w, r, http.StatusUnauthorized, code, "authentication required")
}

// handleError maps any core error to a response. Authentication errors all
// funnel through writeAuthError so there is exactly one 401 shape.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrNotResolved):
		// A route that should have bound tenant context didn't. That is a
		// programming-contract violation, not an authentication failure.
		obs.Error("tenant not resolved on tenant-scoped operation", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"path":       r.URL.Path,
		})
		writeError(w, r, http.StatusInternalServerError, "TENANT_NOT_RESOLVED", "internal error")
	case errors.Is(err, tenant.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
	case errors.Is(err, tenant.ErrNotActive):
		writeError(w, r, http.StatusForbidden, "TENANT_INACTIVE", "tenant is not active")
	case errors.Is(err, tenant.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "TENANT_EXISTS", "tenant already exists")
	case errors.Is(err, tenant.ErrInvalidSchema):
		writeError(w, r, http.StatusBadRequest, "INVALID_SCHEMA_NAME", "invalid schema name")
	case errors.Is(err, tenant.ErrSchemaProvisioning):
		writeError(w, r, http.StatusInternalServerError, "SCHEMA_PROVISIONING_FAILED", "tenant activation failed")
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "ACCOUNT_DISABLED", "account disabled")
	case isAuthFailure(err):
		writeAuthError(w, r, err)
	default:
		obs.Error("request failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func isAuthFailure(err error) bool {
	for _, kind := range []error{
		auth.ErrTokenExpired, auth.ErrBadSignature, auth.ErrUnsupportedToken,
		auth.ErrTokenMalformed, auth.ErrAccountNotFound, auth.ErrAccountDisabled,
		auth.ErrBadCredentials, auth.ErrRefreshTokenExpired, auth.ErrInvalidRefreshToken,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
