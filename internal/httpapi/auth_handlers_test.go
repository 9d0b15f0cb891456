package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"lexhub.io/internal/tenant"
)

func loginBody(identifier, secret string) string {
	data, _ := json.Marshal(loginRequest{Identifier: identifier, Secret: secret})
	return string(data)
}

func (e *testEnv) login(t *testing.T) tokenPairResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "s3cret"), map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var pair tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return pair
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	pair := env.login(t)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("pair = %+v", pair)
	}

	// The issued token authenticates follow-up requests.
	rec := env.do(t, http.MethodGet, "/v1/me", "", map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginBySchemaSlug(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "s3cret"), map[string]string{
		tenantHeader: "acme",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "wrong"), map[string]string{
		tenantHeader: "tenant-1",
	})
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusUnauthorized || body.ErrorCode != "BAD_CREDENTIALS" {
		t.Fatalf("status = %d code = %q, want 401 BAD_CREDENTIALS", rec.Code, body.ErrorCode)
	}
	if body.ErrorMessage != "authentication required" {
		t.Fatalf("errorMessage = %q leaks detail", body.ErrorMessage)
	}
}

func TestLoginMissingTenantHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "s3cret"), nil)
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusNotFound || body.ErrorCode != "TENANT_NOT_FOUND" {
		t.Fatalf("status = %d code = %q, want 404 TENANT_NOT_FOUND", rec.Code, body.ErrorCode)
	}
}

func TestLoginInactiveTenant(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "s3cret"), map[string]string{
		tenantHeader: "tenant-2",
	})
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusForbidden || body.ErrorCode != "TENANT_INACTIVE" {
		t.Fatalf("status = %d code = %q, want 403 TENANT_INACTIVE", rec.Code, body.ErrorCode)
	}
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", `{"identifier":"a","secret":"b","extra":1}`, map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRefreshFlow(t *testing.T) {
	env := newTestEnv(t)
	pair := env.login(t)

	body, _ := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
	rec := env.do(t, http.MethodPost, "/refresh-token", string(body), map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var refreshed tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if refreshed.RefreshToken != pair.RefreshToken {
		t.Fatal("refresh rotated the refresh token")
	}
	if refreshed.AccessToken == "" {
		t.Fatal("no access token")
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(refreshRequest{RefreshToken: "nope"})
	rec := env.do(t, http.MethodPost, "/refresh-token", string(body), map[string]string{
		tenantHeader: "tenant-1",
	})
	var eb errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &eb)
	if rec.Code != http.StatusUnauthorized || eb.ErrorCode != "INVALID_REFRESH_TOKEN" {
		t.Fatalf("status = %d code = %q, want 401 INVALID_REFRESH_TOKEN", rec.Code, eb.ErrorCode)
	}
}

func TestLogoutFlow(t *testing.T) {
	env := newTestEnv(t)
	pair := env.login(t)

	body, _ := json.Marshal(logoutRequest{RefreshToken: pair.RefreshToken})
	rec := env.do(t, http.MethodPost, "/logout", string(body), map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// Second logout with the same value: token is gone.
	rec = env.do(t, http.MethodPost, "/logout", string(body), map[string]string{
		tenantHeader: "tenant-1",
	})
	var eb errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &eb)
	if rec.Code != http.StatusNotFound || eb.ErrorCode != "UNKNOWN_REFRESH_TOKEN" {
		t.Fatalf("status = %d code = %q, want 404 UNKNOWN_REFRESH_TOKEN", rec.Code, eb.ErrorCode)
	}

	// And the refresh path rejects it too.
	refreshBody, _ := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
	rec = env.do(t, http.MethodPost, "/refresh-token", string(refreshBody), map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", rec.Code)
	}
}

func TestLoginMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/login", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("Allow = %q", allow)
	}
}

func TestTenantScopeStatusCheck(t *testing.T) {
	env := newTestEnv(t)
	env.tenants.mu.Lock()
	env.tenants.tenants["tenant-1"].Status = tenant.StatusInactive
	env.tenants.mu.Unlock()

	rec := env.do(t, http.MethodPost, "/login", loginBody("lawyer@firm.example", "s3cret"), map[string]string{
		tenantHeader: "tenant-1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
