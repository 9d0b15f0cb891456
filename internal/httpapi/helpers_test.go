package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/tenant"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type memCredentialStore struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func (s *memCredentialStore) FindByIdentifier(_ context.Context, identifier string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Identifier == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, auth.ErrAccountNotFound
}

func (s *memCredentialStore) FindByID(_ context.Context, id string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

type memRefreshStore struct {
	mu     sync.Mutex
	byVal  map[string]*auth.RefreshToken
	byAcct map[string]string
}

func newMemRefreshStore() *memRefreshStore {
	return &memRefreshStore{
		byVal:  make(map[string]*auth.RefreshToken),
		byAcct: make(map[string]string),
	}
}

func (s *memRefreshStore) Upsert(_ context.Context, tok *auth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byAcct[tok.AccountID]; ok {
		delete(s.byVal, prev)
	}
	cp := *tok
	s.byVal[tok.Value] = &cp
	s.byAcct[tok.AccountID] = tok.Value
	return nil
}

func (s *memRefreshStore) Find(_ context.Context, value string) (*auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byVal[value]
	if !ok {
		return nil, auth.ErrInvalidRefreshToken
	}
	cp := *tok
	return &cp, nil
}

func (s *memRefreshStore) Delete(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byVal[value]
	if !ok {
		return auth.ErrInvalidRefreshToken
	}
	delete(s.byVal, value)
	delete(s.byAcct, tok.AccountID)
	return nil
}

func (s *memRefreshStore) DeleteForAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if val, ok := s.byAcct[accountID]; ok {
		delete(s.byVal, val)
		delete(s.byAcct, accountID)
	}
	return nil
}

type memTenantStore struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
}

func (s *memTenantStore) Create(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if existing.ID == t.ID || existing.Schema == t.Schema {
			return tenant.ErrAlreadyExists
		}
	}
	if t.ID == "" {
		t.ID = "tenant-" + t.Schema
	}
	if t.Status == "" {
		t.Status = tenant.StatusPendingActivation
	}
	t.CreatedAt = time.Now()
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *memTenantStore) Find(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTenantStore) FindBySchema(_ context.Context, schema string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Schema == schema {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tenant.ErrNotFound
}

func (s *memTenantStore) List(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*tenant.Tenant
	for _, t := range s.tenants {
		cp := *t
		res = append(res, &cp)
	}
	return res, nil
}

func (s *memTenantStore) UpdateStatus(_ context.Context, id string, status tenant.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return tenant.ErrNotFound
	}
	t.Status = status
	return nil
}

type testEnv struct {
	api     *API
	handler http.Handler
	creds   *memCredentialStore
	tenants *memTenantStore
	codec   *auth.Codec
}

// newTestEnv wires the API against in-memory stores with one active tenant
// ("tenant-1", schema "acme") and one account (lawyer@firm.example/s3cret).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	creds := &memCredentialStore{accounts: map[string]*auth.Account{
		"acc-1": {
			ID:           "acc-1",
			Identifier:   "lawyer@firm.example",
			PasswordHash: hash,
			Roles:        []string{"lawyer", "admin"},
			Enabled:      true,
		},
	}}
	tenants := &memTenantStore{tenants: map[string]*tenant.Tenant{
		"tenant-1": {ID: "tenant-1", Name: "Acme Legal", Schema: "acme", Status: tenant.StatusActive},
		"tenant-2": {ID: "tenant-2", Name: "Blackstone", Schema: "blackstone", Status: tenant.StatusPendingActivation},
	}}

	codec, err := auth.NewCodec(testSigningKey)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	ledger := auth.NewLedger(newMemRefreshStore(), 24*time.Hour)
	svc := auth.NewService(creds, ledger, codec, 15*time.Minute)

	api := New(Deps{
		Auth:        svc,
		Tenants:     tenants,
		PublicPaths: []string{"/login", "/refresh-token", "/logout", "/healthz", "/readyz", "/metrics"},
	}, "test")

	return &testEnv{
		api:     api,
		handler: api.Handler(),
		creds:   creds,
		tenants: tenants,
		codec:   codec,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// token mints a valid access token for the seeded account.
func (e *testEnv) token(t *testing.T, roles ...string) string {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"lawyer", "admin"}
	}
	raw, _, err := e.codec.Issue("acc-1", "tenant-1", roles, 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return raw
}
