package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldcollect/go-session-server/auth"
	fakedirectory "github.com/fieldcollect/go-session-server/directory/repofakes"
	fakeexporter "github.com/fieldcollect/go-session-server/exporter/exporterfakes"
	"github.com/fieldcollect/go-session-server/internal/config"
	"github.com/fieldcollect/go-session-server/internal/metrics"
	"github.com/fieldcollect/go-session-server/principals"
	"github.com/fieldcollect/go-session-server/server"
	fakesessionstore "github.com/fieldcollect/go-session-server/sessions/repofakes"
	"github.com/fieldcollect/go-session-server/token"
)

const (
	testOwnerUsername     = "maria.owner"
	testOwnerPassword     = "owner-password-1"
	testCollectorUsername = "jorge.collector"
	testCollectorPassword = "collector-password-1"
	testTenantHost        = "tenant-7.db.internal"
	testTenantDBName      = "tenant_7"
	testTenantUser        = "tenant_7_app"
	testTenantPassword    = "tenant-7-secret"
)

type serverFixture struct {
	srv   *server.Server
	store *fakesessionstore.FakeSessionStore
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()

	tenant := principals.Info{
		TenantHost:     testTenantHost,
		TenantDBName:   testTenantDBName,
		TenantUser:     testTenantUser,
		TenantPassword: testTenantPassword,
	}

	owner := tenant
	owner.ID = 1
	owner.Kind = principals.KindOwner
	owner.Username = testOwnerUsername
	dir.AddPrincipal(owner, testOwnerPassword, "")

	collector := tenant
	collector.ID = 2
	collector.Kind = principals.KindCollector
	collector.Username = testCollectorUsername
	dir.AddPrincipal(collector, testCollectorPassword, "")

	orchestrator, err := auth.NewOrchestrator(
		auth.Repos{Directory: dir, Sessions: store},
		token.NewIssuer(),
		fakeexporter.NewFakeExporter(),
	)
	require.NoError(t, err)

	srv, err := server.New(config.New(), orchestrator, metrics.New())
	require.NoError(t, err)

	// A downstream business route that echoes what the gate attached.
	requireSession := srv.RequireSession()
	srv.RegisterRouteFunc("GET /whoami", requireSession(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := server.IdentityFromContext(r.Context())
		conn, _ := server.TenantConnectionFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"identity": identity,
			"host":     conn.Host,
			"db_name":  conn.DBName,
			"user":     conn.User,
			"password": conn.Password,
		})
	}))

	return &serverFixture{srv: srv, store: store}
}

func (f *serverFixture) login(t *testing.T, username, password string) map[string]any {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGateRejectsMissingAuthorizationHeader(t *testing.T) {
	f := setupServer(t)

	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "missing_token")
}

func TestGateRejectsMalformedAuthorizationHeader(t *testing.T) {
	f := setupServer(t)

	for _, header := range []string{"Token abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		require.Contains(t, rec.Body.String(), "missing_token")
	}
}

func TestGateRejectsUnknownToken(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_session")
}

func TestGateAttachesIdentityAndTenantConnection(t *testing.T) {
	f := setupServer(t)
	loginResp := f.login(t, testOwnerUsername, testOwnerPassword)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp["token"].(string))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Identity server.Identity `json:"identity"`
		Host     string          `json:"host"`
		DBName   string          `json:"db_name"`
		User     string          `json:"user"`
		Password string          `json:"password"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Equal(t, int64(1), resp.Identity.PrincipalID)
	require.Equal(t, principals.KindOwner, resp.Identity.Kind)
	require.Equal(t, testOwnerUsername, resp.Identity.Username)

	// The descriptor must be exactly what login stored in the cache.
	require.Equal(t, testTenantHost, resp.Host)
	require.Equal(t, testTenantDBName, resp.DBName)
	require.Equal(t, testTenantUser, resp.User)
	require.Equal(t, testTenantPassword, resp.Password)
}

func TestRequireKindRestrictsDiagnosticListing(t *testing.T) {
	f := setupServer(t)

	ownerResp := f.login(t, testOwnerUsername, testOwnerPassword)
	collectorResp := f.login(t, testCollectorUsername, testCollectorPassword)

	req := httptest.NewRequest(http.MethodGet, "/auth/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+collectorResp["token"].(string))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+ownerResp["token"].(string))
	rec = httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":2`)
}
