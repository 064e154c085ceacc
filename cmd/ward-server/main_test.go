package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ward/ward/internal/config"
	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/internal/platform/db"
	"github.com/ward/ward/internal/platform/events"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      testSecret,
		JWTTTL:         time.Hour,
		WardTimezone:   "UTC",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
	}
	revocations := auth.NewMemoryRevocationStore(time.Minute)
	t.Cleanup(revocations.Close)

	e, err := newServer(serverDeps{
		cfg:         cfg,
		logger:      zerolog.New(io.Discard),
		revocations: revocations,
		publisher:   events.NopPublisher{},
	})
	require.NoError(t, err)
	return e
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, _, err := auth.NewTokenIssuer([]byte(testSecret), tokenIssuer, time.Hour).
		Issue(uuid.NewString(), role+"1", []string{role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_APIRequiresToken(t *testing.T) {
	e := newTestServer(t)
	for _, path := range []string{"/api/timeline", "/api/notifications/pending", "/api/patients", "/api/auth/me", "/api/ws/orders"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestServer_RejectsForeignToken(t *testing.T) {
	e := newTestServer(t)
	token, _, err := auth.NewTokenIssuer([]byte("another-secret-another-secret-xx"), tokenIssuer, time.Hour).
		Issue(uuid.NewString(), "mallory", []string{auth.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RoleChecks(t *testing.T) {
	e := newTestServer(t)
	body := `{"ipd_number":"IPD001","name":"John Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, auth.RoleNurse))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_NotificationTypeValidated(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/pending?type=surgery", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, auth.RoleNurse))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	e := newTestServer(t)
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ward_http_requests_total")
}

func TestNewServer_InvalidTimezone(t *testing.T) {
	_, err := newServer(serverDeps{
		cfg:    &config.Config{WardTimezone: "Mars/Olympus_Mons"},
		logger: zerolog.Nop(),
	})
	assert.Error(t, err)
}

func TestPrintMigrationStatus(t *testing.T) {
	applied := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printMigrationStatus(cmd, "public", []db.MigrationStatus{
		{Version: 1, Name: "001_ward_core.sql", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "002_next.sql"},
	})

	text := out.String()
	assert.Contains(t, text, "Migration status for schema: public")
	assert.Contains(t, text, "2026-03-01T09:00:00Z")
	assert.Regexp(t, `2\s+002_next\.sql\s+pending`, text)
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []*cobra.Command{serveCmd(), migrateCmd(), adminCmd()} {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"serve": true, "migrate": true, "admin": true}, names)

	create, _, err := adminCmd().Find([]string{"create"})
	require.NoError(t, err)
	assert.NotNil(t, create.Flags().Lookup("username"))
	assert.Equal(t, auth.RoleAdmin, create.Flags().Lookup("role").DefValue)
}
