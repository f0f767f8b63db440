// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/authcore/internal/handlers"
	"github.com/adscope/authcore/internal/ratelimit"
	"github.com/adscope/authcore/internal/services/auth"
	"github.com/adscope/authcore/internal/services/session"
	"github.com/adscope/authcore/internal/testutil"
)

type testApp struct {
	echo    *echo.Echo
	service *auth.Service
	auth    *handlers.Auth
	admin   *handlers.Admin
	issuer  *session.Issuer
}

func newTestApp(t *testing.T, cfg auth.Config) *testApp {
	t.Helper()
	_, store := testutil.NewTestDB(t)
	limiter := ratelimit.NewMemory()
	t.Cleanup(limiter.Close)

	service := auth.NewService(nil, store, limiter, cfg)
	issuer := session.New("session_token", cfg.SessionMaxAge, false)

	return &testApp{
		echo:    echo.New(),
		service: service,
		auth:    handlers.NewAuth(service, issuer),
		admin:   handlers.NewAdmin(service),
		issuer:  issuer,
	}
}

func defaultConfig() auth.Config {
	return auth.Config{
		SessionMaxAge: time.Hour,
		Development:   true,
		LoginLimit:    100,
		LoginWindow:   time.Minute,
		SignupLimit:   100,
		SignupWindow:  time.Minute,
		ForgotLimit:   100,
		ForgotWindow:  time.Minute,
	}
}

func (a *testApp) signup(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	c, rec := testutil.NewEchoContext(a.echo, http.MethodPost, "/auth/signup", strings.NewReader(body))
	require.NoError(t, a.auth.Signup(c))
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSignupHandler(t *testing.T) {
	app := newTestApp(t, defaultConfig())

	rec := app.signup(t, "alice@example.com", "password-123")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	cookie := sessionCookie(t, rec, "session_token")
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Nil(t, sessionCookie(t, rec, session.AdminCookieName))
}

func TestSignupHandlerDuplicate(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	app.signup(t, "alice@example.com", "password-123")

	rec := app.signup(t, "alice@example.com", "password-456")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", decodeBody(t, rec)["error"])
	assert.Nil(t, sessionCookie(t, rec, "session_token"))
}

func TestSignupHandlerBadBody(t *testing.T) {
	app := newTestApp(t, defaultConfig())

	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	require.NoError(t, app.auth.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeBody(t, rec)["error"])
}

func TestLoginHandler(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	app.signup(t, "alice@example.com", "password-123")

	body := `{"email":"alice@example.com","password":"password-123"}`
	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/login", strings.NewReader(body))
	require.NoError(t, app.auth.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(t, rec, "session_token"))
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	app.signup(t, "alice@example.com", "password-123")

	body := `{"email":"alice@example.com","password":"password-999"}`
	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/login", strings.NewReader(body))
	require.NoError(t, app.auth.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeBody(t, rec)["error"])
}

func TestLoginHandlerRateLimited(t *testing.T) {
	cfg := defaultConfig()
	cfg.LoginLimit = 1
	app := newTestApp(t, cfg)

	body := `{"email":"alice@example.com","password":"password-123"}`
	c, _ := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/login", strings.NewReader(body))
	require.NoError(t, app.auth.Login(c))

	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/login", strings.NewReader(body))
	require.NoError(t, app.auth.Login(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoginHandlerAdminCookie(t *testing.T) {
	cfg := defaultConfig()
	cfg.AdminEmail = "admin@example.com"
	app := newTestApp(t, cfg)

	rec := app.signup(t, "admin@example.com", "password-123")
	require.Equal(t, http.StatusCreated, rec.Code)

	admin := sessionCookie(t, rec, session.AdminCookieName)
	require.NotNil(t, admin)
	assert.Equal(t, "1", admin.Value)
}

func TestMeHandler(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	rec := app.signup(t, "alice@example.com", "password-123")
	token := sessionCookie(t, rec, "session_token").Value

	c, rec := testutil.NewEchoContext(app.echo, http.MethodGet, "/auth/me", nil)
	c.Request().AddCookie(&http.Cookie{Name: "session_token", Value: token})
	require.NoError(t, app.auth.Me(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])
}

func TestMeHandlerAnonymous(t *testing.T) {
	app := newTestApp(t, defaultConfig())

	c, rec := testutil.NewEchoContext(app.echo, http.MethodGet, "/auth/me", nil)
	require.NoError(t, app.auth.Me(c))

	// Anonymous is 200 with a null user, never an error status.
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Nil(t, body["user"])
}

func TestLogoutHandler(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	rec := app.signup(t, "alice@example.com", "password-123")
	token := sessionCookie(t, rec, "session_token").Value

	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/logout", nil)
	c.Request().AddCookie(&http.Cookie{Name: "session_token", Value: token})
	require.NoError(t, app.auth.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec, "session_token")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	// The session is gone server-side.
	c, rec = testutil.NewEchoContext(app.echo, http.MethodGet, "/auth/me", nil)
	c.Request().AddCookie(&http.Cookie{Name: "session_token", Value: token})
	require.NoError(t, app.auth.Me(c))
	assert.Nil(t, decodeBody(t, rec)["user"])
}

func TestForgotHandlerNeverDiscloses(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	app.signup(t, "alice@example.com", "password-123")

	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		body := `{"email":"` + email + `"}`
		c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/forgot", strings.NewReader(body))
		require.NoError(t, app.auth.Forgot(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	}
}

func TestResetHandler(t *testing.T) {
	app := newTestApp(t, defaultConfig())
	app.signup(t, "alice@example.com", "password-123")

	token, err := app.service.ForgotPassword(t.Context(), "test", "alice@example.com")
	require.NoError(t, err)

	body := `{"token":"` + token + `","password":"password-456"}`
	c, rec := testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/reset", strings.NewReader(body))
	require.NoError(t, app.auth.Reset(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second use of the same token is rejected.
	c, rec = testutil.NewEchoContext(app.echo, http.MethodPost, "/auth/reset", strings.NewReader(body))
	require.NoError(t, app.auth.Reset(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminExistsHandler(t *testing.T) {
	cfg := defaultConfig()
	cfg.AdminEmail = "admin@example.com"
	app := newTestApp(t, cfg)

	c, rec := testutil.NewEchoContext(app.echo, http.MethodGet, "/admin/admin-exists", nil)
	require.NoError(t, app.admin.AdminExists(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, false, body["exists"])

	app.signup(t, "admin@example.com", "password-123")

	c, rec = testutil.NewEchoContext(app.echo, http.MethodGet, "/admin/admin-exists", nil)
	require.NoError(t, app.admin.AdminExists(c))
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "fallback", body["backend"])
}

func TestAdminExistsHandlerSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Development = false
	cfg.AdminEmail = "admin@example.com"
	cfg.AdminSecret = "s3cret"
	app := newTestApp(t, cfg)

	c, rec := testutil.NewEchoContext(app.echo, http.MethodGet, "/admin/admin-exists", nil)
	require.NoError(t, app.admin.AdminExists(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = testutil.NewEchoContext(app.echo, http.MethodGet, "/admin/admin-exists", nil)
	c.Request().Header.Set(handlers.SetupSecretHeader, "s3cret")
	require.NoError(t, app.admin.AdminExists(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	_, store := testutil.NewTestDB(t)
	health := handlers.NewHealth(nil, store)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)
	require.NoError(t, health.Check(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["fallback"])
	assert.NotContains(t, body, "primary")
}
