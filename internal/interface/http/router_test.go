package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/domain/recipe"
	"github.com/jchen-dev/recipebox/internal/infra/config"
	"github.com/jchen-dev/recipebox/internal/infra/loginlimit"
	"github.com/jchen-dev/recipebox/internal/infra/reciperepo"
	"github.com/jchen-dev/recipebox/internal/infra/userrepo"
)

type testEnv struct {
	ts      *httptest.Server
	cookies CookieConfig
	keyring *auth.Keyring
	repo    *userrepo.MemoryRepository
	hasher  *auth.Hasher
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Secure cookies never make it back through a cookie jar over plain http,
// so the test server runs with cookieSecure off.
func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173"},
			RateLimit:      config.RateLimitConfig{Enabled: false},
		},
		Auth: config.AuthConfig{
			AccessCookie:    "rb_access",
			RefreshCookie:   "rb_refresh",
			CSRFCookie:      "rb_csrf",
			CSRFHeader:      "X-CSRF-Token",
			CookieSecure:    false,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	logger := newTestLogger()

	keyring, err := auth.NewKeyring([]auth.SigningKey{{Version: "v1", Secret: "test-secret"}}, "v1")
	require.NoError(t, err)
	hasher := auth.NewHasher(auth.HashParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	repo := userrepo.NewMemoryRepository()
	limiter := loginlimit.NewMemoryStore(10, time.Minute)

	authSvc := auth.NewService(auth.Config{
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}, repo, keyring, hasher, limiter, logger)

	cookies := NewCookieConfig(cfg.Auth)
	authH := NewAuthHandler(authSvc, cookies, logger)
	recipeSvc := recipe.NewService(reciperepo.NewMemoryRepository(), logger)
	recipeH := NewRecipeHandler(recipeSvc, logger)

	srv := NewRouter(cfg, authSvc, authH, recipeH, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, cookies: cookies, keyring: keyring, repo: repo, hasher: hasher}
}

func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (e *testEnv) baseURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(e.ts.URL)
	require.NoError(t, err)
	return u
}

func (e *testEnv) sessionCookie(t *testing.T, client *http.Client, name string) string {
	t.Helper()
	for _, c := range client.Jar.Cookies(e.baseURL(t)) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// do issues a request through the client, echoing the CSRF cookie into the
// header the way a browser client would.
func (e *testEnv) do(t *testing.T, client *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf := e.sessionCookie(t, client, e.cookies.CSRFName); csrf != "" {
		req.Header.Set(e.cookies.CSRFHeader, csrf)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (e *testEnv) registerAndLogin(t *testing.T, client *http.Client, email, password string) {
	t.Helper()
	resp := e.do(t, client, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": email, "password": password,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(t, client, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": email, "password": password,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_LoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)

	resp := env.do(t, client, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "cook@example.com", "password": "pass1234",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, client, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "cook@example.com", "password": "pass1234",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	byName := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		byName[c.Name] = c
	}
	resp.Body.Close()
	require.Len(t, byName, 3)
	require.True(t, byName[env.cookies.AccessName].HttpOnly)
	require.True(t, byName[env.cookies.RefreshName].HttpOnly)
	require.False(t, byName[env.cookies.CSRFName].HttpOnly)
	for _, c := range byName {
		require.Positive(t, c.MaxAge, "cookie %s", c.Name)
	}

	resp = env.do(t, client, http.MethodGet, "/api/v1/session/verify", nil)
	var verify struct {
		UserID    int64  `json:"userId"`
		Role      string `json:"role"`
		ExpiresAt string `json:"expiresAt"`
	}
	decodeBody(t, resp, &verify)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(1), verify.UserID)
	require.Equal(t, "user", verify.Role)
	expires, err := time.Parse(time.RFC3339, verify.ExpiresAt)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)
}

func TestRouter_RefreshRotatesSession(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	env.registerAndLogin(t, client, "cook@example.com", "pass1234")

	base := env.baseURL(t)
	oldCookies := client.Jar.Cookies(base)
	oldRefresh := env.sessionCookie(t, client, env.cookies.RefreshName)
	require.NotEmpty(t, oldRefresh)

	resp := env.do(t, client, http.MethodPost, "/api/v1/session/refresh", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newRefresh := env.sessionCookie(t, client, env.cookies.RefreshName)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, oldRefresh, newRefresh)

	// A client stuck with the pre-rotation cookies is locked out, and the
	// failed exchange must not touch its cookies.
	stale := env.newClient(t)
	stale.Jar.SetCookies(base, oldCookies)
	resp = env.do(t, stale, http.MethodPost, "/api/v1/session/refresh", nil)
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeInvalidCredentials, body.Code)
	require.Empty(t, resp.Header.Values("Set-Cookie"))

	// The rotated session keeps working.
	resp = env.do(t, client, http.MethodGet, "/api/v1/session/verify", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_AccessTokenClassification(t *testing.T) {
	env := newTestEnv(t)
	base := env.baseURL(t)

	// No cookie at all.
	client := env.newClient(t)
	resp := env.do(t, client, http.MethodGet, "/api/v1/session/verify", nil)
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeInvalidAccessToken, body.Code)

	// Garbage token.
	client = env.newClient(t)
	client.Jar.SetCookies(base, []*http.Cookie{{Name: env.cookies.AccessName, Value: "garbage", Path: "/"}})
	resp = env.do(t, client, http.MethodGet, "/api/v1/session/verify", nil)
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeInvalidAccessToken, body.Code)

	// Properly signed but expired token gets the retryable code.
	expired, err := env.keyring.SignAccessToken(auth.Claims{
		UserID:    1,
		Role:      auth.RoleUser,
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	client = env.newClient(t)
	client.Jar.SetCookies(base, []*http.Cookie{{Name: env.cookies.AccessName, Value: expired, Path: "/"}})
	resp = env.do(t, client, http.MethodGet, "/api/v1/session/verify", nil)
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeExpiredAccessToken, body.Code)
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	env.registerAndLogin(t, client, "cook@example.com", "pass1234")

	resp := env.do(t, env.newClient(t), http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "cook@example.com", "password": "wrong-pass",
	})
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeInvalidCredentials, body.Code)
	require.Equal(t, http.StatusUnauthorized, body.Status)
	require.NotEmpty(t, body.Message)
	require.Empty(t, body.ErrorID)
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	env.registerAndLogin(t, client, "cook@example.com", "pass1234")

	resp := env.do(t, env.newClient(t), http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "cook@example.com", "password": "other-pass",
	})
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, auth.CodeEmailExists, body.Code)
}

func TestRouter_RecipeOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newClient(t)
	env.registerAndLogin(t, owner, "owner@example.com", "pass1234")

	input := map[string]any{
		"title":       "Shakshuka",
		"summary":     "Eggs poached in tomato sauce",
		"ingredients": []string{"eggs", "tomatoes", "paprika"},
		"steps":       []string{"simmer sauce", "poach eggs"},
	}
	resp := env.do(t, owner, http.MethodPost, "/api/v1/recipes", input)
	var created recipe.Recipe
	decodeBody(t, resp, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	require.Equal(t, int64(1), created.OwnerID)

	other := env.newClient(t)
	env.registerAndLogin(t, other, "other@example.com", "pass1234")

	resp = env.do(t, other, http.MethodGet, "/api/v1/recipes/"+created.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	input["title"] = "Stolen Shakshuka"
	resp = env.do(t, other, http.MethodPut, "/api/v1/recipes/"+created.ID, input)
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, auth.CodeInsufficientPermissions, body.Code)

	resp = env.do(t, other, http.MethodDelete, "/api/v1/recipes/"+created.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, owner, http.MethodDelete, "/api/v1/recipes/"+created.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, owner, http.MethodGet, "/api/v1/recipes/"+created.ID, nil)
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, recipe.CodeNotFound, body.Code)
}

func TestRouter_AdminDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newClient(t)
	env.registerAndLogin(t, owner, "owner@example.com", "pass1234")

	resp := env.do(t, owner, http.MethodPost, "/api/v1/recipes", map[string]any{
		"title": "Flatbread", "ingredients": []string{"flour", "water"},
	})
	var created recipe.Recipe
	decodeBody(t, resp, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Normal users never reach the admin surface.
	resp = env.do(t, owner, http.MethodDelete, "/api/v1/admin/recipes/"+created.ID, nil)
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, auth.CodeInsufficientPermissions, body.Code)

	// Admins are seeded out of band, not through the public register route.
	hash, err := env.hasher.Hash("admin-pass")
	require.NoError(t, err)
	_, err = env.repo.Create(context.Background(), "admin@example.com", hash, auth.RoleAdmin)
	require.NoError(t, err)

	admin := env.newClient(t)
	resp = env.do(t, admin, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, admin, http.MethodDelete, "/api/v1/admin/recipes/"+created.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_Logout(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t)
	env.registerAndLogin(t, client, "cook@example.com", "pass1234")

	base := env.baseURL(t)
	preLogout := client.Jar.Cookies(base)

	resp := env.do(t, client, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	for _, c := range resp.Cookies() {
		require.Negative(t, c.MaxAge, "cookie %s should be cleared", c.Name)
	}
	resp.Body.Close()

	// The revoked refresh token is dead even if someone kept a copy.
	stale := env.newClient(t)
	stale.Jar.SetCookies(base, preLogout)
	resp = env.do(t, stale, http.MethodPost, "/api/v1/session/refresh", nil)
	var body errorBody
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeInvalidCredentials, body.Code)
}
