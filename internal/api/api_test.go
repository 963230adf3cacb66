package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/controller"
	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/storage/memory"
	"github.com/rryowa/authsession/internal/util"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct horse"
)

var t0 = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Storage
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()

	store := memory.NewStorage(log)
	if err := store.PutUser(models.User{
		ID:            "user-1",
		Email:         testEmail,
		Role:          "user",
		Status:        models.UserStatusActive,
		EmailVerified: true,
	}, testPassword); err != nil {
		t.Fatalf("put user: %v", err)
	}

	tokens := service.NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   30 * 24 * time.Hour,
	})
	auth := service.NewAuthService(tokens, store, memory.NewActivityStore(), nil, util.DefaultSessionConfig(), log)

	ts := &testServer{t: t, store: store, now: t0}
	auth.SetClock(func() time.Time { return ts.now })

	cookies := &util.CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode, Path: "/"}
	a := NewAPI(controller.NewController(log, auth, cookies), auth, nil, &util.ServerConfig{ServerAddr: "127.0.0.1:0"}, log, nil)
	handler, err := a.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ts.handler = handler
	return ts
}

type request struct {
	method  string
	path    string
	body    string
	bearer  string
	cookies []*http.Cookie
}

func (ts *testServer) do(r request) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	if r.body != "" {
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(r.method, r.path, nil)
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login() (models.TokenPairResponse, []*http.Cookie) {
	ts.t.Helper()
	rec := ts.do(request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   `{"email":"` + testEmail + `","password":"` + testPassword + `"}`,
	})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return decode[models.TokenPairResponse](ts.t, rec), rec.Result().Cookies()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if got := decode[models.ErrorResponse](t, rec); got.Code != code || got.Message == "" {
		t.Fatalf("error body = %+v, want code %s", got, code)
	}
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsCookies(t *testing.T) {
	ts := newTestServer(t)
	body, cookies := ts.login()

	if !body.Success || body.AccessToken == "" || body.RefreshToken == "" || body.User.Email != testEmail {
		t.Fatalf("unexpected body %+v", body)
	}

	for name, maxAge := range map[string]int{
		models.CookieRefreshToken: int((30 * 24 * time.Hour).Seconds()),
		models.CookieAccessToken:  int((15 * time.Minute).Seconds()),
	} {
		c := cookieByName(cookies, name)
		if c == nil {
			t.Fatalf("cookie %s not set", name)
		}
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie %s flags: %+v", name, c)
		}
		if c.MaxAge != maxAge {
			t.Fatalf("cookie %s max-age = %d, want %d", name, c.MaxAge, maxAge)
		}
	}
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(request{method: http.MethodPost, path: "/api/auth/login", body: `{"email":"alice@example.com"}`})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/login", body: `{"email":"alice@example.com","password":"nope"}`})
	expectError(t, rec, http.StatusUnauthorized, service.CodeInvalidCredentials)
}

func TestRefreshFromCookieAndBody(t *testing.T) {
	ts := newTestServer(t)
	login, cookies := ts.login()

	rec := ts.do(request{
		method:  http.MethodPost,
		path:    "/api/auth/refresh",
		cookies: []*http.Cookie{cookieByName(cookies, models.CookieRefreshToken)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie refresh: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[models.TokenPairResponse](t, rec); got.RefreshToken != login.RefreshToken {
		t.Fatal("refresh under the floor must return the current refresh token")
	}

	ts.now = t0.Add(5 * time.Hour)
	rec = ts.do(request{
		method: http.MethodPost,
		path:   "/api/auth/refresh",
		body:   `{"refreshToken":"` + login.RefreshToken + `"}`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("body refresh: %d %s", rec.Code, rec.Body.String())
	}
	rotated := decode[models.TokenPairResponse](t, rec)
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatal("refresh past the floor must rotate")
	}
	if c := cookieByName(rec.Result().Cookies(), models.CookieRefreshToken); c == nil || c.Value != rotated.RefreshToken {
		t.Fatal("rotated refresh token must be set as cookie")
	}
}

func TestRefreshRejections(t *testing.T) {
	ts := newTestServer(t)
	login, _ := ts.login()

	rec := ts.do(request{method: http.MethodPost, path: "/api/auth/refresh"})
	expectError(t, rec, http.StatusUnauthorized, service.CodeNoToken)

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"garbage"}`})
	expectError(t, rec, http.StatusUnauthorized, service.CodeTokenInvalid)
	if c := cookieByName(rec.Result().Cookies(), models.CookieRefreshToken); c == nil || c.MaxAge >= 0 {
		t.Fatal("rejected refresh must clear the refresh cookie")
	}

	u, _ := ts.store.GetUserByID(t.Context(), "user-1")
	u.Status = models.UserStatusBanned
	u.StatusReason = "spam"
	ts.store.UpdateUser(*u)

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"` + login.RefreshToken + `"}`})
	expectError(t, rec, http.StatusForbidden, service.CodeAccountBanned)
	if msg := decode[models.ErrorResponse](t, rec).Message; !strings.Contains(msg, "spam") {
		t.Fatalf("ban reason missing from %q", msg)
	}

	ts.store.RemoveUser("user-1")
	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"` + login.RefreshToken + `"}`})
	expectError(t, rec, http.StatusUnauthorized, service.CodeAccountDeleted)
}

func TestProtectedRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(request{method: http.MethodGet, path: "/api/auth/sessions"})
	expectError(t, rec, http.StatusUnauthorized, service.CodeNoToken)

	rec = ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", bearer: "garbage"})
	expectError(t, rec, http.StatusUnauthorized, service.CodeTokenInvalid)

	login, cookies := ts.login()
	rec = ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", bearer: login.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("list sessions: %d %s", rec.Code, rec.Body.String())
	}
	sessions := decode[[]models.SessionView](t, rec)
	if len(sessions) != 1 || !sessions[0].Current {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	// The access cookie works in place of the header.
	rec = ts.do(request{
		method:  http.MethodPost,
		path:    "/api/auth/audit",
		cookies: []*http.Cookie{cookieByName(cookies, models.CookieAccessToken)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: %d %s", rec.Code, rec.Body.String())
	}
	if report := decode[service.AuditReport](t, rec); !report.Valid {
		t.Fatalf("own token audit: %+v", report)
	}

	ts.now = t0.Add(16 * time.Minute)
	rec = ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", bearer: login.AccessToken})
	expectError(t, rec, http.StatusUnauthorized, service.CodeTokenExpired)
}

func TestIdleTimeoutRevokesRefreshValidSession(t *testing.T) {
	ts := newTestServer(t)
	_, cookies := ts.login()
	refreshCookie := cookieByName(cookies, models.CookieRefreshToken)

	rec := ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", cookies: cookies})
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d %s", rec.Code, rec.Body.String())
	}

	// Idle on REST for 40 minutes; refresh still works.
	ts.now = t0.Add(40 * time.Minute)
	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{refreshCookie}})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh while idle: %d %s", rec.Code, rec.Body.String())
	}
	fresh := decode[models.TokenPairResponse](t, rec)

	rec = ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", bearer: fresh.AccessToken})
	expectError(t, rec, http.StatusUnauthorized, service.CodeIdleTimeout)

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{refreshCookie}})
	expectError(t, rec, http.StatusUnauthorized, service.CodeSessionNotFound)
}

func TestLogoutClearsCookiesAndRevokes(t *testing.T) {
	ts := newTestServer(t)
	login, _ := ts.login()

	rec := ts.do(request{method: http.MethodPost, path: "/api/auth/logout", bearer: login.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{models.CookieRefreshToken, models.CookieAccessToken} {
		if c := cookieByName(rec.Result().Cookies(), name); c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"` + login.RefreshToken + `"}`})
	expectError(t, rec, http.StatusUnauthorized, service.CodeSessionNotFound)
}

func TestRevokeOtherSession(t *testing.T) {
	ts := newTestServer(t)
	mine, _ := ts.login()
	other, _ := ts.login()

	rec := ts.do(request{method: http.MethodGet, path: "/api/auth/sessions", bearer: mine.AccessToken})
	var otherID string
	for _, s := range decode[[]models.SessionView](t, rec) {
		if !s.Current {
			otherID = s.ID
		}
	}
	if otherID == "" {
		t.Fatal("second session not listed")
	}

	rec = ts.do(request{method: http.MethodDelete, path: "/api/auth/sessions/" + otherID, bearer: mine.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"` + other.RefreshToken + `"}`})
	expectError(t, rec, http.StatusUnauthorized, service.CodeSessionNotFound)
	rec = ts.do(request{method: http.MethodPost, path: "/api/auth/refresh", body: `{"refreshToken":"` + mine.RefreshToken + `"}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("own session must survive: %d", rec.Code)
	}
}

func TestPingAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(request{method: http.MethodGet, path: "/api/ping"}); rec.Code != http.StatusOK {
		t.Fatalf("ping: %d", rec.Code)
	}
	ts.login()
	rec := ts.do(request{method: http.MethodGet, path: "/metrics"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "authsession_") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestSecuredRoutesFollowDocument(t *testing.T) {
	swagger, err := controller.GetSwagger()
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	secured := securedRoutes(swagger)
	e := echo.New()

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodGet, "/api/ping", false},
		{http.MethodPost, "/api/auth/login", false},
		{http.MethodPost, "/api/auth/refresh", false},
		{http.MethodPost, "/api/auth/logout", true},
		{http.MethodPost, "/api/auth/logout-all", true},
		{http.MethodGet, "/api/auth/sessions", true},
		{http.MethodDelete, "/api/auth/sessions/:id", true},
		{http.MethodPost, "/api/auth/audit", true},
		{http.MethodGet, "/metrics", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(tt.method, "/", nil), httptest.NewRecorder())
			c.SetPath(tt.path)
			if got := secured(c); got != tt.want {
				t.Fatalf("secured = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublicRoutesIgnoreBadBearer(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(request{method: http.MethodGet, path: "/api/ping", bearer: "garbage"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ping with a bad bearer: %d %s", rec.Code, rec.Body.String())
	}
}
