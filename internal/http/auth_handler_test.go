package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"login-system/internal/domain"
	"login-system/internal/repository"
	"login-system/internal/service"
)

type brokenSessionRepo struct{}

func (brokenSessionRepo) Create(context.Context, domain.Session) (string, error) {
	return "", domain.ErrStorageUnavailable
}

func (brokenSessionRepo) Lookup(context.Context, string) (domain.Session, error) {
	return domain.Session{}, domain.ErrStorageUnavailable
}

func (brokenSessionRepo) Destroy(context.Context, string) error {
	return domain.ErrStorageUnavailable
}

type brokenCredentialRepo struct{}

func (brokenCredentialRepo) FindByUsername(context.Context, string) (domain.Credential, error) {
	return domain.Credential{}, domain.ErrStorageUnavailable
}

func (brokenCredentialRepo) Create(context.Context, domain.Credential) error {
	return domain.ErrStorageUnavailable
}

type testServer struct {
	router  *gin.Engine
	cookie  *SessionCookie
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, creds repository.CredentialRepository, sessions repository.SessionRepository) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	authSvc := service.NewAuthService(logger, creds, sessions, service.NewBcryptHasher(bcrypt.MinCost), time.Hour)
	cookie := NewSessionCookie("connect.sid", "test-secret", time.Hour, false)
	h := NewAuthHandler(logger, authSvc, cookie)
	return &testServer{
		router: NewRouter(logger, h, authSvc, cookie, nil, ""),
		cookie: cookie,
	}
}

func newMemoryTestServer(t *testing.T) *testServer {
	return newTestServer(t, repository.NewMemoryCredentialRepository(), repository.NewMemorySessionRepository())
}

// do envia el request con las cookies actuales y guarda las que devuelva el server.
func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		s.setCookie(c)
	}
	return rec
}

func (s *testServer) setCookie(c *http.Cookie) {
	kept := s.cookies[:0]
	for _, existing := range s.cookies {
		if existing.Name != c.Name {
			kept = append(kept, existing)
		}
	}
	s.cookies = kept
	if c.MaxAge >= 0 && c.Value != "" {
		s.cookies = append(s.cookies, c)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json body %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["message"]; got != message {
		t.Fatalf("expected message %q, got %v", message, got)
	}
}

func TestAuthFlow_Scenario(t *testing.T) {
	s := newMemoryTestServer(t)
	creds := map[string]string{"username": "alice", "password": "secret1"}

	expectMessage(t, s.do(http.MethodPost, "/register", creds), http.StatusOK, "Registration successful! Please log in.")
	expectMessage(t, s.do(http.MethodPost, "/register", creds), http.StatusBadRequest, "Username already in use. Please choose another one.")

	expectMessage(t, s.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"}),
		http.StatusUnauthorized, "Invalid username or password")
	if len(s.cookies) != 0 {
		t.Fatalf("failed login must not set a session cookie")
	}

	rec := s.do(http.MethodPost, "/login", creds)
	expectMessage(t, rec, http.StatusOK, "Login successful!")
	if len(s.cookies) != 1 || s.cookies[0].Name != "connect.sid" || !s.cookies[0].HttpOnly {
		t.Fatalf("expected httpOnly session cookie, got %+v", s.cookies)
	}
	if strings.Contains(rec.Body.String(), s.cookies[0].Value) {
		t.Fatalf("session token must not appear in the response body")
	}

	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusOK, "Welcome to the dashboard!")

	stale := append([]*http.Cookie(nil), s.cookies...)
	expectMessage(t, s.do(http.MethodPost, "/logout", nil), http.StatusOK, "Logout successful!")
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusUnauthorized, "Unauthorized")

	// Reenviar la cookie vieja tampoco da acceso.
	s.cookies = stale
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusUnauthorized, "Unauthorized")
}

func TestRegister_ValidationErrors(t *testing.T) {
	s := newMemoryTestServer(t)

	rec := s.do(http.MethodPost, "/register", map[string]string{"username": "  ", "password": "12345"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 2 {
		t.Fatalf("expected two field errors, got %v", body)
	}
	first := errs[0].(map[string]any)
	second := errs[1].(map[string]any)
	if first["path"] != "username" || first["msg"] != "Username is required" || first["location"] != "body" || first["type"] != "field" {
		t.Fatalf("unexpected username error %v", first)
	}
	if second["path"] != "password" || second["msg"] != "Password must be at least 6 characters long" {
		t.Fatalf("unexpected password error %v", second)
	}
	if _, leaked := second["value"]; leaked {
		t.Fatalf("password value must not be echoed back")
	}
}

func TestRegister_PasswordBoundary(t *testing.T) {
	s := newMemoryTestServer(t)

	rec := s.do(http.MethodPost, "/register", map[string]string{"username": "bob", "password": "12345"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for 5 characters, got %d", rec.Code)
	}
	rec = s.do(http.MethodPost, "/register", map[string]string{"username": "bob", "password": "123456"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for 6 characters, got %d", rec.Code)
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	s := newMemoryTestServer(t)

	rec := s.do(http.MethodPost, "/register", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["errors"]; !ok {
		t.Fatalf("expected validation errors for malformed body")
	}

	expectMessage(t, s.do(http.MethodPost, "/login", "{not json"), http.StatusUnauthorized, "Invalid username or password")
}

func TestLogin_UnknownUser(t *testing.T) {
	s := newMemoryTestServer(t)
	expectMessage(t, s.do(http.MethodPost, "/login", map[string]string{"username": "ghost", "password": "secret1"}),
		http.StatusUnauthorized, "Invalid username or password")
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	s := newMemoryTestServer(t)
	creds := map[string]string{"username": "alice", "password": "secret1"}
	s.do(http.MethodPost, "/register", creds)

	s.do(http.MethodPost, "/login", creds)
	first := append([]*http.Cookie(nil), s.cookies...)

	expectMessage(t, s.do(http.MethodPost, "/login", creds), http.StatusOK, "Login successful!")
	if s.cookies[0].Value == first[0].Value {
		t.Fatalf("expected a new session cookie")
	}
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusOK, "Welcome to the dashboard!")

	s.cookies = first
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusUnauthorized, "Unauthorized")
}

func TestLogout_WithoutSession(t *testing.T) {
	s := newMemoryTestServer(t)
	expectMessage(t, s.do(http.MethodPost, "/logout", nil), http.StatusOK, "Logout successful!")
	expectMessage(t, s.do(http.MethodPost, "/logout", nil), http.StatusOK, "Logout successful!")
}

func TestDashboard_RejectsForgedCookie(t *testing.T) {
	s := newMemoryTestServer(t)
	other := NewSessionCookie("connect.sid", "other-secret", time.Hour, false)
	forged, err := other.Encode(strings.Repeat("a", 64))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s.cookies = []*http.Cookie{{Name: "connect.sid", Value: forged}}
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusUnauthorized, "Unauthorized")

	s.cookies = []*http.Cookie{{Name: "connect.sid", Value: "garbage"}}
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusUnauthorized, "Unauthorized")
}

func TestStorageFailures(t *testing.T) {
	s := newTestServer(t, brokenCredentialRepo{}, brokenSessionRepo{})
	creds := map[string]string{"username": "alice", "password": "secret1"}

	expectMessage(t, s.do(http.MethodPost, "/register", creds), http.StatusInternalServerError, "Registration failed. Please try again later.")
	expectMessage(t, s.do(http.MethodPost, "/login", creds), http.StatusInternalServerError, "Login failed. Please try again later.")

	token, err := s.cookie.Encode(strings.Repeat("b", 64))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s.cookies = []*http.Cookie{{Name: "connect.sid", Value: token}}
	expectMessage(t, s.do(http.MethodGet, "/dashboard", nil), http.StatusInternalServerError, "Internal server error")
	expectMessage(t, s.do(http.MethodPost, "/logout", nil), http.StatusOK, "Logout successful!")
}

func TestLogin_SessionStoreFailure(t *testing.T) {
	creds := repository.NewMemoryCredentialRepository()
	s := newTestServer(t, creds, brokenSessionRepo{})
	body := map[string]string{"username": "alice", "password": "secret1"}

	expectMessage(t, s.do(http.MethodPost, "/register", body), http.StatusOK, "Registration successful! Please log in.")
	expectMessage(t, s.do(http.MethodPost, "/login", body), http.StatusInternalServerError, "Login failed. Please try again later.")
	if len(s.cookies) != 0 {
		t.Fatalf("no cookie expected when the session could not be stored")
	}
}

func TestDashboard_DirectHandlerWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(zap.NewNop(), nil, nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	h.Dashboard(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
