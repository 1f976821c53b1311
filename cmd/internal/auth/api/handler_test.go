package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aya/cmd/identity"
	"aya/cmd/internal/auth/session"
	"aya/cmd/internal/docstore"
	"aya/cmd/security/password"
)

const testAdminSecret = "admin-secret"

type testEnv struct {
	h      *Handler
	mux    *http.ServeMux
	store  *identity.Store
	logBuf *bytes.Buffer
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	pw := password.DefaultConfig()
	pw.Params.MemoryKiB = 8 * 1024
	pw.Params.Iterations = 1
	pw.Params.Parallelism = 1

	store, err := identity.NewStore(docstore.NewMemoryDocument("credentials"),
		identity.WithAdminSecret(testAdminSecret),
		identity.WithPasswordConfig(pw),
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Seed(context.Background(), "alice", "pw12"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	reg, err := session.NewRegistry(docstore.NewMemoryDocument("sessions"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tokens, err := session.NewPasetoV4PublicManager(session.DefaultConfig())
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	svc, err := session.NewService(reg, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cfg := DefaultConfig()
	cfg.CookieSecure = false
	if mutate != nil {
		mutate(&cfg)
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h, err := NewHandler(log, store, svc, cfg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return &testEnv{h: h, mux: mux, store: store, logBuf: &buf}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.7:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mod != nil {
		mod(req)
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withDevice(id string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("X-Device-ID", id) }
}

func withBearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func login(t *testing.T, e *testEnv, device string) loginResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, withDevice(device))
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp
}

func TestLogin_MissingFields(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := decodeError(t, rr); got.Message != "Please enter both username and password" {
		t.Fatalf("message=%q", got.Message)
	}
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t, nil)

	for _, req := range []loginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "pw12"},
	} {
		rr := e.do(t, http.MethodPost, "/auth/login", req, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status=%d", rr.Code)
		}
		got := decodeError(t, rr)
		if got.Code != "invalid_credentials" || got.Message != "Invalid username or password" {
			t.Fatalf("unexpected error: %+v", got)
		}
	}
	if !strings.Contains(e.logBuf.String(), "audit.auth.login.failed") {
		t.Fatalf("expected failed-login audit event")
	}
	if strings.Contains(e.logBuf.String(), "wrong") {
		t.Fatalf("password leaked into logs")
	}
}

func TestLogin_MintsDeviceCookieAndSetsSession(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	dev := cookieByName(rr, "aya_device")
	if dev == nil || dev.Value == "" || !dev.HttpOnly {
		t.Fatalf("expected HttpOnly device cookie, got %+v", dev)
	}
	sess := cookieByName(rr, "aya_session")
	if sess == nil || !sess.HttpOnly {
		t.Fatalf("expected HttpOnly session cookie, got %+v", sess)
	}
	csrf := cookieByName(rr, "aya_csrf")
	if csrf == nil || csrf.HttpOnly {
		t.Fatalf("expected script-readable csrf cookie, got %+v", csrf)
	}

	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DeviceID != dev.Value || resp.Displaced || resp.Notice != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.CSRFToken != csrf.Value {
		t.Fatalf("csrf token in body must match cookie")
	}
}

func TestLogin_DisplacesPriorDevice(t *testing.T) {
	e := newTestEnv(t, nil)

	first := login(t, e, "deviceA")
	if first.Displaced {
		t.Fatalf("first login must not displace")
	}

	again := login(t, e, "deviceA")
	if again.Displaced {
		t.Fatalf("same device must not be displaced")
	}

	second := login(t, e, "deviceB")
	if !second.Displaced || second.Notice != "Your previous session has been closed." {
		t.Fatalf("expected displacement notice, got %+v", second)
	}

	rr := e.do(t, http.MethodGet, "/me", nil, withBearer(first.Token))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("displaced /me status=%d", rr.Code)
	}
	if got := decodeError(t, rr); got.Code != "session_displaced" {
		t.Fatalf("code=%q", got.Code)
	}

	rr = e.do(t, http.MethodGet, "/me", nil, withBearer(second.Token))
	if rr.Code != http.StatusOK {
		t.Fatalf("active /me status=%d", rr.Code)
	}
	var me meResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "alice" || me.DeviceID != "deviceB" {
		t.Fatalf("unexpected me: %+v", me)
	}
}

func TestLogout_CookieRequiresCSRF(t *testing.T) {
	e := newTestEnv(t, nil)
	resp := login(t, e, "deviceA")

	withCookies := func(csrfHeader string) func(*http.Request) {
		return func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "aya_session", Value: resp.Token})
			r.AddCookie(&http.Cookie{Name: "aya_csrf", Value: resp.CSRFToken})
			if csrfHeader != "" {
				r.Header.Set("X-CSRF-Token", csrfHeader)
			}
		}
	}

	rr := e.do(t, http.MethodPost, "/auth/logout", nil, withCookies(""))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rr.Code)
	}

	// Safe methods need no CSRF header.
	rr = e.do(t, http.MethodGet, "/me", nil, withCookies(""))
	if rr.Code != http.StatusOK {
		t.Fatalf("cookie /me status=%d", rr.Code)
	}

	rr = e.do(t, http.MethodPost, "/auth/logout", nil, withCookies(resp.CSRFToken))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d body=%s", rr.Code, rr.Body.String())
	}
	if c := cookieByName(rr, "aya_session"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected session cookie cleared, got %+v", c)
	}

	rr = e.do(t, http.MethodGet, "/me", nil, withBearer(resp.Token))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("after logout /me status=%d", rr.Code)
	}
}

func TestLogout_DisplacedDeviceKeepsNewSession(t *testing.T) {
	e := newTestEnv(t, nil)
	first := login(t, e, "deviceA")
	second := login(t, e, "deviceB")

	rr := e.do(t, http.MethodPost, "/auth/logout", nil, withBearer(first.Token))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("displaced logout status=%d", rr.Code)
	}

	rr = e.do(t, http.MethodGet, "/me", nil, withBearer(second.Token))
	if rr.Code != http.StatusOK {
		t.Fatalf("new device must stay logged in, status=%d", rr.Code)
	}
}

func TestEnroll_StatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		req      enrollRequest
		wantCode int
		wantErr  string
		wantMsg  string
	}{
		{
			name:     "bad_admin_secret",
			req:      enrollRequest{AdminSecret: "nope", Username: "bob", Password: "pw12", ConfirmPassword: "pw12"},
			wantCode: http.StatusForbidden,
			wantErr:  "invalid_admin_secret",
			wantMsg:  "Invalid admin secret key",
		},
		{
			name:     "missing",
			req:      enrollRequest{AdminSecret: testAdminSecret, Username: "bob"},
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_fields",
			wantMsg:  "Please fill all fields",
		},
		{
			name:     "mismatch",
			req:      enrollRequest{AdminSecret: testAdminSecret, Username: "bob", Password: "pw12", ConfirmPassword: "pw21"},
			wantCode: http.StatusBadRequest,
			wantErr:  "password_mismatch",
			wantMsg:  "Passwords don't match",
		},
		{
			name:     "too_short",
			req:      enrollRequest{AdminSecret: testAdminSecret, Username: "bob", Password: "abc", ConfirmPassword: "abc"},
			wantCode: http.StatusBadRequest,
			wantErr:  "password_too_short",
			wantMsg:  "Password must be at least 4 characters",
		},
		{
			name:     "duplicate",
			req:      enrollRequest{AdminSecret: testAdminSecret, Username: "alice", Password: "pw99", ConfirmPassword: "pw99"},
			wantCode: http.StatusConflict,
			wantErr:  "username_exists",
			wantMsg:  "Username already exists!",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			rr := e.do(t, http.MethodPost, "/auth/enroll", tc.req, nil)
			if rr.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.wantCode, rr.Body.String())
			}
			got := decodeError(t, rr)
			if got.Code != tc.wantErr || got.Message != tc.wantMsg {
				t.Fatalf("unexpected error: %+v", got)
			}
		})
	}
}

func TestEnroll_SuccessThenLogin(t *testing.T) {
	e := newTestEnv(t, nil)

	rr := e.do(t, http.MethodPost, "/auth/enroll", enrollRequest{
		AdminSecret: testAdminSecret, Username: "bob", Password: "pw34", ConfirmPassword: "pw34",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var msg messageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Message != "User created successfully! Now you can login!" {
		t.Fatalf("message=%q", msg.Message)
	}

	rr = e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "bob", Password: "pw34"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d", rr.Code)
	}
}

func TestLogin_AttemptWindowPerIP(t *testing.T) {
	e := newTestEnv(t, func(c *Config) {
		c.AttemptsMax = 2
		c.AttemptsWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "wrong"}, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}
	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestLogin_ProgressiveLockoutPerUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEnv(t, func(c *Config) {
		c.LockoutShortThreshold = 3
		c.LockoutShortDuration = 5 * time.Minute
	})
	e.h.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "wrong"}, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}

	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected lockout, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "300" {
		t.Fatalf("Retry-After=%q", got)
	}

	now = now.Add(6 * time.Minute)
	rr = e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected lockout to clear, got %d", rr.Code)
	}
}

func TestStorageFailureIsServiceUnavailable(t *testing.T) {
	reg, err := session.NewRegistry(docstore.NewMemoryDocument("sessions"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tokens, err := session.NewPasetoV4PublicManager(session.DefaultConfig())
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc, err := session.NewService(reg, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), brokenCredentials{}, svc, DefaultConfig())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	e := &testEnv{h: h, mux: mux}

	rr := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw12"}, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("login status=%d", rr.Code)
	}
	rr = e.do(t, http.MethodPost, "/auth/enroll", enrollRequest{AdminSecret: "x", Username: "a", Password: "pw12", ConfirmPassword: "pw12"}, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("enroll status=%d", rr.Code)
	}
	if got := decodeError(t, rr); got.Code != "service_unavailable" {
		t.Fatalf("code=%q", got.Code)
	}
}

func TestLogin_BodyDecoding(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.MaxBodyBytes = 64 })

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"oversized", `{"username":"alice","password":"` + strings.Repeat("x", 128) + `"}`, http.StatusRequestEntityTooLarge, "request_too_large"},
		{"trailing", `{"username":"alice","password":"pw12"} {}`, http.StatusBadRequest, "invalid_json"},
		{"unknown_field", `{"username":"alice","password":"pw12","remember":true}`, http.StatusBadRequest, "invalid_json"},
		{"not_json", `username=alice`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body))
			req.RemoteAddr = "203.0.113.9:5555"
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			e.mux.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.status, rr.Body.String())
			}
			if got := decodeError(t, rr).Code; got != tc.code {
				t.Fatalf("code=%q want %q", got, tc.code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, nil)
	for _, path := range []string{"/auth/login", "/auth/enroll", "/auth/logout"} {
		if rr := e.do(t, http.MethodGet, path, nil, nil); rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

type brokenCredentials struct{}

func (brokenCredentials) Enroll(context.Context, identity.EnrollInput) error {
	return identity.OpError{Op: "identity.Enroll", Kind: identity.ErrUnavailable}
}

func (brokenCredentials) Verify(context.Context, string, string) (bool, error) {
	return false, errors.New("disk on fire")
}
