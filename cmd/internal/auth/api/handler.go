package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"aya/cmd/identity"
	"aya/cmd/internal/auth/session"
)

// Credentials is the credential store as seen by the HTTP layer.
type Credentials interface {
	Enroll(ctx context.Context, in identity.EnrollInput) error
	Verify(ctx context.Context, username, password string) (bool, error)
}

// Sessions is the session service as seen by the HTTP layer.
type Sessions interface {
	Start(ctx context.Context, username, deviceID string, now time.Time) (session.Issued, error)
	Authenticate(ctx context.Context, token string, now time.Time) (session.Claims, error)
	End(ctx context.Context, claims session.Claims) (bool, error)
}

// Observer receives auth outcomes for metrics.
type Observer interface {
	ObserveLogin(result string)
	ObserveEnroll(result string)
}

type noopObserver struct{}

func (noopObserver) ObserveLogin(string)  {}
func (noopObserver) ObserveEnroll(string) {}

// Handler wires HTTP auth endpoints to the credential store and session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	creds    Credentials
	sessions Sessions
	obs      Observer
	throttle *throttle

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) HandlerOption {
	return func(h *Handler) {
		if h == nil || obs == nil {
			return
		}
		h.obs = obs
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, creds Credentials, sessions Sessions, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if creds == nil || sessions == nil {
		return nil, errors.New("auth: nil credentials or sessions")
	}
	cfg = cfg.normalize()

	h := &Handler{
		log:      log,
		cfg:      cfg,
		creds:    creds,
		sessions: sessions,
		obs:      noopObserver{},
		throttle: newThrottle(cfg),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/enroll", h.handleEnroll)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/me", h.handleMe)
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", msgMissingLogin)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if ok, retryAfter := h.throttle.allowAttempt(ip, now); !ok {
		h.auditRateLimited(ctx, "login", req.Username, ip, ua, retryAfter)
		h.obs.ObserveLogin("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}
	if locked, retryAfter := h.throttle.lockedOut(req.Username, now); locked {
		h.auditRateLimited(ctx, "login", req.Username, ip, ua, retryAfter)
		h.obs.ObserveLogin("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	ok, err := h.creds.Verify(ctx, req.Username, req.Password)
	if err != nil {
		h.log.Error("auth.login.verify.fail", "err", err)
		h.obs.ObserveLogin("error")
		writeUnavailable(w)
		return
	}
	if !ok {
		h.throttle.loginFailed(req.Username, now)
		h.auditLoginFailed(ctx, req.Username, ip, ua, "invalid_credentials")
		h.obs.ObserveLogin("failed")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidLogin)
		return
	}

	deviceID := h.resolveDeviceID(w, r, now)

	issued, err := h.sessions.Start(ctx, req.Username, deviceID, now)
	if err != nil {
		h.log.Error("auth.login.claim.fail", "err", err)
		h.obs.ObserveLogin("error")
		writeUnavailable(w)
		return
	}
	h.throttle.loginSucceeded(req.Username)

	csrf, err := h.setSessionCookies(w, issued.Token, issued.ExpiresAt)
	if err != nil {
		h.log.Error("auth.login.web_cookie.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	resp := loginResponse{
		Username:  req.Username,
		DeviceID:  deviceID,
		Displaced: issued.Displaced,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		CSRFToken: csrf,
	}
	if issued.Displaced {
		resp.Notice = msgDisplacedNotice
		h.auditLoginDisplaced(ctx, req.Username, issued.PriorDeviceID, deviceID, ip, ua)
	}
	h.auditLoginSuccess(ctx, req.Username, deviceID, ip, ua)
	h.obs.ObserveLogin("success")

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	var req enrollRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if ok, retryAfter := h.throttle.allowAttempt(ip, now); !ok {
		h.auditRateLimited(ctx, "enroll", req.Username, ip, ua, retryAfter)
		h.obs.ObserveEnroll("rate_limited")
		writeRateLimited(w, retryAfter)
		return
	}

	confirm := req.ConfirmPassword
	err := h.creds.Enroll(ctx, identity.EnrollInput{
		AdminSecret: req.AdminSecret,
		Username:    req.Username,
		Password:    req.Password,
		Confirm:     &confirm,
	})
	if err != nil {
		status, code, msg := h.enrollError(err)
		if status == http.StatusServiceUnavailable {
			h.log.Error("auth.enroll.fail", "err", err)
		}
		h.auditEnroll(ctx, code, req.Username, ip, ua)
		h.obs.ObserveEnroll(code)
		writeError(w, status, code, msg)
		return
	}

	h.auditEnroll(ctx, "success", req.Username, ip, ua)
	h.obs.ObserveEnroll("success")
	writeJSON(w, http.StatusCreated, messageResponse{Message: msgEnrolled})
}

// enrollError maps credential-store rejections to HTTP responses.
func (h *Handler) enrollError(err error) (int, string, string) {
	switch {
	case errors.Is(err, identity.ErrEnrollmentDisabled):
		return http.StatusForbidden, "enrollment_disabled", msgEnrollDisabled
	case errors.Is(err, identity.ErrAdminSecret):
		return http.StatusForbidden, "invalid_admin_secret", msgInvalidAdmin
	case errors.Is(err, identity.ErrMissingField):
		return http.StatusBadRequest, "missing_fields", msgMissingFields
	case errors.Is(err, identity.ErrPasswordMismatch):
		return http.StatusBadRequest, "password_mismatch", msgPasswordMismatch
	case errors.Is(err, identity.ErrPasswordTooShort):
		return http.StatusBadRequest, "password_too_short", fmt.Sprintf(msgPasswordShortTmpl, h.cfg.PasswordMinLength)
	case errors.Is(err, identity.ErrPasswordTooLong):
		return http.StatusBadRequest, "password_too_long", msgPasswordTooLong
	case errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest, "weak_password", msgWeakPassword
	case errors.Is(err, identity.ErrInvalidUsername):
		return http.StatusBadRequest, "invalid_username", msgInvalidUsername
	case identity.IsConflict(err):
		return http.StatusConflict, "username_exists", msgUsernameExists
	default:
		return http.StatusServiceUnavailable, "service_unavailable", msgUnavailable
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.authenticate(r)
	switch {
	case err == nil, errors.Is(err, session.ErrDisplaced):
		// A displaced device may still clear its own cookies; End will not touch the new binding.
	case errors.Is(err, errCSRF):
		writeError(w, http.StatusForbidden, "csrf_invalid", msgCSRFInvalid)
		return
	case errors.Is(err, session.ErrUnavailable):
		h.log.Error("auth.logout.fail", "err", err)
		writeUnavailable(w)
		return
	default:
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", msgUnauthorized)
		return
	}

	ctx := r.Context()
	released, err := h.sessions.End(ctx, claims)
	if err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeUnavailable(w)
		return
	}

	h.auditLogout(ctx, claims.Username, claims.DeviceID, released, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Username:  claims.Username,
		DeviceID:  claims.DeviceID,
		ExpiresAt: claims.ExpiresAt,
	})
}

// ---- helpers ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
