package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"aya/cmd/internal/auth/session"
)

var errCSRF = errors.New("csrf token mismatch")

type claimsKey struct{}

// ClaimsFromContext returns the session claims stored by RequireSession.
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(session.Claims)
	return c, ok
}

// RequireSession admits only requests carrying a token whose device still holds the binding.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := h.requireAuth(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// Authenticate resolves the session of r without writing a response.
// Other transports (the websocket gateway) use it to admit connections.
func (h *Handler) Authenticate(r *http.Request) (session.Claims, error) {
	return h.authenticate(r)
}

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.Claims, bool) {
	claims, err := h.authenticate(r)
	if err == nil {
		return claims, true
	}

	switch {
	case errors.Is(err, session.ErrDisplaced):
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "session_displaced", msgSessionDisplaced)
	case errors.Is(err, errCSRF):
		writeError(w, http.StatusForbidden, "csrf_invalid", msgCSRFInvalid)
	case errors.Is(err, session.ErrUnavailable):
		h.log.Error("auth.session.check.fail", "err", err)
		writeUnavailable(w)
	default:
		writeError(w, http.StatusUnauthorized, "unauthorized", msgUnauthorized)
	}
	return session.Claims{}, false
}

// authenticate prefers a bearer token; the session cookie is accepted with a
// CSRF double-submit check on unsafe methods.
func (h *Handler) authenticate(r *http.Request) (session.Claims, error) {
	token := bearerToken(r)
	if token == "" {
		cookieTok, ok := h.sessionTokenFromCookie(r)
		if !ok {
			return session.Claims{}, session.ErrInvalidToken
		}
		if !isSafeMethod(r.Method) && !h.csrfDoubleSubmitValid(r) {
			return session.Claims{}, errCSRF
		}
		token = cookieTok
	}
	return h.sessions.Authenticate(r.Context(), token, h.now())
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
