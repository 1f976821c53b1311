package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"aya/cmd/identity/ids"
	"aya/cmd/internal/auth/session"
	"aya/cmd/internal/envcfg"
	"aya/cmd/internal/ratelimit"
	v1 "aya/shared/contracts/realtime/v1"

	"github.com/coder/websocket"
)

const (
	wsDefaultSendQueueSize = 16
	wsMinSendQueueSize     = 4

	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute
	wsCloseGrace          = 1 * time.Second

	wsMaxPingFailures = 3

	// Security defaults:
	//
	//   - Origin is required by default.
	//   - Only localhost is allowed by default (secure-by-default for dev).
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"
)

// Authenticator resolves the session behind an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (session.Claims, error)
}

// ActivityChecker reports whether a device still holds its user's binding.
// The gateway uses it on heartbeat ticks to catch displacements made by other instances.
type ActivityChecker interface {
	Active(ctx context.Context, username, deviceID string) (bool, error)
}

// WSGateway is the WebSocket entrypoint for the session channel.
//
// It enforces origin policy, authentication, subprotocol selection, rate limits
// and heartbeats, and registers each connection with the Hub so displacement
// notices reach the right device.
type WSGateway struct {
	log     *slog.Logger
	hub     *Hub
	auth    Authenticator
	checker ActivityChecker

	devInsecure    bool
	originRequired bool
	allowedOrigins []string

	// Derived for websocket.Accept origin checks.
	// Accept() authorizes same-host origins by default, but for cross-origin it requires OriginPatterns.
	originPatterns []string

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	sendQueueSize   int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	rateEvents int
	rateWindow time.Duration
}

// NewWSGateway constructs a gateway with secure defaults. checker may be nil.
func NewWSGateway(log *slog.Logger, hub *Hub, auth Authenticator, checker ActivityChecker) (*WSGateway, error) {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if hub == nil {
		return nil, errors.New("realtime: nil hub")
	}
	if auth == nil {
		return nil, errors.New("realtime: nil authenticator")
	}

	g := &WSGateway{log: log, hub: hub, auth: auth, checker: checker}

	// NOTE: InsecureSkipVerify is a dev-only knob that disables websocket.Accept's origin check.
	g.devInsecure = envcfg.EnvBool("AYA_WS_DEV_INSECURE", false)

	g.originRequired = envcfg.EnvBool("AYA_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired)
	g.allowedOrigins = envcfg.EnvCSV("AYA_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins)

	// websocket.Accept enforces its own origin policy (same-host ok, cross-origin needs
	// OriginPatterns). Patterns are derived from the allowlist so the two layers agree.
	g.originPatterns = deriveOriginPatternsFromAllowedOrigins(g.allowedOrigins)

	g.writeTimeout = envcfg.EnvDuration("AYA_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)
	g.readIdleTimeout = envcfg.EnvDuration("AYA_WS_READ_IDLE_TIMEOUT", wsDefaultReadIdle)

	g.sendQueueSize = envcfg.EnvInt("AYA_WS_SEND_QUEUE", wsDefaultSendQueueSize)
	if g.sendQueueSize < wsMinSendQueueSize {
		g.sendQueueSize = wsMinSendQueueSize
	}

	g.heartbeatEvery = envcfg.EnvDuration("AYA_WS_HEARTBEAT_INTERVAL", heartbeatInterval)
	g.heartbeatTimeout = envcfg.EnvDuration("AYA_WS_HEARTBEAT_TIMEOUT", heartbeatTimeout)

	g.rateEvents = envcfg.EnvInt("AYA_WS_RATE_EVENTS", rateLimitEvents)
	g.rateWindow = envcfg.EnvDuration("AYA_WS_RATE_WINDOW", rateLimitWindow)

	return g, nil
}

// ServeHTTP adapter so it can be mounted as http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS authenticates and upgrades an HTTP request, then runs the channel loop.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	claims, err := g.auth.Authenticate(r)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, session.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		g.log.Info("ws.reject.auth", "err", err, "remote", r.RemoteAddr)
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{v1.Subprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != v1.Subprotocol {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", v1.Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	connID, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	client := NewClient(connID, claims.Username, claims.DeviceID, g.sendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once

	// shutdown is idempotent. It does NOT close client.Send.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Unregister(client)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	g.hub.Register(client)

	rl := ratelimit.NewWindow(g.rateEvents, g.rateWindow)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.writeTimeout); err != nil {
					g.log.Info("ws.write.fail", "conn_id", connID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			case <-client.Kicked():
				g.flush(ctx, conn, client)
				shutdown(websocket.StatusPolicyViolation, "session displaced")
				return
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "conn_id", connID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0

				if !g.stillActive(ctx, client) {
					_ = client.TrySend(displacedEnvelope(client.Username, client.DeviceID, v1.ReasonInactive, time.Now().UTC()))
					client.Kick()
					return
				}
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		env, err := readEnvelope(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
				break readLoop
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
				break readLoop
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
				break readLoop
			case readErrBadJSON:
				// Counted against the rate limit below like any other frame.
			default:
				g.log.Info("ws.read.fail", "conn_id", connID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
				break readLoop
			}
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			g.trySendError(client, "rate_limited", "too many events")
			g.flush(ctx, conn, client)
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		if err != nil {
			g.trySendError(client, "bad_json", "invalid JSON")
			continue readLoop
		}
		if err := env.Validate(); err != nil {
			g.trySendError(client, "bad_envelope", err.Error())
			continue readLoop
		}

		switch env.Type {
		case v1.TypeHello:
			p, _ := json.Marshal(v1.HelloAckPayload{
				ConnectionID: connID,
				Username:     client.Username,
				DeviceID:     client.DeviceID,
			})
			if !client.TrySend(newEnvelope(v1.TypeHelloAck, p, now)) {
				shutdown(websocket.StatusPolicyViolation, "backpressure")
				break readLoop
			}

		case v1.TypePing:
			var ping v1.PingPayload
			if len(env.Payload) > 0 {
				if err := json.Unmarshal(env.Payload, &ping); err != nil {
					g.trySendError(client, "bad_payload", "invalid ping payload")
					continue readLoop
				}
			}
			p, _ := json.Marshal(v1.PongPayload{Nonce: ping.Nonce})
			_ = client.TrySend(newEnvelope(v1.TypePong, p, now))

		default:
			g.trySendError(client, "unsupported", fmt.Sprintf("unsupported type: %s", env.Type))
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

// stillActive reports false only when the checker positively says the device lost its binding.
func (g *WSGateway) stillActive(ctx context.Context, c *Client) bool {
	if g.checker == nil {
		return true
	}
	ok, err := g.checker.Active(ctx, c.Username, c.DeviceID)
	if err != nil {
		g.log.Warn("ws.session.check.fail", "conn_id", c.ConnID, "err", err)
		return true
	}
	return ok
}

// flush writes whatever is queued without blocking on an empty queue.
func (g *WSGateway) flush(ctx context.Context, conn *websocket.Conn, c *Client) {
	for {
		select {
		case env := <-c.Send:
			if err := writeEnvelope(ctx, conn, env, g.writeTimeout); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (g *WSGateway) trySendError(client *Client, code, msg string) {
	p, _ := json.Marshal(v1.ErrorPayload{Code: code, Message: msg})
	_ = client.TrySend(newEnvelope(v1.TypeError, p, time.Now().UTC()))
}

// ---- envelope IO ----

func readEnvelope(ctx context.Context, conn *websocket.Conn) (v1.Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return v1.Envelope{}, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return v1.Envelope{}, fmt.Errorf("unsupported message type: %v", mt)
	}
	var env v1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return v1.Envelope{}, err
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env v1.Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrBadJSON
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return readErrBadJSON
	}
	return readErrUnknown
}

// ---- origin policy ----

func (g *WSGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			// Strongly discouraged, but honored if explicitly configured.
			return nil
		}

		// Full origin match (scheme + host + optional port).
		if origin == a {
			return nil
		}

		// Host match fallback (ignores port/scheme).
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// URL form.
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	// host[:port] form.
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

// deriveOriginPatternsFromAllowedOrigins returns the sorted, de-duplicated hosts of
// the allowlist. websocket.Accept matches them against the origin host.
func deriveOriginPatternsFromAllowedOrigins(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
