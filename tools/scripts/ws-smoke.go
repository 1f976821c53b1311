// Package main provides a CI-friendly smoke test for the Aya session channel.
//
// Against a running server with a seeded account it validates:
//   - login over HTTP as device A
//   - handshake + subprotocol selection
//   - hello/ack identity echo
//   - ping/pong
//   - a second login as device B pushes session_displaced to A and closes A
//     with policy violation
//   - A's token is rejected afterwards with session_displaced
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "aya/shared/contracts/realtime/v1"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 16

type smokeClient struct {
	name     string
	deviceID string
	token    string
	conn     *websocket.Conn

	inbox chan v1.Envelope
	errCh chan error
}

type loginResult struct {
	Token     string `json:"token"`
	DeviceID  string `json:"device_id"`
	Displaced bool   `json:"displaced"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		origin   = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		username = flag.String("username", "smoke", "seeded username")
		password = flag.String("password", "", "password for -username (or AYA_SMOKE_PASSWORD)")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("AYA_SMOKE_PASSWORD")
	}
	if *password == "" {
		fatalf("missing -password")
	}
	wsURL, err := wsURLFor(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	ctx := context.Background()
	stamp := time.Now().UTC().Format("20060102T150405")

	a := &smokeClient{name: "A", deviceID: "smoke-a-" + stamp}
	first := mustLogin(ctx, *baseURL, *username, *password, a.deviceID, *timeout)
	a.token = first.Token
	logf(*verbose, "A logged in (displaced=%v)", first.Displaced)

	mustConnect(ctx, a, wsURL, *origin, *username, *timeout)
	logf(*verbose, "A connected")

	mustPing(ctx, a, *timeout)
	logf(*verbose, "A ping/pong ok")

	b := &smokeClient{name: "B", deviceID: "smoke-b-" + stamp}
	second := mustLogin(ctx, *baseURL, *username, *password, b.deviceID, *timeout)
	b.token = second.Token
	if !second.Displaced {
		fatalf("second login did not report a displacement")
	}
	logf(*verbose, "B logged in, displaced A")

	env := a.mustReadUntilType(ctx, v1.TypeSessionDisplaced, *timeout)
	var p v1.SessionDisplacedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal session_displaced payload: %v", err)
	}
	if p.DeviceID != a.deviceID || p.Reason != v1.ReasonNewLogin {
		fatalf("session_displaced mismatch: device=%q reason=%q", p.DeviceID, p.Reason)
	}
	mustClosedWith(ctx, a, websocket.StatusPolicyViolation, *timeout)
	logf(*verbose, "A received session_displaced and was closed")

	if code := meErrorCode(ctx, *baseURL, a.token, *timeout); code != "session_displaced" {
		fatalf("A token: /me error code=%q want session_displaced", code)
	}

	mustConnect(ctx, b, wsURL, *origin, *username, *timeout)
	closeWS(b.conn)

	fmt.Println("OK: ws smoke passed (login, hello, ping, displacement, close)")
}

func wsURLFor(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", errors.New("missing host")
	}
	u.Path = "/ws"
	return u.String(), nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustLogin(parent context.Context, base, username, password, deviceID string, stepTimeout time.Duration) loginResult {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	body := mustJSON(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/auth/login", bytes.NewReader(body))
	if err != nil {
		fatalf("login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", deviceID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("login (%s): %v", deviceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalf("login (%s): status=%d", deviceID, resp.StatusCode)
	}
	var out loginResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fatalf("login (%s): decode: %v", deviceID, err)
	}
	if out.Token == "" || out.DeviceID != deviceID {
		fatalf("login (%s): token missing or device mismatch (%q)", deviceID, out.DeviceID)
	}
	return out
}

func meErrorCode(parent context.Context, base, token string, stepTimeout time.Duration) string {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/me", nil)
	if err != nil {
		fatalf("me request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("me: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out.Error.Code
}

func mustConnect(parent context.Context, c *smokeClient, wsURL, origin, username string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	h.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", c.name, err)
	}
	assertSubprotocol(resp, v1.Subprotocol)

	conn.SetReadLimit(maxReadBytes)
	c.conn = conn
	c.inbox = make(chan v1.Envelope, 64)
	c.errCh = make(chan error, 1)
	c.startReadLoop()

	mustWriteWithTimeout(parent, conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeHello,
		ID:      c.name + "-hello",
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.HelloPayload{}),
	}, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeHelloAck, stepTimeout)
	var p v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal hello_ack payload (%s): %v", c.name, err)
	}
	if p.Username != username || p.DeviceID != c.deviceID || p.ConnectionID == "" {
		fatalf("hello_ack mismatch (%s): %+v", c.name, p)
	}
}

func mustPing(parent context.Context, c *smokeClient, stepTimeout time.Duration) {
	nonce := c.name + "-nonce"
	mustWriteWithTimeout(parent, c.conn, v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypePing,
		ID:      c.name + "-ping",
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.PingPayload{Nonce: nonce}),
	}, stepTimeout)

	pong := c.mustReadUntilType(parent, v1.TypePong, stepTimeout)
	var p v1.PongPayload
	if err := json.Unmarshal(pong.Payload, &p); err != nil {
		fatalf("unmarshal pong payload (%s): %v", c.name, err)
	}
	if p.Nonce != nonce {
		fatalf("pong nonce mismatch (%s): got=%q want=%q", c.name, p.Nonce, nonce)
	}
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if err := env.Validate(); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad envelope: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s): %v", wantType, c.name, pendingErr(c))
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustClosedWith(parent context.Context, c *smokeClient, want websocket.StatusCode, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for close (%s)", c.name)
		case _, ok := <-c.inbox:
			if ok {
				continue
			}
			err := pendingErr(c)
			if got := websocket.CloseStatus(err); got != want {
				fatalf("close status (%s): got=%v want=%v (err=%v)", c.name, got, want, err)
			}
			return
		}
	}
}

func pendingErr(c *smokeClient) error {
	select {
	case err := <-c.errCh:
		return err
	default:
		return nil
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func logf(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "-- "+format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
