// Package v1 defines the Aya session channel protocol v1.
//
// The channel is server-push only apart from keepalives: a browser holds one
// socket per tab and learns on it that its session was taken over by another
// device. The package is shared between server and clients.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "aya.session.v1"

// Type constants (wire-stable).
const (
	// TypeHello starts the handshake (client -> server).
	TypeHello = "hello"
	// TypeHelloAck confirms the authenticated identity (server -> client).
	TypeHelloAck = "hello_ack"

	// TypePing is an application-level keepalive (client -> server).
	TypePing = "ping"
	// TypePong answers a ping (server -> client).
	TypePong = "pong"

	// TypeSessionDisplaced tells a device its session was taken over (server -> client).
	// The server closes the socket right after sending it.
	TypeSessionDisplaced = "session_displaced"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello,
		TypeHelloAck,
		TypePing,
		TypePong,
		TypeSessionDisplaced,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// HelloPayload is sent by the client to initiate the channel.
type HelloPayload struct{}

// HelloAckPayload echoes the identity the server authenticated.
type HelloAckPayload struct {
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
	DeviceID     string `json:"device_id"`
}

// PingPayload carries an optional client nonce echoed in the pong.
type PingPayload struct {
	Nonce string `json:"nonce,omitempty"`
}

// PongPayload answers a ping.
type PongPayload struct {
	Nonce string `json:"nonce,omitempty"`
}

// Displacement reasons.
const (
	ReasonNewLogin = "new_login"
	ReasonInactive = "inactive"
)

// SessionDisplacedPayload names the device that lost its session.
type SessionDisplacedPayload struct {
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
