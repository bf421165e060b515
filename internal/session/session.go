// Package session owns the single persistent connection to the
// messaging network: connect, authenticate, presence handshake,
// inbound dispatch and reconnect.
package session

import (
	"context"
	"errors"
	"fmt"
)

// Status is the connection state of the session.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// MessageEvent is an inbound chat message stanza.
type MessageEvent struct {
	From string // full routing identity, possibly with a resource suffix
	Body string
}

// PresenceEvent is a presence stanza of the given type ("subscribe",
// "unsubscribed", ...).
type PresenceEvent struct {
	From string
	Type string
}

// Conn is one established, authenticated protocol connection. Recv
// blocks until the next event arrives; any error from it means the
// connection is dead. Writes are serialized by the Manager and never
// happen concurrently.
type Conn interface {
	Recv() (any, error)
	SendMessage(to, body string) error
	ApproveSubscription(jid string) error
	RequestSubscription(jid string) error
	Close() error
}

// Dialer establishes connections. A *AuthError from Dial is fatal and
// stops the bridge; anything else is transport trouble and retried.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// ErrNotConnected is returned by Send while no session is established.
// Callers leave their work queued and retry later.
var ErrNotConnected = errors.New("session not connected")

// AuthError is a credential rejection. Retrying cannot fix it.
type AuthError struct {
	JID string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.JID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError is a network-level failure: DNS, dial, TLS handshake
// or a dropped stream. Always retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
