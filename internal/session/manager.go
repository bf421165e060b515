package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LeventeLantos/sms-bridge/internal/model"
)

// Config carries the session policy knobs.
type Config struct {
	// GatewayJID is the routing identity of the SMS gateway, e.g.
	// "cheogram.com". The manager announces presence to it on every
	// successful connect; the gateway does not route inbound SMS
	// without that handshake.
	GatewayJID string
	// ReconnectDelay is the flat pause between a drop (or a failed
	// attempt) and the next dial.
	ReconnectDelay time.Duration
	// AutoAcceptPresence approves subscription requests from any
	// identity and subscribes back. The gateway handshake depends on
	// it; operators wanting a stricter policy pair it with an inbound
	// allowlist.
	AutoAcceptPresence bool
}

// Manager owns the live connection. Exactly one Run loop drives the
// connect/read/reconnect cycle; everything else reaches the connection
// through Send.
type Manager struct {
	dialer  Dialer
	cfg     Config
	inbound func(model.InboundMessage)
	now     func() time.Time

	mu         sync.Mutex
	conn       Conn
	status     Status
	attempts   int
	subscribed map[string]bool
}

func NewManager(dialer Dialer, cfg Config, inbound func(model.InboundMessage)) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Manager{
		dialer:  dialer,
		cfg:     cfg,
		inbound: inbound,
		now:     time.Now,
		status:  StatusDisconnected,
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempts reports connect attempts since the last successful session.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Send delivers one chat message over the live connection. The write
// is serialized against every other protocol write.
func (m *Manager) Send(to, body string) error {
	return m.write(func(c Conn) error { return c.SendMessage(to, body) })
}

func (m *Manager) write(fn func(Conn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusConnected || m.conn == nil {
		return ErrNotConnected
	}
	return fn(m.conn)
}

// Run drives the session until ctx is canceled. It returns nil on
// shutdown and an *AuthError if the credentials are rejected. Transport
// failures are retried forever; availability wins over bounded retry.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		m.setStatus(StatusConnecting)
		conn, err := m.dialer.Dial(ctx)
		if err != nil {
			m.setStatus(StatusDisconnected)
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return err
			}
			n := m.bumpAttempts()
			slog.Error("connect failed",
				"attempt", n,
				"retry_in", m.cfg.ReconnectDelay.String(),
				"error", err,
			)
			if !m.pause(ctx) {
				return nil
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.status = StatusConnected
		m.attempts = 0
		m.subscribed = make(map[string]bool)
		m.mu.Unlock()
		slog.Info("session connected", "gateway", m.cfg.GatewayJID)

		// Unblocks Recv when the process is shutting down.
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

		m.announce()
		m.readLoop(ctx, conn)
		stop()

		m.mu.Lock()
		m.conn = nil
		m.status = StatusDisconnected
		m.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("session lost, reconnecting", "delay", m.cfg.ReconnectDelay.String())
		if !m.pause(ctx) {
			return nil
		}
	}
}

// announce completes the presence handshake with the gateway. Without
// an active subscription in both directions the gateway silently stops
// routing inbound SMS, with no error on the protocol level.
func (m *Manager) announce() {
	err := m.write(func(c Conn) error {
		if err := c.ApproveSubscription(m.cfg.GatewayJID); err != nil {
			return err
		}
		return c.RequestSubscription(m.cfg.GatewayJID)
	})
	if err != nil {
		slog.Error("gateway presence announce failed", "gateway", m.cfg.GatewayJID, "error", err)
		return
	}

	m.mu.Lock()
	m.subscribed[m.cfg.GatewayJID] = true
	m.mu.Unlock()
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) {
	for {
		ev, err := conn.Recv()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("receive failed", "error", err)
			}
			return
		}
		switch e := ev.(type) {
		case MessageEvent:
			m.handleMessage(e)
		case PresenceEvent:
			if e.Type == "subscribe" {
				m.handleSubscribe(e.From)
			}
		}
	}
}

// handleMessage turns a chat stanza into an inbound record. Bodyless
// stanzas and messages from a bare domain (server or gateway
// housekeeping, not an SMS) are dropped.
func (m *Manager) handleMessage(e MessageEvent) {
	if e.Body == "" {
		return
	}

	from := e.From
	if i := strings.IndexByte(from, '/'); i >= 0 {
		from = from[:i]
	}
	at := strings.IndexByte(from, '@')
	if at <= 0 {
		slog.Info("service message ignored", "from", from, "chars", len(e.Body))
		return
	}

	m.inbound(model.InboundMessage{
		From:      from[:at],
		Body:      e.Body,
		Timestamp: m.now().Unix(),
		JID:       from,
	})
}

// handleSubscribe approves a subscription request and subscribes back,
// once per identity per session. Messages between two identities only
// route once both sides hold a subscription.
func (m *Manager) handleSubscribe(from string) {
	if !m.cfg.AutoAcceptPresence {
		slog.Info("subscription request ignored by policy", "from", from)
		return
	}

	m.mu.Lock()
	already := m.subscribed[from]
	m.subscribed[from] = true
	m.mu.Unlock()

	err := m.write(func(c Conn) error {
		if err := c.ApproveSubscription(from); err != nil {
			return err
		}
		if already {
			return nil
		}
		return c.RequestSubscription(from)
	})
	if err != nil {
		slog.Warn("subscription handshake failed", "from", from, "error", err)
		return
	}
	slog.Info("subscription accepted", "from", from)
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) bumpAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return m.attempts
}

// pause waits out the reconnect delay. False means ctx ended first.
func (m *Manager) pause(ctx context.Context) bool {
	t := time.NewTimer(m.cfg.ReconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
