package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/xmppo/go-xmpp"

	"github.com/LeventeLantos/sms-bridge/internal/session"
)

// XMPPDialer opens authenticated XMPP sessions for the session
// manager. The returned connections satisfy session.Conn; everything
// protocol-specific stays behind that boundary.
type XMPPDialer struct {
	jid         string
	password    string
	dialTimeout time.Duration
}

func NewXMPPDialer(jid, password string, dialTimeout time.Duration) *XMPPDialer {
	return &XMPPDialer{jid: jid, password: password, dialTimeout: dialTimeout}
}

func (d *XMPPDialer) Dial(ctx context.Context) (session.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, &session.TransportError{Err: err}
	}

	opts := xmpp.Options{
		User:        d.jid,
		Password:    d.password,
		Resource:    "bridge",
		StartTLS:    true,
		Session:     true,
		Status:      "chat",
		DialTimeout: d.dialTimeout,
	}
	c, err := opts.NewClient()
	if err != nil {
		if isAuthFailure(err) {
			return nil, &session.AuthError{JID: d.jid, Err: err}
		}
		return nil, &session.TransportError{Err: err}
	}
	return &xmppConn{c: c}, nil
}

// isAuthFailure sniffs SASL rejections out of go-xmpp's flat errors so
// the manager stops instead of hammering the server with credentials
// it cannot fix.
func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "auth") ||
		strings.Contains(msg, "not-authorized") ||
		strings.Contains(msg, "unauthorized")
}

type xmppConn struct {
	c *xmpp.Client
}

// Recv blocks until the next chat message or presence-type stanza. IQ
// stanzas, receipts, typing notifications and other chatter are
// consumed and dropped here.
func (x *xmppConn) Recv() (any, error) {
	for {
		stanza, err := x.c.Recv()
		if err != nil {
			return nil, err
		}
		switch v := stanza.(type) {
		case xmpp.Chat:
			if v.Type == "chat" || v.Type == "normal" || v.Type == "" {
				return session.MessageEvent{From: v.Remote, Body: v.Text}, nil
			}
		case xmpp.Presence:
			if v.Type != "" {
				return session.PresenceEvent{From: v.From, Type: v.Type}, nil
			}
		}
	}
}

func (x *xmppConn) SendMessage(to, body string) error {
	_, err := x.c.Send(xmpp.Chat{Remote: to, Type: "chat", Text: body})
	return err
}

func (x *xmppConn) ApproveSubscription(jid string) error {
	return x.sendPresence(jid, "subscribed")
}

func (x *xmppConn) RequestSubscription(jid string) error {
	return x.sendPresence(jid, "subscribe")
}

func (x *xmppConn) sendPresence(to, presenceType string) error {
	_, err := x.c.SendOrg(fmt.Sprintf("<presence to='%s' type='%s'/>", xmlEscape(to), presenceType))
	return err
}

func (x *xmppConn) Close() error {
	return x.c.Close()
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
