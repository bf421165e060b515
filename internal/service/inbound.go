// Package service holds the two translators between the protocol
// session and the queue directories.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeventeLantos/sms-bridge/internal/model"
)

// InboxWriter stores one received message. *queue.Inbox implements it.
type InboxWriter interface {
	Write(msg model.InboundMessage) error
}

// Notifier pushes a stored message to an external hook.
type Notifier interface {
	Notify(ctx context.Context, msg model.InboundMessage) error
}

// Inbound translates protocol receive events into inbox files. It
// never reports failure to the session: a dropped message is cheaper
// than a dropped connection, and the transport retransmits.
type Inbound struct {
	inbox     InboxWriter
	notifier  Notifier        // optional
	allowFrom map[string]bool // empty: allow all senders

	notifyTimeout time.Duration
}

func NewInbound(inbox InboxWriter, allowFrom []string) *Inbound {
	allowed := make(map[string]bool, len(allowFrom))
	for _, from := range allowFrom {
		allowed[from] = true
	}
	return &Inbound{
		inbox:         inbox,
		allowFrom:     allowed,
		notifyTimeout: 10 * time.Second,
	}
}

func (i *Inbound) WithNotifier(n Notifier) *Inbound {
	i.notifier = n
	return i
}

// Handle stores one received message. Bodies are untrusted input and
// never logged, only their length.
func (i *Inbound) Handle(msg model.InboundMessage) {
	if len(i.allowFrom) > 0 && !i.allowFrom[msg.From] {
		slog.Warn("inbound sender not in allowlist, dropped", "from", msg.From)
		return
	}

	if err := i.inbox.Write(msg); err != nil {
		slog.Error("inbox write failed, message dropped", "from", msg.From, "error", err)
		return
	}
	slog.Info("sms received", "from", msg.From, "chars", len(msg.Body))

	if i.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.notifyTimeout)
		defer cancel()
		if err := i.notifier.Notify(ctx, msg); err != nil {
			slog.Warn("inbound hook failed", "from", msg.From, "error", err)
			return
		}
		slog.Info("inbound hook fired", "from", msg.From)
	}()
}
