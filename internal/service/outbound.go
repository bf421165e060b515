package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/LeventeLantos/sms-bridge/internal/queue"
	"github.com/LeventeLantos/sms-bridge/internal/session"
)

// SessionSender issues one protocol send. *session.Manager implements
// it; sends fail with session.ErrNotConnected while the session is
// down.
type SessionSender interface {
	Send(to, body string) error
}

// Limiter gates outbound volume per destination. Allow reporting false
// leaves the record queued for a later tick.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Outbound drains the outbox: every discovered record is sent through
// the session and disposed of exactly once, deleted on success or
// renamed to a .failed marker on any terminal failure. A record only
// survives a tick untouched while the session is down or the rate
// limiter holds it back.
type Outbound struct {
	outbox        *queue.Outbox
	session       SessionSender
	gatewayDomain string
	limiter       Limiter // optional
}

func NewOutbound(outbox *queue.Outbox, sess SessionSender, gatewayDomain string) *Outbound {
	return &Outbound{
		outbox:        outbox,
		session:       sess,
		gatewayDomain: gatewayDomain,
	}
}

func (o *Outbound) WithLimiter(l Limiter) *Outbound {
	o.limiter = l
	return o
}

// ProcessTick handles every record currently queued. Failures stay
// local to their file; one bad record never blocks the rest of the
// tick. Disposal happens strictly after the send outcome is known.
func (o *Outbound) ProcessTick(ctx context.Context) (sent, failed int) {
	paths, err := o.outbox.List()
	if err != nil {
		slog.Error("outbox list failed", "dir", o.outbox.Dir(), "error", err)
		return 0, 0
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return sent, failed
		}

		msg, err := o.outbox.Read(path)
		if err != nil {
			failed++
			o.fail(path, err)
			continue
		}

		if o.limiter != nil {
			ok, err := o.limiter.Allow(ctx, msg.To)
			if err != nil {
				slog.Warn("rate limiter unavailable, record left queued",
					"file", filepath.Base(path), "error", err)
				continue
			}
			if !ok {
				slog.Info("rate limited, record left queued",
					"to", msg.To, "file", filepath.Base(path))
				continue
			}
		}

		if err := o.session.Send(msg.To+"@"+o.gatewayDomain, msg.Body); err != nil {
			if errors.Is(err, session.ErrNotConnected) {
				// Left queued; the next tick retries once the session
				// is back.
				continue
			}
			failed++
			o.fail(path, err)
			continue
		}

		if err := o.outbox.MarkSent(path); err != nil {
			slog.Error("sent record not removed, may send again",
				"file", filepath.Base(path), "error", err)
			continue
		}
		sent++
		slog.Info("sms sent", "to", msg.To, "chars", len(msg.Body))
	}
	return sent, failed
}

func (o *Outbound) fail(path string, cause error) {
	slog.Error("outbound record failed", "file", filepath.Base(path), "error", cause)
	if err := o.outbox.MarkFailed(path); err != nil {
		slog.Error("failed record not renamed", "file", filepath.Base(path), "error", err)
	}
}
