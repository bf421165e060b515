// Package poller drives the outbox scan on a fixed interval.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller invokes tickFn every interval, starting with an immediate
// tick. Ticks run one at a time; a panicking tick is logged and the
// loop keeps going.
type Poller struct {
	interval time.Duration
	tickFn   func(context.Context)

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, tickFn func(context.Context)) (*Poller, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	return &Poller{interval: interval, tickFn: tickFn}, nil
}

// Start launches the poll loop. Returns false if already running.
func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)

	go p.loop(ctx)
	return true
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("outbox poller started", "interval", p.interval.String())

	p.safeTick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox poller stopping")
			return
		case <-ticker.C:
			p.safeTick(ctx)
		}
	}
}

// Stop halts the loop and waits for an in-flight tick to finish.
// Returns false if not running.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return false
	}

	p.cancel()
	<-p.done
	p.running.Store(false)

	slog.Info("outbox poller stopped")
	return true
}

func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("outbox tick panic recovered", "panic", r)
		}
	}()
	p.tickFn(ctx)
}
