package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/sms-bridge/internal/api"
	"github.com/LeventeLantos/sms-bridge/internal/client"
	"github.com/LeventeLantos/sms-bridge/internal/config"
	"github.com/LeventeLantos/sms-bridge/internal/poller"
	"github.com/LeventeLantos/sms-bridge/internal/queue"
	"github.com/LeventeLantos/sms-bridge/internal/ratelimit"
	"github.com/LeventeLantos/sms-bridge/internal/service"
	"github.com/LeventeLantos/sms-bridge/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logFile, err := setupLogging(cfg.Log.Path)
	if err != nil {
		slog.Error("log file open failed", "path", cfg.Log.Path, "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	inbox, err := queue.NewInbox(cfg.Queue.InboxDir)
	if err != nil {
		slog.Error("inbox dir unavailable", "dir", cfg.Queue.InboxDir, "error", err)
		os.Exit(1)
	}
	outbox, err := queue.NewOutbox(cfg.Queue.OutboxDir)
	if err != nil {
		slog.Error("outbox dir unavailable", "dir", cfg.Queue.OutboxDir, "error", err)
		os.Exit(1)
	}

	inbound := service.NewInbound(inbox, cfg.Queue.AllowFrom)
	if cfg.Hook.URL != "" {
		inbound = inbound.WithNotifier(client.NewWebhookClient(cfg.Hook.URL, cfg.Hook.Token))
		slog.Info("inbound hook configured", "url", cfg.Hook.URL)
	}

	dialer := client.NewXMPPDialer(cfg.Session.JID, cfg.Session.Password, cfg.Session.DialTimeout)
	mgr := session.NewManager(dialer, session.Config{
		GatewayJID:         cfg.Session.GatewayDomain,
		ReconnectDelay:     cfg.Session.ReconnectDelay,
		AutoAcceptPresence: cfg.Session.AutoAcceptPresence,
	}, inbound.Handle)

	outbound := service.NewOutbound(outbox, mgr, cfg.Session.GatewayDomain)
	if lim := buildLimiter(cfg); lim != nil {
		outbound = outbound.WithLimiter(lim)
	}

	poll, err := poller.New(cfg.Poller.Interval, func(ctx context.Context) {
		outbound.ProcessTick(ctx)
	})
	if err != nil {
		slog.Error("poller setup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("bridge starting",
		"jid", cfg.Session.JID,
		"gateway", cfg.Session.GatewayDomain,
		"inbox", cfg.Queue.InboxDir,
		"outbox", cfg.Queue.OutboxDir,
		"poll_interval", cfg.Poller.Interval.String(),
	)

	if cfg.HTTP.Address != "" {
		h := api.NewHandler(mgr, poll, inbox, outbox)
		go func() {
			slog.Info("ops api listening", "addr", cfg.HTTP.Address)
			if err := http.ListenAndServe(cfg.HTTP.Address, api.Router(h)); err != nil {
				slog.Error("ops api stopped", "error", err)
			}
		}()
	}

	poll.Start()

	runErr := make(chan error, 1)
	go func() { runErr <- mgr.Run(ctx) }()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		poll.Stop()
		<-runErr
	case err := <-runErr:
		poll.Stop()
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			slog.Error("credentials rejected, not retrying", "jid", authErr.JID)
			os.Exit(1)
		}
	}

	slog.Info("bridge stopped")
}

// setupLogging tees slog output to stderr and the configured log file.
func setupLogging(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, f), nil)))
	return f, nil
}

// buildLimiter picks the rate limit backend: nil when disabled, redis
// when configured, an in-process bucket otherwise.
func buildLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimit.PerMinute <= 0 {
		return nil
	}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		slog.Info("outbound rate limit enabled", "per_minute", cfg.RateLimit.PerMinute, "backend", "redis")
		return ratelimit.NewRedis(rdb, cfg.RateLimit.PerMinute)
	}
	slog.Info("outbound rate limit enabled", "per_minute", cfg.RateLimit.PerMinute, "backend", "local")
	return ratelimit.NewLocal(cfg.RateLimit.PerMinute)
}
