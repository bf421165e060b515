package config

import (
	"strings"
	"sync"
	"testing"
	"time"
)

var envMu sync.Mutex

var testEnvKeys = []string{
	"BRIDGE_JID",
	"BRIDGE_PASSWORD",
	"BRIDGE_GATEWAY_DOMAIN",
	"BRIDGE_INBOX",
	"BRIDGE_OUTBOX",
	"BRIDGE_LOG",
	"BRIDGE_POLL_INTERVAL_SECONDS",
	"BRIDGE_RECONNECT_DELAY_SECONDS",
	"BRIDGE_DIAL_TIMEOUT_SECONDS",
	"BRIDGE_AUTO_ACCEPT_PRESENCE",
	"BRIDGE_ALLOW_FROM",
	"BRIDGE_RATE_LIMIT_PER_MINUTE",
	"BRIDGE_HOOK_URL",
	"BRIDGE_HOOK_TOKEN",
	"BRIDGE_HTTP_ADDR",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range testEnvKeys {
		t.Setenv(key, "")
	}
}

func expectPanic(t *testing.T, fragment string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, got none", fragment)
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, fragment) {
			t.Fatalf("expected panic containing %q, got %v", fragment, r)
		}
	}()
	fn()
}

func TestLoadAll_Defaults(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	t.Setenv("BRIDGE_JID", "bridge@example.net")
	t.Setenv("BRIDGE_PASSWORD", "hunter2")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Session.JID != "bridge@example.net" {
		t.Fatalf("unexpected JID: %q", cfg.Session.JID)
	}
	if cfg.Session.GatewayDomain != "cheogram.com" {
		t.Fatalf("unexpected gateway default: %q", cfg.Session.GatewayDomain)
	}
	if cfg.Session.ReconnectDelay != 5*time.Second {
		t.Fatalf("unexpected reconnect delay default: %v", cfg.Session.ReconnectDelay)
	}
	if cfg.Session.DialTimeout != 30*time.Second {
		t.Fatalf("unexpected dial timeout default: %v", cfg.Session.DialTimeout)
	}
	if !cfg.Session.AutoAcceptPresence {
		t.Fatalf("expected presence auto-accept on by default")
	}
	if cfg.Poller.Interval != 2*time.Second {
		t.Fatalf("unexpected poll interval default: %v", cfg.Poller.Interval)
	}
	if !strings.HasSuffix(cfg.Queue.InboxDir, "inbox") || !strings.HasSuffix(cfg.Queue.OutboxDir, "outbox") {
		t.Fatalf("unexpected queue dir defaults: %q %q", cfg.Queue.InboxDir, cfg.Queue.OutboxDir)
	}
	if cfg.Queue.AllowFrom != nil {
		t.Fatalf("expected empty allowlist by default, got %v", cfg.Queue.AllowFrom)
	}
	if cfg.RateLimit.PerMinute != 0 {
		t.Fatalf("expected rate limit off by default, got %d", cfg.RateLimit.PerMinute)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("expected redis disabled without REDIS_ADDR")
	}
	if cfg.HTTP.Address != "" {
		t.Fatalf("expected ops api disabled by default, got %q", cfg.HTTP.Address)
	}
}

func TestLoadAll_Overrides(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	t.Setenv("BRIDGE_JID", "bridge@example.net")
	t.Setenv("BRIDGE_PASSWORD", "hunter2")
	t.Setenv("BRIDGE_GATEWAY_DOMAIN", "sms.example.org")
	t.Setenv("BRIDGE_POLL_INTERVAL_SECONDS", "7")
	t.Setenv("BRIDGE_RECONNECT_DELAY_SECONDS", "13")
	t.Setenv("BRIDGE_AUTO_ACCEPT_PRESENCE", "false")
	t.Setenv("BRIDGE_ALLOW_FROM", "+15125551234, +19998887777 ,")
	t.Setenv("BRIDGE_RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Session.GatewayDomain != "sms.example.org" {
		t.Fatalf("unexpected gateway: %q", cfg.Session.GatewayDomain)
	}
	if cfg.Poller.Interval != 7*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Poller.Interval)
	}
	if cfg.Session.ReconnectDelay != 13*time.Second {
		t.Fatalf("unexpected reconnect delay: %v", cfg.Session.ReconnectDelay)
	}
	if cfg.Session.AutoAcceptPresence {
		t.Fatalf("expected presence auto-accept disabled")
	}
	want := []string{"+15125551234", "+19998887777"}
	if len(cfg.Queue.AllowFrom) != len(want) || cfg.Queue.AllowFrom[0] != want[0] || cfg.Queue.AllowFrom[1] != want[1] {
		t.Fatalf("unexpected allowlist: %v", cfg.Queue.AllowFrom)
	}
	if cfg.RateLimit.PerMinute != 30 {
		t.Fatalf("unexpected rate limit: %d", cfg.RateLimit.PerMinute)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Address != "localhost:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestLoadAll_MissingCredentialsPanics(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	expectPanic(t, "BRIDGE_JID", func() { _, _ = LoadAll() })
}

func TestLoadAll_InvalidValuesPanic(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	t.Setenv("BRIDGE_JID", "bridge@example.net")
	t.Setenv("BRIDGE_PASSWORD", "hunter2")

	t.Run("non-numeric interval", func(t *testing.T) {
		t.Setenv("BRIDGE_POLL_INTERVAL_SECONDS", "often")
		expectPanic(t, "BRIDGE_POLL_INTERVAL_SECONDS", func() { _, _ = LoadAll() })
	})

	t.Run("zero interval", func(t *testing.T) {
		t.Setenv("BRIDGE_POLL_INTERVAL_SECONDS", "0")
		expectPanic(t, "BRIDGE_POLL_INTERVAL_SECONDS", func() { _, _ = LoadAll() })
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("BRIDGE_AUTO_ACCEPT_PRESENCE", "maybe")
		expectPanic(t, "BRIDGE_AUTO_ACCEPT_PRESENCE", func() { _, _ = LoadAll() })
	})

	t.Run("negative rate limit", func(t *testing.T) {
		t.Setenv("BRIDGE_RATE_LIMIT_PER_MINUTE", "-1")
		expectPanic(t, "BRIDGE_RATE_LIMIT_PER_MINUTE", func() { _, _ = LoadAll() })
	})
}
