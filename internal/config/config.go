package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Session   SessionConfig
	Queue     QueueConfig
	Poller    PollerConfig
	Hook      HookConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type SessionConfig struct {
	JID                string
	Password           string
	GatewayDomain      string
	ReconnectDelay     time.Duration
	DialTimeout        time.Duration
	AutoAcceptPresence bool
}

type QueueConfig struct {
	InboxDir  string
	OutboxDir string
	AllowFrom []string
}

type PollerConfig struct {
	Interval time.Duration
}

type HookConfig struct {
	URL   string
	Token string
}

type HTTPConfig struct {
	Address string // empty: ops API disabled
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type RateLimitConfig struct {
	PerMinute int // 0: disabled
}

type LogConfig struct {
	Path string
}

func LoadAll() (*Config, error) {
	stateDir := defaultStateDir()

	cfg := &Config{
		Session: SessionConfig{
			JID:                mustEnv("BRIDGE_JID"),
			Password:           mustEnv("BRIDGE_PASSWORD"),
			GatewayDomain:      getEnv("BRIDGE_GATEWAY_DOMAIN", "cheogram.com"),
			ReconnectDelay:     time.Duration(getEnvInt("BRIDGE_RECONNECT_DELAY_SECONDS", 5)) * time.Second,
			DialTimeout:        time.Duration(getEnvInt("BRIDGE_DIAL_TIMEOUT_SECONDS", 30)) * time.Second,
			AutoAcceptPresence: getEnvBool("BRIDGE_AUTO_ACCEPT_PRESENCE", true),
		},
		Queue: QueueConfig{
			InboxDir:  getEnv("BRIDGE_INBOX", filepath.Join(stateDir, "inbox")),
			OutboxDir: getEnv("BRIDGE_OUTBOX", filepath.Join(stateDir, "outbox")),
			AllowFrom: getEnvList("BRIDGE_ALLOW_FROM"),
		},
		Poller: PollerConfig{
			Interval: time.Duration(getEnvInt("BRIDGE_POLL_INTERVAL_SECONDS", 2)) * time.Second,
		},
		Hook: HookConfig{
			URL:   os.Getenv("BRIDGE_HOOK_URL"),
			Token: os.Getenv("BRIDGE_HOOK_TOKEN"),
		},
		HTTP: HTTPConfig{
			Address: os.Getenv("BRIDGE_HTTP_ADDR"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("BRIDGE_RATE_LIMIT_PER_MINUTE", 0),
		},
		Log: LogConfig{
			Path: getEnv("BRIDGE_LOG", filepath.Join(stateDir, "bridge.log")),
		},
		Redis: loadRedisConfig(),
	}

	validate(cfg)
	return cfg, nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sms-bridge"
	}
	return filepath.Join(home, ".sms-bridge")
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func validate(cfg *Config) {
	if cfg.Poller.Interval <= 0 {
		panic("BRIDGE_POLL_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Session.ReconnectDelay <= 0 {
		panic("BRIDGE_RECONNECT_DELAY_SECONDS must be > 0")
	}
	if cfg.Session.DialTimeout <= 0 {
		panic("BRIDGE_DIAL_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.RateLimit.PerMinute < 0 {
		panic("BRIDGE_RATE_LIMIT_PER_MINUTE must be >= 0")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("invalid bool for env %s: %s", key, v))
	}
	return b
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
