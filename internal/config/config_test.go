package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/test"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want default 3000", cfg.Server.Port)
	}
	if cfg.Bot.CommandPrefix != "#" {
		t.Errorf("prefix = %q, want default #", cfg.Bot.CommandPrefix)
	}
	if cfg.RateLimitWindow() != time.Minute {
		t.Errorf("rate window = %v, want 1m", cfg.RateLimitWindow())
	}
	if cfg.Bot.RateLimitMax != 5 {
		t.Errorf("rate max = %d, want 5", cfg.Bot.RateLimitMax)
	}
	if cfg.OTPTTL() != 5*time.Minute {
		t.Errorf("otp ttl = %v, want 5m", cfg.OTPTTL())
	}
	if cfg.Bot.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Bot.Workers)
	}
	if cfg.ShutdownTimeout() != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.ShutdownTimeout())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
bot:
  command_prefix: "!"
  rate_limit_window_ms: 30000
  rate_limit_max: 10
  admin_allowlist: ["111", "222"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Bot.CommandPrefix != "!" {
		t.Errorf("prefix = %q", cfg.Bot.CommandPrefix)
	}
	if cfg.RateLimitWindow() != 30*time.Second {
		t.Errorf("rate window = %v", cfg.RateLimitWindow())
	}
	if len(cfg.Bot.AdminAllowlist) != 2 {
		t.Errorf("allowlist = %v", cfg.Bot.AdminAllowlist)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
