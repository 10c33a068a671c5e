package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.API.Cooldowns["/activity"] != 121*time.Second {
		t.Errorf("activity cooldown = %v", cfg.API.Cooldowns["/activity"])
	}
	if cfg.Log.Level != slog.LevelWarn {
		t.Errorf("log level = %v, want warn", cfg.Log.Level)
	}
}

func TestLoad_ExpandsEnvAndOverrides(t *testing.T) {
	t.Setenv("LIKES_TEST_KEY", "secret-from-env")
	t.Setenv("LIKES_API_KEY", "")
	path := writeConfig(t, `
api:
  key: ${LIKES_TEST_KEY}
  timeout: 5s
  cooldowns:
    /feedback: 2s
cache:
  dir: /tmp/likes-cache
  frozen_days: 3
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Key != "secret-from-env" {
		t.Errorf("key = %q", cfg.API.Key)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.API.Cooldowns["/feedback"] != 2*time.Second || cfg.API.Cooldowns["/activity"] != 121*time.Second {
		t.Errorf("cooldowns = %v", cfg.API.Cooldowns)
	}
	if cfg.Cache.Dir != "/tmp/likes-cache" || cfg.Cache.FrozenDays != 3 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Log.Level != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.Log.Level)
	}
	if cfg.API.BaseURL == "" {
		t.Error("unset base_url should keep the default")
	}
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("LIKES_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("LIKES_API_KEY", "k")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default file should not fail: %v", err)
	}
	if cfg.API.Key != "k" {
		t.Errorf("key = %q, want value from LIKES_API_KEY", cfg.API.Key)
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing file should fail")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "cache:\n  dir: ~/likes\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Dir != filepath.Join(home, "likes") {
		t.Errorf("dir = %q", cfg.Cache.Dir)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad url", "api:\n  base_url: not a url\n", "BaseURL"},
		{"zero attempts", "api:\n  max_attempts: -1\n", "MaxAttempts"},
		{"negative frozen days", "cache:\n  frozen_days: -2\n", "FrozenDays"},
		{"relative cooldown path", "api:\n  cooldowns:\n    activity: 1s\n", "must start with /"},
		{"bad yaml", "api: [\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("RequireAPIKey() = %v, want ErrMissingAPIKey", err)
	}
	cfg.API.Key = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() = %v", err)
	}
}

func TestClientOptionsCopiesCooldowns(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.Key = "k"
	opts := cfg.API.ClientOptions()
	opts.Cooldowns["/activity"] = 0

	if cfg.API.Cooldowns["/activity"] != 121*time.Second {
		t.Error("ClientOptions should not share the cooldown map")
	}
	if opts.APIKey != "k" || opts.MaxAttempts != 3 {
		t.Errorf("opts = %+v", opts)
	}
}
