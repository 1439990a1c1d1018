package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Listen != "0.0.0.0:8080" {
		t.Errorf("Server.Listen: got %q, want 0.0.0.0:8080", cfg.Server.Listen)
	}
	if cfg.Server.MaxBodyBytes != 4096 {
		t.Errorf("MaxBodyBytes: got %d, want 4096", cfg.Server.MaxBodyBytes)
	}
	if cfg.Store.Path != "~/.restkv/kv.db" {
		t.Errorf("Store.Path: got %q", cfg.Store.Path)
	}
	if cfg.Store.NoSync {
		t.Error("Store.NoSync must default to false")
	}
	if cfg.Store.FlushInterval.Duration != 30*time.Second {
		t.Errorf("FlushInterval: got %s, want 30s", cfg.Store.FlushInterval)
	}
	if !cfg.Tokens.FailOpen {
		t.Error("Tokens.FailOpen should default to true")
	}
	if cfg.Tokens.MaxAttempts != 16 {
		t.Errorf("MaxAttempts: got %d, want 16", cfg.Tokens.MaxAttempts)
	}
	if cfg.Keys.SubstringMatch {
		t.Error("Keys.SubstringMatch should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Listen != "0.0.0.0:8080" {
		t.Errorf("Server.Listen: got %q, want 0.0.0.0:8080", cfg.Server.Listen)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	toml := `
[server]
listen = "127.0.0.1:9090"
max_body_bytes = 1024
new_token_rate = 0

[store]
path = "/tmp/restkv-test/kv.db"
read_only = true
no_sync = true
flush_interval = "5s"
open_timeout = "250ms"

[tokens]
max_attempts = 4
fail_open = false

[keys]
substring_match = true

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:9090" {
		t.Errorf("Server.Listen: got %q", cfg.Server.Listen)
	}
	if cfg.Server.MaxBodyBytes != 1024 {
		t.Errorf("MaxBodyBytes: got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.NewTokenRate != 0 {
		t.Errorf("NewTokenRate: got %v", cfg.Server.NewTokenRate)
	}
	if cfg.Store.Path != "/tmp/restkv-test/kv.db" || !cfg.Store.ReadOnly || !cfg.Store.NoSync {
		t.Errorf("Store: got %+v", cfg.Store)
	}
	if cfg.Store.FlushInterval.Duration != 5*time.Second {
		t.Errorf("FlushInterval: got %s", cfg.Store.FlushInterval)
	}
	if cfg.Store.OpenTimeout.Duration != 250*time.Millisecond {
		t.Errorf("OpenTimeout: got %s", cfg.Store.OpenTimeout)
	}
	if cfg.Tokens.MaxAttempts != 4 || cfg.Tokens.FailOpen {
		t.Errorf("Tokens: got %+v", cfg.Tokens)
	}
	if !cfg.Keys.SubstringMatch {
		t.Error("Keys.SubstringMatch: got false")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("{{invalid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[store]\nflush_interval = \"soon\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing port", func(c *Config) { c.Server.Listen = "127.0.0.1" }, "server.listen"},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }, "server.listen"},
		{"zero body", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"negative rate", func(c *Config) { c.Server.NewTokenRate = -1 }, "new_token_rate"},
		{"empty path", func(c *Config) { c.Store.Path = " " }, "store.path"},
		{"negative flush", func(c *Config) { c.Store.FlushInterval.Duration = -time.Second }, "flush_interval"},
		{"zero attempts", func(c *Config) { c.Tokens.MaxAttempts = 0 }, "max_attempts"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.MaxBodyBytes = 0
	cfg.Tokens.MaxAttempts = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "max_body_bytes") || !strings.Contains(err.Error(), "max_attempts") {
		t.Errorf("expected both errors reported, got %q", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := ExpandHome("~/foo/bar")
	want := filepath.Join(home, "foo/bar")
	if got != want {
		t.Errorf("ExpandHome: got %q, want %q", got, want)
	}

	if got := ExpandHome("/absolute/path"); got != "/absolute/path" {
		t.Errorf("ExpandHome: got %q, want /absolute/path", got)
	}
}
