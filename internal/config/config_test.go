// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadWithPath("")
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.Server.Port != 8880 {
		t.Errorf("Server.Port = %d, want 8880", cfg.Server.Port)
	}
	if cfg.Realtime.PongWait != 60*time.Second {
		t.Errorf("Realtime.PongWait = %s, want 60s", cfg.Realtime.PongWait)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled = true, want false by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REALTIME_PONG_WAIT", "30s")

	cfg, err := LoadWithPath("")
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Realtime.PongWait != 30*time.Second {
		t.Errorf("Realtime.PongWait = %s, want 30s", cfg.Realtime.PongWait)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 7070
database:
  path: /tmp/test.db
security:
  cors_origins:
    - https://app.example.com
    - https://admin.example.com
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins length = %d, want 2", len(cfg.Security.CORSOrigins))
	}
	if cfg.Security.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins[0] = %q", cfg.Security.CORSOrigins[0])
	}
}

func TestLoadCommaSeparatedOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadWithPath("")
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins length = %d, want 2", len(cfg.Security.CORSOrigins))
	}
	if cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins[1] = %q, want trimmed value", cfg.Security.CORSOrigins[1])
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWTSecret = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero pong wait", func(c *Config) { c.Realtime.PongWait = 0 }, "pong_wait"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"nats without url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = ""
			c.NATS.EmbeddedServer = false
		}, "nats.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFuncDropsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want empty", got)
	}
	if got := envTransformFunc("HTTP_PORT"); got != "server.port" {
		t.Errorf("envTransformFunc(HTTP_PORT) = %q, want server.port", got)
	}
}
