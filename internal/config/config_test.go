package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
backend: memory
user_id: alice
debounce: 50ms
server:
  port: 9000
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("Expected backend memory, got %s", cfg.Backend)
	}
	if cfg.UserID != "alice" {
		t.Errorf("Expected user alice, got %s", cfg.UserID)
	}
	if cfg.Debounce != 50*time.Millisecond {
		t.Errorf("Expected 50ms debounce, got %v", cfg.Debounce)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Expected 127.0.0.1:9000, got %s", cfg.Server.Addr())
	}
	if !cfg.Local() {
		t.Errorf("Expected memory backend to be local")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: memory\nuser_id: alice\n")
	t.Setenv("COMPOSER_USER_ID", "bob")
	t.Setenv("COMPOSER_SERVER_PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UserID != "bob" {
		t.Errorf("Expected env user bob, got %s", cfg.UserID)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Expected env port 7000, got %d", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", "backend: mongo\n", "'backend'"},
		{"supabase without keys", "backend: supabase\n", "supabase.url"},
		{"bad log format", "backend: memory\nlog:\n  format: xml\n", "'format'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	if log.Logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %v", log.Logger.GetLevel())
	}
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"service":"prompt-composer"`) {
		t.Errorf("Expected JSON with service field, got %s", out)
	}
}
