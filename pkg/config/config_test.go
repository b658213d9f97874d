package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.API.TimeoutSec != 90 {
		t.Fatalf("expected default timeout 90, got %d", cfg.API.TimeoutSec)
	}
	if cfg.OTP.MinCodeDigits != 4 {
		t.Fatalf("expected default min code digits 4, got %d", cfg.OTP.MinCodeDigits)
	}
}

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{
  "api": {
    "base_url": "http://localhost:9000/api",
    "unknown_field": 1
  }
}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown field") {
		t.Fatalf("expected unknown field error, got: %v", err)
	}
}

func TestLoadConfigRejectsTrailingJSONContent(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{"api":{"base_url":"http://localhost:9000/api"}}{"extra":true}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatalf("expected trailing json content error")
	}
	if !strings.Contains(err.Error(), "trailing JSON content") {
		t.Fatalf("expected trailing JSON content error, got: %v", err)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	content := `{
  "api": {"base_url": "http://file.example/api"},
  "auth": {"token": "from-file", "user_id": "u1"}
}`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PAYCHAT_AUTH_TOKEN", "from-env")
	t.Setenv("PAYCHAT_API_TIMEOUT_SEC", "15")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Auth.Token != "from-env" {
		t.Fatalf("expected env token override, got %q", cfg.Auth.Token)
	}
	if cfg.Auth.UserID != "u1" {
		t.Fatalf("expected user id from file, got %q", cfg.Auth.UserID)
	}
	if cfg.API.BaseURL != "http://file.example/api" {
		t.Fatalf("expected base url from file, got %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSec != 15 {
		t.Fatalf("expected env timeout override, got %d", cfg.API.TimeoutSec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://saved.example/api"
	cfg.Socket.URL = "ws://saved.example/api/events"

	if err := SaveConfig(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL || loaded.Socket.URL != cfg.Socket.URL {
		t.Fatalf("round trip mismatch: %#v", loaded)
	}
}

func TestLogFilePathFallsBackToDefaultName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Dir = "/tmp/paychat-logs"
	cfg.Logging.Filename = ""

	if got := cfg.LogFilePath(); got != filepath.Join("/tmp/paychat-logs", "paychat.log") {
		t.Fatalf("unexpected log path: %q", got)
	}
}
