package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FINGRAM_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg := Load()

	if cfg.APIBaseURL != "http://localhost:3002" {
		t.Errorf("default base URL = %q", cfg.APIBaseURL)
	}
	if cfg.DetectTimeout != 3*time.Second {
		t.Errorf("default detect timeout = %v", cfg.DetectTimeout)
	}
	if cfg.MockFailureRate != 0.1 {
		t.Errorf("default mock failure rate = %v", cfg.MockFailureRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "api_base_url: https://file.example\nlog_level: debug\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINGRAM_CONFIG", file)
	t.Setenv("FINGRAM_API_BASE_URL", "https://env.example")

	cfg := Load()
	if cfg.APIBaseURL != "https://env.example" {
		t.Errorf("env should win over file, got %q", cfg.APIBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("file value should survive when env is unset, got %q", cfg.LogLevel)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := defaults()
	cfg.APIBaseURL = "ftp://nope"
	cfg.LogLevel = "loud"
	cfg.MockFailureRate = 3
	cfg.DetectTimeout = time.Millisecond

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"scheme", "log level", "failure rate", "detect timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestStorePath(t *testing.T) {
	cfg := defaults()
	cfg.DataDir = "/tmp/fingram-test"
	if got := cfg.StorePath(); got != "/tmp/fingram-test/fingram.db" {
		t.Errorf("StorePath() = %q", got)
	}
}
