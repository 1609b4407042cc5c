package zencourt_test

import (
	"path/filepath"
	"testing"
	"time"

	zencourt "github.com/cladams7905/zencourt-sub006"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := zencourt.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Generation.Concurrency != 3 {
		t.Errorf("Generation.Concurrency = %d, want 3", cfg.Generation.Concurrency)
	}
	if cfg.Webhook.MaxRetries != 5 {
		t.Errorf("Webhook.MaxRetries = %d, want 5", cfg.Webhook.MaxRetries)
	}
	if cfg.Inbound.Tolerance != 5*time.Minute {
		t.Errorf("Inbound.Tolerance = %v, want 5m", cfg.Inbound.Tolerance)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "4")
	t.Setenv("PROVIDER_FAILURE_THRESHOLD", "7")
	t.Setenv("PROVIDER_COOLDOWN", "90s")
	t.Setenv("INBOUND_WEBHOOK_SECRET", "shh")
	t.Setenv("GENERATION_CONCURRENCY", "5")

	cfg, err := zencourt.LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Dispatch.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.FailureThreshold != 7 {
		t.Errorf("FailureThreshold = %d, want 7", cfg.Dispatch.FailureThreshold)
	}
	if cfg.Dispatch.Cooldown != 90*time.Second {
		t.Errorf("Cooldown = %v, want 90s", cfg.Dispatch.Cooldown)
	}
	if cfg.Inbound.Secret != "shh" {
		t.Errorf("Inbound.Secret = %q, want %q", cfg.Inbound.Secret, "shh")
	}
	if cfg.Generation.Concurrency != 5 {
		t.Errorf("Generation.Concurrency = %d, want 5", cfg.Generation.Concurrency)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("GENERATION_CONCURRENCY", "0")

	if _, err := zencourt.LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected validation error for zero concurrency")
	}
}
