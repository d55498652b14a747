package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Shield the asserted keys from the ambient environment and from any
	// stray .env file; empty values make Load fall back to its defaults.
	for _, key := range []string{
		"ENGINE_IMBALANCE_THRESHOLD",
		"ENGINE_REBALANCE_INTERVAL_SECONDS",
		"ENGINE_DEFAULT_QUEUE_CAPACITY",
		"APP_HOST",
		"APP_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Engine.ImbalanceThreshold != 2 {
		t.Errorf("ImbalanceThreshold = %d, want 2", cfg.Engine.ImbalanceThreshold)
	}
	if cfg.Engine.DefaultQueueCapacity != 50 {
		t.Errorf("DefaultQueueCapacity = %d, want 50", cfg.Engine.DefaultQueueCapacity)
	}
	if got := cfg.Engine.RebalanceInterval(); got != 30*time.Second {
		t.Errorf("RebalanceInterval = %v, want 30s", got)
	}
	if got := cfg.App.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr = %s, want 0.0.0.0:8080", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENGINE_IMBALANCE_THRESHOLD", "4")
	t.Setenv("ENGINE_REBALANCE_INTERVAL_SECONDS", "10")
	t.Setenv("ENGINE_OVERFLOW_QUEUE_IDS", "q-spill, q-extra")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Engine.ImbalanceThreshold != 4 {
		t.Errorf("ImbalanceThreshold = %d, want 4", cfg.Engine.ImbalanceThreshold)
	}
	if got := cfg.Engine.RebalanceInterval(); got != 10*time.Second {
		t.Errorf("RebalanceInterval = %v, want 10s", got)
	}
	if !cfg.Engine.IsOverflowQueue("q-spill") || !cfg.Engine.IsOverflowQueue("q-extra") {
		t.Errorf("overflow queues not parsed: %v", cfg.Engine.OverflowQueueIDs)
	}
	if cfg.Engine.IsOverflowQueue("q-normal") {
		t.Error("q-normal wrongly treated as overflow")
	}
	if cfg.App.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.App.Port)
	}
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	t.Setenv("ENGINE_IMBALANCE_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Fatal("threshold below 1 should fail validation")
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("ENGINE_CONFLICT_RETRY_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.ConflictRetryAttempts != 3 {
		t.Errorf("ConflictRetryAttempts = %d, want default 3", cfg.Engine.ConflictRetryAttempts)
	}
}
