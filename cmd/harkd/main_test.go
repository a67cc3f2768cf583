package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HARK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidEngineBackend verifies config validation failures
// surface before any component starts.
func TestRun_InvalidEngineBackend(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  backend: whisper

database:
  path: "` + filepath.Join(tmpDir, "hark.db") + `"

api:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("HARK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with unknown engine backend")
	}
}

// TestRun_CleanShutdown runs the full daemon with simulated engine and
// audio, then cancels the context and expects a clean exit.
func TestRun_CleanShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping daemon lifecycle test in short mode")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  backend: sim
  options:
    interval_ms: "20"

audio:
  backend: sim

supervisor:
  transcription_timeout: 1
  health_check_interval: 1
  cycle_delay_ms: 10
  drain_timeout: 2

database:
  path: "` + filepath.Join(tmpDir, "hark.db") + `"

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("HARK_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Let a few units of work complete before shutting down.
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v, want clean shutdown", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after context cancellation")
	}
}

// TestGetConfigPath verifies environment override of the config path.
func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("HARK_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("HARK_CONFIG", "/etc/hark/config.yaml")
		if got := getConfigPath(); got != "/etc/hark/config.yaml" {
			t.Errorf("getConfigPath() = %q, want env value", got)
		}
	})
}
