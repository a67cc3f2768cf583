package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
engine:
  backend: "sim"
  sample_rate: 16000
  language: "en"
supervisor:
  transcription_timeout: 20
  max_consecutive_failures: 3
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  enabled: true
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Backend != "sim" {
		t.Errorf("Engine.Backend = %q, want %q", cfg.Engine.Backend, "sim")
	}

	if cfg.Supervisor.TranscriptionTimeout != 20 {
		t.Errorf("Supervisor.TranscriptionTimeout = %d, want 20", cfg.Supervisor.TranscriptionTimeout)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	// A minimal file should leave unmentioned sections at their defaults.
	content := `
database:
  path: "/tmp/minimal.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Supervisor.TranscriptionTimeout != 30 {
		t.Errorf("Supervisor.TranscriptionTimeout = %d, want default 30", cfg.Supervisor.TranscriptionTimeout)
	}

	if cfg.Supervisor.HealthCheckInterval != 10 {
		t.Errorf("Supervisor.HealthCheckInterval = %d, want default 10", cfg.Supervisor.HealthCheckInterval)
	}

	if cfg.Engine.Backend != "sim" {
		t.Errorf("Engine.Backend = %q, want default %q", cfg.Engine.Backend, "sim")
	}

	if cfg.Database.Path != "/tmp/minimal.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/minimal.db")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
engine:
  backend: "vosk"
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// vosk backend without a model path must fail validation
	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for vosk without model_path, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name: "vosk with model path",
			mutate: func(c *Config) {
				c.Engine.Backend = "vosk"
				c.Engine.ModelPath = "/models/vosk-small-en"
			},
			wantErr: false,
		},
		{
			name: "vosk without model path",
			mutate: func(c *Config) {
				c.Engine.Backend = "vosk"
			},
			wantErr: true,
		},
		{
			name: "unknown engine backend",
			mutate: func(c *Config) {
				c.Engine.Backend = "whisper"
			},
			wantErr: true,
		},
		{
			name: "unknown audio backend",
			mutate: func(c *Config) {
				c.Audio.Backend = "alsa"
			},
			wantErr: true,
		},
		{
			name: "zero transcription timeout",
			mutate: func(c *Config) {
				c.Supervisor.TranscriptionTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "zero failure threshold",
			mutate: func(c *Config) {
				c.Supervisor.MaxConsecutiveFailures = 0
			},
			wantErr: true,
		},
		{
			name: "zero init retries",
			mutate: func(c *Config) {
				c.Supervisor.MaxInitRetries = 0
			},
			wantErr: true,
		},
		{
			name: "threshold above one",
			mutate: func(c *Config) {
				c.Language.ConfidenceThreshold = 1.5
			},
			wantErr: true,
		},
		{
			name: "language enabled without expected",
			mutate: func(c *Config) {
				c.Language.Enabled = true
				c.Language.Expected = ""
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			mutate: func(c *Config) {
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			mutate: func(c *Config) {
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "invalid API port low",
			mutate: func(c *Config) {
				c.API.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid API port high",
			mutate: func(c *Config) {
				c.API.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "bad port ignored when API disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestSupervisorConfig_GetDurations(t *testing.T) {
	cfg := SupervisorConfig{
		TranscriptionTimeout: 20,
		HealthCheckInterval:  10,
		InitRetryDelay:       2,
		AbortSettleDelay:     1,
		ShutdownSettleDelay:  2,
		CycleDelayMs:         100,
		DrainTimeout:         5,
	}

	if got := cfg.GetTranscriptionTimeout().Seconds(); got != 20 {
		t.Errorf("GetTranscriptionTimeout() = %v, want 20", got)
	}

	if got := cfg.GetHealthCheckInterval().Seconds(); got != 10 {
		t.Errorf("GetHealthCheckInterval() = %v, want 10", got)
	}

	if got := cfg.GetCycleDelay().Milliseconds(); got != 100 {
		t.Errorf("GetCycleDelay() = %v ms, want 100", got)
	}

	if got := cfg.GetDrainTimeout().Seconds(); got != 5 {
		t.Errorf("GetDrainTimeout() = %v, want 5", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("HARK_ENGINE_BACKEND", "vosk")
	t.Setenv("HARK_ENGINE_MODEL_PATH", "/models/vosk-small-en")
	t.Setenv("HARK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("HARK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("HARK_MQTT_USERNAME", "testuser")
	t.Setenv("HARK_MQTT_PASSWORD", "testpass")
	t.Setenv("HARK_API_HOST", "192.168.1.1")
	t.Setenv("HARK_API_PORT", "9090")
	t.Setenv("HARK_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Engine.Backend != "vosk" {
		t.Errorf("Engine.Backend = %q, want %q", cfg.Engine.Backend, "vosk")
	}

	if cfg.Engine.ModelPath != "/models/vosk-small-en" {
		t.Errorf("Engine.ModelPath = %q, want %q", cfg.Engine.ModelPath, "/models/vosk-small-en")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_InvalidPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("HARK_API_PORT", "not-a-number")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080 when override is unparseable", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Engine.Backend == "" {
		t.Error("defaultConfig should have non-empty Engine.Backend")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate cleanly, got %v", err)
	}
}
