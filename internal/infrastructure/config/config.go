package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hark.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Audio      AudioConfig      `yaml:"audio"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Language   LanguageConfig   `yaml:"language"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EngineConfig contains speech-engine settings.
//
// Options carries backend-specific key/value settings that are forwarded
// to the engine verbatim (e.g. sim phrase scripting).
type EngineConfig struct {
	Backend    string            `yaml:"backend"`
	ModelPath  string            `yaml:"model_path"`
	SampleRate int               `yaml:"sample_rate"`
	Language   string            `yaml:"language"`
	Options    map[string]string `yaml:"options"`
}

// AudioConfig contains audio capture settings.
type AudioConfig struct {
	Backend         string `yaml:"backend"`
	SampleRate      int    `yaml:"sample_rate"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
	Channels        int    `yaml:"channels"`
}

// SupervisorConfig contains watchdog tunables for the transcription loop.
//
// Durations are expressed as integer seconds unless the field name says
// otherwise; use the Get helpers to obtain time.Duration values.
type SupervisorConfig struct {
	TranscriptionTimeout   int `yaml:"transcription_timeout"`
	HealthCheckInterval    int `yaml:"health_check_interval"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
	MaxInitRetries         int `yaml:"max_init_retries"`
	InitRetryDelay         int `yaml:"init_retry_delay"`
	AbortSettleDelay       int `yaml:"abort_settle_delay"`
	ShutdownSettleDelay    int `yaml:"shutdown_settle_delay"`
	CycleDelayMs           int `yaml:"cycle_delay_ms"`
	DrainTimeout           int `yaml:"drain_timeout"`
}

// LanguageConfig contains advisory language validation settings.
type LanguageConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Expected            string  `yaml:"expected"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Detector            string  `yaml:"detector"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket transcript stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HARK_SECTION_KEY
// For example: HARK_DATABASE_PATH, HARK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The defaults favour a self-contained development setup: simulated engine
// and audio so harkd runs on any machine, external integrations disabled.
func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend:    "sim",
			SampleRate: 16000,
			Language:   "en",
		},
		Audio: AudioConfig{
			Backend:         "sim",
			SampleRate:      16000,
			FramesPerBuffer: 1024,
			Channels:        1,
		},
		Supervisor: SupervisorConfig{
			TranscriptionTimeout:   30,
			HealthCheckInterval:    10,
			MaxConsecutiveFailures: 3,
			MaxInitRetries:         3,
			InitRetryDelay:         2,
			AbortSettleDelay:       1,
			ShutdownSettleDelay:    2,
			CycleDelayMs:           100,
			DrainTimeout:           5,
		},
		Language: LanguageConfig{
			Enabled:             false,
			Expected:            "en",
			ConfidenceThreshold: 0.7,
			Detector:            "heuristic",
		},
		Database: DatabaseConfig{
			Path:        "./data/hark.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hark-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 1000,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HARK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Engine
	if v := os.Getenv("HARK_ENGINE_BACKEND"); v != "" {
		cfg.Engine.Backend = v
	}
	if v := os.Getenv("HARK_ENGINE_MODEL_PATH"); v != "" {
		cfg.Engine.ModelPath = v
	}
	if v := os.Getenv("HARK_ENGINE_LANGUAGE"); v != "" {
		cfg.Engine.Language = v
	}

	// Database
	if v := os.Getenv("HARK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HARK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HARK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HARK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HARK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HARK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("HARK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Engine validation
	switch c.Engine.Backend {
	case "vosk":
		if c.Engine.ModelPath == "" {
			errs = append(errs, "engine.model_path is required for the vosk backend")
		}
	case "sim":
		// No additional requirements
	default:
		errs = append(errs, fmt.Sprintf("engine.backend must be vosk or sim, got %q", c.Engine.Backend))
	}
	if c.Engine.SampleRate <= 0 {
		errs = append(errs, "engine.sample_rate must be positive")
	}

	// Audio validation
	switch c.Audio.Backend {
	case "portaudio", "sim":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("audio.backend must be portaudio or sim, got %q", c.Audio.Backend))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, "audio.sample_rate must be positive")
	}
	if c.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, "audio.frames_per_buffer must be positive")
	}

	// Supervisor validation
	if c.Supervisor.TranscriptionTimeout <= 0 {
		errs = append(errs, "supervisor.transcription_timeout must be positive")
	}
	if c.Supervisor.HealthCheckInterval <= 0 {
		errs = append(errs, "supervisor.health_check_interval must be positive")
	}
	if c.Supervisor.MaxConsecutiveFailures < 1 {
		errs = append(errs, "supervisor.max_consecutive_failures must be at least 1")
	}
	if c.Supervisor.MaxInitRetries < 1 {
		errs = append(errs, "supervisor.max_init_retries must be at least 1")
	}

	// Language validation
	if c.Language.ConfidenceThreshold < 0 || c.Language.ConfidenceThreshold > 1 {
		errs = append(errs, "language.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Language.Enabled && c.Language.Expected == "" {
		errs = append(errs, "language.expected is required when language validation is enabled")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTranscriptionTimeout returns the unit-of-work deadline as a Duration.
func (c SupervisorConfig) GetTranscriptionTimeout() time.Duration {
	return time.Duration(c.TranscriptionTimeout) * time.Second
}

// GetHealthCheckInterval returns the health monitor cadence as a Duration.
func (c SupervisorConfig) GetHealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckInterval) * time.Second
}

// GetInitRetryDelay returns the backoff between initialisation attempts.
func (c SupervisorConfig) GetInitRetryDelay() time.Duration {
	return time.Duration(c.InitRetryDelay) * time.Second
}

// GetAbortSettleDelay returns the pause after aborting the engine during recovery.
func (c SupervisorConfig) GetAbortSettleDelay() time.Duration {
	return time.Duration(c.AbortSettleDelay) * time.Second
}

// GetShutdownSettleDelay returns the pause after shutting the engine down during
// recovery, letting OS-level resources release.
func (c SupervisorConfig) GetShutdownSettleDelay() time.Duration {
	return time.Duration(c.ShutdownSettleDelay) * time.Second
}

// GetCycleDelay returns the sleep between supervisor loop cycles.
func (c SupervisorConfig) GetCycleDelay() time.Duration {
	return time.Duration(c.CycleDelayMs) * time.Millisecond
}

// GetDrainTimeout returns the bound on waiting for abandoned units at cleanup.
func (c SupervisorConfig) GetDrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
