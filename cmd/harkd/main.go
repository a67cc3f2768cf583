// Hark - supervised continuous speech transcription service
//
// This is the main entry point for the Hark daemon. Hark keeps a
// long-running transcription call into an opaque speech engine alive
// indefinitely: every unit of work runs under a hard deadline, an
// independent health monitor catches stalls, and a bounded recovery
// procedure rebuilds the engine when it degrades.
//
// Transcribed sentences fan out to MQTT, SQLite, InfluxDB and the
// WebSocket stream, all selected purely by configuration so the same
// binary runs from a laptop (sim engine, everything disabled) to a
// full deployment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hark-stt/hark-core/migrations"

	"github.com/hark-stt/hark-core/internal/api"
	"github.com/hark-stt/hark-core/internal/audio"
	"github.com/hark-stt/hark-core/internal/engine"
	"github.com/hark-stt/hark-core/internal/infrastructure/config"
	"github.com/hark-stt/hark-core/internal/infrastructure/database"
	"github.com/hark-stt/hark-core/internal/infrastructure/influxdb"
	"github.com/hark-stt/hark-core/internal/infrastructure/logging"
	"github.com/hark-stt/hark-core/internal/infrastructure/mqtt"
	"github.com/hark-stt/hark-core/internal/langid"
	"github.com/hark-stt/hark-core/internal/supervisor"
	"github.com/hark-stt/hark-core/internal/transcript"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hark",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Open the audio source
	src, err := buildAudioSource(cfg)
	if err != nil {
		return fmt.Errorf("creating audio source: %w", err)
	}
	defer func() {
		log.Info("closing audio source")
		if closeErr := src.Close(); closeErr != nil {
			log.Error("error closing audio source", "error", closeErr)
		}
	}()
	log.Info("audio source ready", "backend", cfg.Audio.Backend)

	// Build the engine handle. The supervisor owns initialisation, so a
	// missing model or microphone surfaces through its retry budget
	// rather than here.
	factory, err := engine.FactoryFor(cfg.Engine.Backend)
	if err != nil {
		return fmt.Errorf("selecting engine backend: %w", err)
	}
	handle := engine.NewHandle(engine.Config{
		Backend:    cfg.Engine.Backend,
		ModelPath:  cfg.Engine.ModelPath,
		SampleRate: cfg.Engine.SampleRate,
		Language:   cfg.Engine.Language,
		Options:    cfg.Engine.Options,
	}, src, factory)
	handle.SetLogger(log)
	log.Info("engine handle created", "backend", cfg.Engine.Backend)

	// Assemble the transcript pipeline: hub and sinks first, then the
	// pipeline itself, so the supervisor is born with its consumer.
	hub := api.NewHub(cfg.WebSocket, log)

	sinks := []transcript.Sink{transcript.NewStore(db)}
	if mqttClient != nil {
		sinks = append(sinks, transcript.NewPublisher(mqttClient))
	}
	if influxClient != nil {
		sinks = append(sinks, transcript.NewMetricsSink(influxClient))
	}
	if cfg.API.Enabled {
		sinks = append(sinks, hub)
	}

	pipeline := transcript.New(transcript.Config{
		Detector:            buildDetector(cfg),
		ExpectedLanguage:    expectedLanguage(cfg),
		ConfidenceThreshold: cfg.Language.ConfidenceThreshold,
	}, sinks...)
	pipeline.SetLogger(log)
	log.Info("transcript pipeline assembled", "sinks", len(sinks))

	// Create the supervisor. The callbacks close over sup, which is
	// assigned before Start - they only ever fire from the running loop.
	var sup *supervisor.Supervisor
	sup, err = supervisor.New(supervisor.Config{
		Engine:                 handle,
		Consumer:               pipeline,
		TranscriptionTimeout:   cfg.Supervisor.GetTranscriptionTimeout(),
		HealthCheckInterval:    cfg.Supervisor.GetHealthCheckInterval(),
		MaxConsecutiveFailures: cfg.Supervisor.MaxConsecutiveFailures,
		MaxInitRetries:         cfg.Supervisor.MaxInitRetries,
		InitRetryBackoff:       cfg.Supervisor.GetInitRetryDelay(),
		AbortSettleDelay:       cfg.Supervisor.GetAbortSettleDelay(),
		ShutdownSettleDelay:    cfg.Supervisor.GetShutdownSettleDelay(),
		CycleDelay:             cfg.Supervisor.GetCycleDelay(),
		DrainTimeout:           cfg.Supervisor.GetDrainTimeout(),
		OnStateChange: func(from, to supervisor.State) {
			if influxClient != nil {
				influxClient.WriteStateChange(string(to), sup.Stats().ConsecutiveFailures)
			}
			publishSupervisorEvent(mqttClient, log, supervisorEvent{
				Type:      "stateChange",
				From:      string(from),
				To:        string(to),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		},
		OnUnitOutcome: func(outcome supervisor.UnitOutcome, duration time.Duration) {
			if influxClient != nil {
				influxClient.WriteUnitOutcome(string(outcome), duration)
			}
		},
		OnRecovery: func(ok bool, attempts int, duration time.Duration) {
			if influxClient != nil {
				influxClient.WriteRecovery(ok, attempts, duration)
			}
			publishSupervisorEvent(mqttClient, log, supervisorEvent{
				Type:       "recovery",
				Success:    &ok,
				Attempts:   attempts,
				DurationMs: duration.Milliseconds(),
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
			})
		},
	})
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}
	sup.SetLogger(log)

	// Start the status reporter (needs MQTT)
	if mqttClient != nil {
		reporter, repErr := supervisor.NewReporter(supervisor.ReporterConfig{
			Supervisor: sup,
			Broker:     &supervisorBroker{client: mqttClient},
			Version:    version,
		})
		if repErr != nil {
			return fmt.Errorf("creating status reporter: %w", repErr)
		}
		reporter.SetLogger(log)
		if startErr := reporter.Start(ctx); startErr != nil {
			return fmt.Errorf("starting status reporter: %w", startErr)
		}
		defer func() {
			log.Info("stopping status reporter")
			reporter.Stop()
		}()
		log.Info("status reporter started")
	}

	// Start the API server (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Supervisor:  sup,
			Pipeline:    pipeline,
			Store:       transcript.NewStore(db),
			Components:  buildComponentChecks(db, mqttClient, influxClient),
			ExternalHub: hub,
			Version:     version,
			Commit:      commit,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	// Verify infrastructure connections are healthy before starting the loop
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Start the supervisor loop. From here the watchdog owns the engine;
	// a cancelled ctx acts as a stop request.
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("starting supervisor: %w", err)
	}
	log.Info("initialisation complete, supervisor running")

	// Wait for the loop to finish - on a shutdown signal, an MQTT stop
	// command, or an unrecoverable engine failure.
	<-sup.Done()

	finalState := sup.State()
	log.Info("supervisor finished", "state", finalState)

	// Deferred Close() calls will run in reverse order:
	// API server, reporter, audio source, InfluxDB, MQTT, database.

	if finalState == supervisor.StateFailed {
		return fmt.Errorf("supervisor ended in failed state (engine unrecoverable)")
	}

	log.Info("Hark stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HARK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HARK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildAudioSource creates the configured audio capture source.
func buildAudioSource(cfg *config.Config) (audio.Source, error) {
	audioCfg := audio.Config{
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Channels:        cfg.Audio.Channels,
	}

	switch cfg.Audio.Backend {
	case "portaudio":
		return audio.New(audioCfg)
	case "sim":
		return audio.NewSim(audioCfg), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Audio.Backend)
	}
}

// buildDetector creates the configured language detector, or nil when
// language handling is disabled.
func buildDetector(cfg *config.Config) langid.Detector {
	if !cfg.Language.Enabled {
		return nil
	}
	switch cfg.Language.Detector {
	case "noop":
		return langid.Noop{}
	default:
		return langid.NewHeuristic()
	}
}

// expectedLanguage returns the language code mismatches are validated
// against, or empty when validation is disabled.
func expectedLanguage(cfg *config.Config) string {
	if !cfg.Language.Enabled {
		return ""
	}
	return cfg.Language.Expected
}

// buildComponentChecks assembles the /healthz component probes.
// The database is required; MQTT and InfluxDB degrade gracefully.
func buildComponentChecks(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) []api.ComponentCheck {
	checks := []api.ComponentCheck{
		{Name: "database", Required: true, Check: db.HealthCheck},
	}
	if mqttClient != nil {
		checks = append(checks, api.ComponentCheck{Name: "mqtt", Required: false, Check: mqttClient.HealthCheck})
	}
	if influxClient != nil {
		checks = append(checks, api.ComponentCheck{Name: "influxdb", Required: false, Check: influxClient.HealthCheck})
	}
	return checks
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// supervisorEvent is the JSON document published to the supervisor
// event topic on state transitions and recovery outcomes.
type supervisorEvent struct {
	Type       string `json:"type"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Success    *bool  `json:"success,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// publishSupervisorEvent publishes one event, best-effort. Events are
// ephemeral (non-retained); the reporter's retained health topic carries
// the current state for late subscribers.
func publishSupervisorEvent(client *mqtt.Client, log *logging.Logger, event supervisorEvent) {
	if client == nil || !client.IsConnected() {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("marshalling supervisor event", "error", err)
		return
	}
	topics := mqtt.Topics{}
	if err := client.Publish(topics.SupervisorEvent(), payload, 1, false); err != nil {
		log.Warn("publishing supervisor event", "type", event.Type, "error", err)
	}
}

// supervisorBroker adapts the infrastructure MQTT client to the
// supervisor reporter's Broker interface. The only difference is the
// Subscribe handler signature:
//   - Infrastructure mqtt: func(topic string, payload []byte) error
//   - Reporter expects:    func(topic string, payload []byte)
type supervisorBroker struct {
	client *mqtt.Client
}

// Publish implements supervisor.Broker.
func (b *supervisorBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return b.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements supervisor.Broker.
func (b *supervisorBroker) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (reporter handlers don't return errors)
	return b.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements supervisor.Broker.
func (b *supervisorBroker) IsConnected() bool {
	return b.client.IsConnected()
}
