package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Default reporter settings.
const (
	DefaultReportInterval = 30 * time.Second

	defaultHealthTopic  = "hark/supervisor/health"
	defaultCommandTopic = "hark/supervisor/command"

	reportQoS = 1
)

// Broker is the messaging surface the reporter needs. The bootstrap
// wires the infrastructure MQTT client in through a small adapter.
type Broker interface {
	// Publish sends a message to a topic with the specified QoS and
	// retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for messages on a topic.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool
}

// ReporterConfig holds configuration for the status reporter.
type ReporterConfig struct {
	// Supervisor is the loop being reported on. Required.
	Supervisor *Supervisor

	// Broker publishes reports and receives commands. Required.
	Broker Broker

	// Version is included in every report.
	Version string

	// Interval is how often to publish. Default 30 seconds.
	Interval time.Duration

	// HealthTopic overrides the retained status topic.
	HealthTopic string

	// CommandTopic overrides the inbound command topic.
	CommandTopic string
}

// Reporter periodically publishes supervisor health to the broker
// (retained, so late subscribers see the current state immediately)
// and serves the inbound command topic: "status" forces a report,
// "stop" requests a graceful supervisor stop. It runs beside the loop
// and never blocks it.
type Reporter struct {
	sup          *Supervisor
	broker       Broker
	version      string
	interval     time.Duration
	healthTopic  string
	commandTopic string
	startTime    time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewReporter creates a status reporter. Call Start to begin reporting.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if cfg.Supervisor == nil {
		return nil, errors.New("supervisor: reporter requires a supervisor")
	}
	if cfg.Broker == nil {
		return nil, errors.New("supervisor: reporter requires a broker")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReportInterval
	}
	if cfg.HealthTopic == "" {
		cfg.HealthTopic = defaultHealthTopic
	}
	if cfg.CommandTopic == "" {
		cfg.CommandTopic = defaultCommandTopic
	}

	return &Reporter{
		sup:          cfg.Supervisor,
		broker:       cfg.Broker,
		version:      cfg.Version,
		interval:     cfg.Interval,
		healthTopic:  cfg.HealthTopic,
		commandTopic: cfg.CommandTopic,
		startTime:    time.Now(),
		done:         make(chan struct{}),
		logger:       noopLogger{},
	}, nil
}

// SetLogger sets the logger for the reporter. Call before Start.
func (r *Reporter) SetLogger(logger Logger) {
	r.logger = logger
}

// Start subscribes to the command topic and begins periodic reporting.
func (r *Reporter) Start(ctx context.Context) error {
	if err := r.broker.Subscribe(r.commandTopic, reportQoS, r.handleCommand); err != nil {
		return err
	}

	r.wg.Add(1)
	go r.reportLoop(ctx)
	return nil
}

// Stop halts reporting and publishes a final status. Safe to call
// multiple times.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		// Final status is best-effort; the broker may already be gone.
		//nolint:errcheck // nothing to do if the farewell publish fails
		r.PublishNow()
	})
}

// PublishNow publishes the current health report immediately.
func (r *Reporter) PublishNow() error {
	if !r.broker.IsConnected() {
		r.logger.Debug("broker disconnected, skipping health report")
		return nil
	}

	stats := r.sup.Stats()
	report := healthReport{
		Status:        overallStatus(stats),
		Version:       r.version,
		UptimeSeconds: int64(time.Since(r.startTime).Seconds()),
		Stats:         stats,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.broker.Publish(r.healthTopic, payload, reportQoS, true)
}

// reportLoop publishes on the configured cadence until stopped.
func (r *Reporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.PublishNow(); err != nil {
		r.logger.Warn("publishing initial health report", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if err := r.PublishNow(); err != nil {
				r.logger.Warn("publishing health report", "error", err)
			}
		}
	}
}

// handleCommand serves the inbound command topic. Unknown actions are
// logged and ignored.
func (r *Reporter) handleCommand(topic string, payload []byte) {
	var cmd struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		r.logger.Warn("invalid supervisor command", "topic", topic, "error", err)
		return
	}

	switch cmd.Action {
	case "status":
		r.logger.Debug("status report requested")
		if err := r.PublishNow(); err != nil {
			r.logger.Warn("publishing requested health report", "error", err)
		}
	case "stop":
		r.logger.Info("stop command received")
		r.sup.Stop()
	default:
		r.logger.Warn("unknown supervisor command", "action", cmd.Action)
	}
}

// healthReport is the JSON document published to the health topic.
type healthReport struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Stats         Stats  `json:"stats"`
	Timestamp     string `json:"timestamp"`
}

// overallStatus condenses a stats snapshot into one word for
// dashboards and automations.
func overallStatus(stats Stats) string {
	switch stats.State {
	case StateRunning:
		if stats.ConsecutiveFailures > 0 {
			return "degraded"
		}
		return "healthy"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "starting"
	}
}
