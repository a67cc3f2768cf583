package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// State identifies where the supervisor loop is in its lifecycle.
type State string

const (
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateRecovering State = "recovering"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
)

// Terminal reports whether the state ends the loop.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// UnitOutcome classifies how one unit of work ended.
type UnitOutcome string

const (
	UnitCompleted UnitOutcome = "completed"
	UnitTimedOut  UnitOutcome = "timeout"
	UnitFailed    UnitOutcome = "error"
)

// Defaults applied by New for zero-valued tunables.
const (
	DefaultTranscriptionTimeout   = 30 * time.Second
	DefaultHealthCheckInterval    = 10 * time.Second
	DefaultMaxConsecutiveFailures = 3
	DefaultMaxInitRetries         = 3
	DefaultAbortSettleDelay       = 1 * time.Second
	DefaultShutdownSettleDelay    = 2 * time.Second
	DefaultInitRetryBackoff       = 2 * time.Second
	DefaultCycleDelay             = 100 * time.Millisecond
	DefaultDrainTimeout           = 5 * time.Second
)

// Engine is the lifecycle surface of the transcription engine the
// supervisor drives. Implemented by *engine.Handle.
type Engine interface {
	// Init constructs a fresh engine instance. Retried by the
	// supervisor's retry budget, never internally.
	Init(ctx context.Context) error

	// RunUnit performs one blocking unit of work, delivering completed
	// sentences to onText as they finish. May block indefinitely;
	// deadline protection belongs to the supervisor's worker pool.
	RunUnit(onText func(text string)) error

	// Abort is a best-effort request to break a blocking unit. Must
	// tolerate a handle with no live engine.
	Abort()

	// Drain discards buffered audio/work so the next unit starts clean.
	Drain()

	// Shutdown releases the engine instance. Idempotent.
	Shutdown() error

	// SessionID identifies the current engine generation.
	SessionID() string
}

// Segment is one completed sentence, stamped with the engine generation
// that produced it and a monotonic sequence number.
type Segment struct {
	SessionID  string
	Sequence   uint64
	Text       string
	CapturedAt time.Time
}

// TextConsumer receives completed segments. Deliver runs on the worker
// goroutine executing the unit, so implementations must return promptly
// and swallow their own failures — delivery is fire-and-forget from the
// supervisor's side.
type TextConsumer interface {
	Deliver(segment Segment)
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds supervisor construction parameters. Zero-valued tunables
// take the package defaults. Callbacks are invoked from the supervisor
// goroutine and must not block.
type Config struct {
	// Engine is the transcription engine handle to supervise. Required.
	Engine Engine

	// Consumer receives completed segments. Segments are dropped when nil.
	Consumer TextConsumer

	// TranscriptionTimeout bounds one unit of work, wall-clock.
	TranscriptionTimeout time.Duration

	// HealthCheckInterval is the monitor cadence.
	HealthCheckInterval time.Duration

	// MaxConsecutiveFailures is the recovery escalation threshold.
	MaxConsecutiveFailures int

	// MaxInitRetries bounds engine (re)initialisation attempts, both at
	// startup and inside recovery.
	MaxInitRetries int

	// AbortSettleDelay follows abort/drain during recovery.
	AbortSettleDelay time.Duration

	// ShutdownSettleDelay lets OS resources release after shutdown.
	ShutdownSettleDelay time.Duration

	// InitRetryBackoff separates init attempts.
	InitRetryBackoff time.Duration

	// CycleDelay separates loop cycles so an instantly-returning engine
	// cannot busy-spin the loop.
	CycleDelay time.Duration

	// DrainTimeout bounds the worker pool drain during cleanup.
	DrainTimeout time.Duration

	// OnStateChange fires on every state transition.
	OnStateChange func(from, to State)

	// OnUnitOutcome fires after every unit of work.
	OnUnitOutcome func(outcome UnitOutcome, duration time.Duration)

	// OnRecovery fires after every completed recovery sequence. Not
	// fired when a stop request abandons the sequence mid-flight.
	OnRecovery func(ok bool, attempts int, duration time.Duration)
}

// Supervisor keeps one transcription engine alive. All mutable state is
// owned by the loop goroutine; the stop signal is the only field other
// goroutines touch, and the sequence/delivery counters are atomics
// because they are written from worker goroutines.
type Supervisor struct {
	cfg    Config
	logger Logger
	pool   *pool

	mu                  sync.RWMutex
	state               State
	sessionID           string
	consecutiveFailures int
	processing          bool
	lastActivity        time.Time
	engineLive          bool
	healthVerdict       error
	lastHealthErr       error
	started             bool

	unitsCompleted atomic.Uint64
	unitsTimedOut  atomic.Uint64
	unitsFailed    atomic.Uint64
	segments       atomic.Uint64
	recoveries     atomic.Uint64
	seq            atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a supervisor for the given engine.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Engine == nil {
		return nil, errors.New("supervisor: engine is required")
	}

	// Apply defaults for zero values
	if cfg.TranscriptionTimeout <= 0 {
		cfg.TranscriptionTimeout = DefaultTranscriptionTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if cfg.MaxInitRetries <= 0 {
		cfg.MaxInitRetries = DefaultMaxInitRetries
	}
	if cfg.AbortSettleDelay <= 0 {
		cfg.AbortSettleDelay = DefaultAbortSettleDelay
	}
	if cfg.ShutdownSettleDelay <= 0 {
		cfg.ShutdownSettleDelay = DefaultShutdownSettleDelay
	}
	if cfg.InitRetryBackoff <= 0 {
		cfg.InitRetryBackoff = DefaultInitRetryBackoff
	}
	if cfg.CycleDelay <= 0 {
		cfg.CycleDelay = DefaultCycleDelay
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}

	return &Supervisor{
		cfg:    cfg,
		logger: noopLogger{},
		pool:   newPool(poolCapacity),
		state:  StateStarting,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// SetLogger sets the logger for the supervisor. Call before Start.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the loop goroutine. A cancelled ctx acts as a stop
// request, so signal-bound contexts shut the loop down cleanly. Returns
// ErrAlreadyRunning on a second call; a finished supervisor is not
// restartable — construct a fresh one instead.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("supervisor starting",
		"transcription_timeout", s.cfg.TranscriptionTimeout,
		"health_check_interval", s.cfg.HealthCheckInterval,
		"max_consecutive_failures", s.cfg.MaxConsecutiveFailures,
		"max_init_retries", s.cfg.MaxInitRetries,
	)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	go s.run(ctx)

	return nil
}

// Stop signals the loop to wind down and returns immediately. Safe to
// call from any goroutine, any number of times. Wait on Done for the
// loop to finish its cleanup.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("supervisor stop requested")
		close(s.stopCh)
	})
}

// Done closes when the loop has fully exited, cleanup included.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SessionID returns the identifier of the current engine generation.
// Empty until the first successful initialisation.
func (s *Supervisor) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// run is the supervisor loop. It owns every state transition and is
// the only caller of recovery, so recovery can never race an in-flight
// submission. Cleanup runs exactly once, whatever path ends the loop.
func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	monitorStop := make(chan struct{})
	monitorDone := make(chan struct{})
	go s.monitor(monitorStop, monitorDone)

	defer s.cleanup()
	defer func() {
		close(monitorStop)
		<-monitorDone
	}()

	// STARTING: same bounded budget as recovery's re-init step.
	attempts, err := s.initEngine(ctx)
	switch {
	case errors.Is(err, errInterrupted):
		s.transition(StateStopped)
		return
	case err != nil:
		s.logger.Error("engine start failed", "attempts", attempts, "error", err)
		s.transition(StateFailed)
		return
	}

	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
	s.transition(StateRunning)

	for {
		if s.stopRequested() {
			s.transition(StateStopped)
			return
		}

		if s.consumeVerdict() {
			if !s.runRecovery(ctx) {
				return
			}
			continue
		}

		if outcome := s.runUnit(); outcome != UnitCompleted {
			s.mu.RLock()
			failures := s.consecutiveFailures
			s.mu.RUnlock()
			if failures >= s.cfg.MaxConsecutiveFailures {
				s.logger.Warn("failure threshold reached",
					"consecutive_failures", failures,
					"threshold", s.cfg.MaxConsecutiveFailures,
				)
				if !s.runRecovery(ctx) {
					return
				}
				continue
			}
		}

		s.settle(s.cfg.CycleDelay)
	}
}

// runUnit submits one unit of work and does all the bookkeeping for
// its outcome. processing is true exactly while the loop is waiting on
// the pool; an abandoned unit running beyond the deadline no longer
// counts as processing, because the loop has moved on.
func (s *Supervisor) runUnit() UnitOutcome {
	s.mu.Lock()
	s.processing = true
	s.lastActivity = time.Now()
	s.mu.Unlock()

	start := time.Now()
	err := s.pool.submit(s.cfg.TranscriptionTimeout, s.unit)
	duration := time.Since(start)

	var outcome UnitOutcome
	s.mu.Lock()
	s.processing = false
	switch {
	case err == nil:
		outcome = UnitCompleted
		s.consecutiveFailures = 0
		s.lastActivity = time.Now()
	case errors.Is(err, ErrTimeout):
		outcome = UnitTimedOut
		s.consecutiveFailures++
	default:
		outcome = UnitFailed
		s.consecutiveFailures++
	}
	failures := s.consecutiveFailures
	s.mu.Unlock()

	switch outcome {
	case UnitCompleted:
		s.unitsCompleted.Add(1)
		s.logger.Debug("unit of work completed", "duration", duration)
	case UnitTimedOut:
		s.unitsTimedOut.Add(1)
		s.logger.Warn("unit of work timed out",
			"timeout", s.cfg.TranscriptionTimeout,
			"consecutive_failures", failures,
		)
	case UnitFailed:
		s.unitsFailed.Add(1)
		s.logger.Warn("unit of work failed",
			"error", err,
			"duration", duration,
			"consecutive_failures", failures,
		)
	}

	if s.cfg.OnUnitOutcome != nil {
		s.cfg.OnUnitOutcome(outcome, duration)
	}
	return outcome
}

// unit is the closure handed to the pool: one blocking engine call.
// The session is captured at submission so sentences from a unit that
// outlives a recovery keep the generation they were spoken under.
func (s *Supervisor) unit() error {
	sessionID := s.cfg.Engine.SessionID()
	return s.cfg.Engine.RunUnit(func(text string) {
		s.deliver(sessionID, text)
	})
}

// deliver hands one completed sentence to the consumer. Runs on the
// worker goroutine, so it touches only atomics and the consumer.
func (s *Supervisor) deliver(sessionID, text string) {
	if s.cfg.Consumer == nil {
		return
	}
	s.cfg.Consumer.Deliver(Segment{
		SessionID:  sessionID,
		Sequence:   s.seq.Add(1),
		Text:       text,
		CapturedAt: time.Now(),
	})
	s.segments.Add(1)
}

// cleanup releases the engine and drains the pool. Errors are logged
// and never re-raised; nothing here may block shutdown beyond the
// bounded drain.
func (s *Supervisor) cleanup() {
	s.logger.Info("supervisor cleanup started")

	if err := s.cfg.Engine.Shutdown(); err != nil {
		s.logger.Warn("engine shutdown during cleanup", "error", err)
	}
	s.mu.Lock()
	s.engineLive = false
	s.mu.Unlock()

	if !s.pool.drain(s.cfg.DrainTimeout) {
		s.logger.Warn("worker pool did not quiesce", "timeout", s.cfg.DrainTimeout)
	}

	s.logger.Info("supervisor cleanup complete")
}

// transition moves the loop to next, logging and notifying on change.
func (s *Supervisor) transition(next State) {
	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Info("supervisor state changed", "from", prev, "to", next)
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(prev, next)
	}
}

// stopRequested reports whether Stop has been called.
func (s *Supervisor) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// settle sleeps for d unless a stop request lands first. Reports false
// when interrupted, so startup and recovery sequences can bail out
// mid-flight instead of finishing against a dead loop.
func (s *Supervisor) settle(d time.Duration) bool {
	if d <= 0 {
		return !s.stopRequested()
	}
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// hasLiveEngine reports whether an engine instance has been initialised
// and not yet shut down. Recovery skips abort/drain when there is
// nothing live to act on.
func (s *Supervisor) hasLiveEngine() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engineLive
}

// Stats is a point-in-time snapshot of supervisor activity.
type Stats struct {
	State               State     `json:"state"`
	SessionID           string    `json:"session_id,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Processing          bool      `json:"processing"`
	LastActivity        time.Time `json:"last_activity"`
	UnitsCompleted      uint64    `json:"units_completed"`
	UnitsTimedOut       uint64    `json:"units_timed_out"`
	UnitsFailed         uint64    `json:"units_failed"`
	SegmentsDelivered   uint64    `json:"segments_delivered"`
	Recoveries          uint64    `json:"recoveries"`
	LastHealthError     string    `json:"last_health_error,omitempty"`
}

// Stats returns current supervisor statistics. Recoveries counts
// recovery sequences started, successful or not.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		State:               s.state,
		SessionID:           s.sessionID,
		ConsecutiveFailures: s.consecutiveFailures,
		Processing:          s.processing,
		LastActivity:        s.lastActivity,
		UnitsCompleted:      s.unitsCompleted.Load(),
		UnitsTimedOut:       s.unitsTimedOut.Load(),
		UnitsFailed:         s.unitsFailed.Load(),
		SegmentsDelivered:   s.segments.Load(),
		Recoveries:          s.recoveries.Load(),
	}
	if s.lastHealthErr != nil {
		stats.LastHealthError = s.lastHealthErr.Error()
	}
	return stats
}
