package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// initEngine initialises the engine with the bounded retry budget
// shared by startup and recovery. Returns the attempts consumed; on
// success the session identifier is refreshed for status surfaces.
// Backoff sleeps are stop-aware — a stop request abandons the budget
// with errInterrupted.
func (s *Supervisor) initEngine(ctx context.Context) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxInitRetries; attempt++ {
		if s.stopRequested() {
			return attempt - 1, errInterrupted
		}

		err := s.cfg.Engine.Init(ctx)
		if err == nil {
			s.mu.Lock()
			s.sessionID = s.cfg.Engine.SessionID()
			s.engineLive = true
			s.mu.Unlock()
			s.logger.Info("engine initialised",
				"attempt", attempt,
				"session_id", s.SessionID(),
			)
			return attempt, nil
		}

		lastErr = err
		s.logger.Warn("engine init failed",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxInitRetries,
			"error", err,
		)
		if attempt < s.cfg.MaxInitRetries {
			if !s.settle(s.cfg.InitRetryBackoff) {
				return attempt, errInterrupted
			}
		}
	}
	return s.cfg.MaxInitRetries, fmt.Errorf("init exhausted %d attempts: %w", s.cfg.MaxInitRetries, lastErr)
}

// recoverEngine replaces the live engine instance: abort → drain →
// settle → shutdown → settle → re-init. Steps before the re-init are
// best-effort — log and continue — because they act on an instance
// already presumed broken. Success means the re-init succeeded;
// nothing less counts.
func (s *Supervisor) recoverEngine(ctx context.Context) (int, error) {
	if s.hasLiveEngine() {
		s.cfg.Engine.Abort()
		s.cfg.Engine.Drain()
		if !s.settle(s.cfg.AbortSettleDelay) {
			return 0, errInterrupted
		}
	}

	if err := s.cfg.Engine.Shutdown(); err != nil {
		s.logger.Warn("engine shutdown during recovery", "error", err)
	}
	s.mu.Lock()
	s.engineLive = false
	s.mu.Unlock()

	// Audio devices and model memory need a beat to release before the
	// rebuild grabs them again.
	if !s.settle(s.cfg.ShutdownSettleDelay) {
		return 0, errInterrupted
	}

	attempts, err := s.initEngine(ctx)
	if err != nil {
		if errors.Is(err, errInterrupted) {
			return attempts, err
		}
		return attempts, fmt.Errorf("%w: %w", ErrRecoveryFailed, err)
	}
	return attempts, nil
}

// runRecovery drives one RECOVERING episode and reports whether the
// loop may resume RUNNING. On success the failure counter resets —
// only now, never on mere completion of the sequence — and the health
// slate is wiped. A stop request during recovery ends the loop STOPPED;
// anything else that prevents re-init ends it FAILED.
func (s *Supervisor) runRecovery(ctx context.Context) bool {
	s.transition(StateRecovering)
	s.recoveries.Add(1)

	start := time.Now()
	attempts, err := s.recoverEngine(ctx)
	duration := time.Since(start)

	switch {
	case err == nil:
		s.mu.Lock()
		s.consecutiveFailures = 0
		s.lastActivity = time.Now()
		s.healthVerdict = nil
		s.lastHealthErr = nil
		s.mu.Unlock()
		s.logger.Info("engine recovered",
			"attempts", attempts,
			"duration", duration,
			"session_id", s.SessionID(),
		)
		if s.cfg.OnRecovery != nil {
			s.cfg.OnRecovery(true, attempts, duration)
		}
		s.transition(StateRunning)
		return true

	case errors.Is(err, errInterrupted):
		s.logger.Info("recovery interrupted by stop request")
		s.transition(StateStopped)
		return false

	default:
		s.logger.Error("recovery failed",
			"attempts", attempts,
			"duration", duration,
			"error", err,
		)
		if s.cfg.OnRecovery != nil {
			s.cfg.OnRecovery(false, attempts, duration)
		}
		s.transition(StateFailed)
		return false
	}
}
