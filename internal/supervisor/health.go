package supervisor

import (
	"fmt"
	"time"
)

// healthSnapshot is an ephemeral read of the loop's liveness fields,
// taken under lock and evaluated without one.
type healthSnapshot struct {
	processing          bool
	lastActivity        time.Time
	consecutiveFailures int
}

// checkHealth is a pure verdict function: unhealthy when a unit has
// been processing past the transcription timeout (stall), or when
// consecutive failures have reached the threshold. It never mutates
// supervisor state.
func checkHealth(snap healthSnapshot, now time.Time, timeout time.Duration, maxFailures int) error {
	if snap.processing {
		if idle := now.Sub(snap.lastActivity); idle > timeout {
			return fmt.Errorf("%w: no activity for %v", ErrStalled, idle.Round(time.Millisecond))
		}
	}
	if snap.consecutiveFailures >= maxFailures {
		return fmt.Errorf("%w: %d consecutive failures", ErrFailureThreshold, snap.consecutiveFailures)
	}
	return nil
}

// observeHealth takes one reading and records any unhealthy verdict for
// the loop to consume. Skipped outside RUNNING: health has no meaning
// while the loop is starting, recovering or winding down.
func (s *Supervisor) observeHealth(now time.Time) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	snap := healthSnapshot{
		processing:          s.processing,
		lastActivity:        s.lastActivity,
		consecutiveFailures: s.consecutiveFailures,
	}
	s.mu.Unlock()

	err := checkHealth(snap, now, s.cfg.TranscriptionTimeout, s.cfg.MaxConsecutiveFailures)
	if err == nil {
		s.logger.Debug("health check passed",
			"consecutive_failures", snap.consecutiveFailures,
			"processing", snap.processing,
		)
		return
	}

	s.logger.Warn("health check failed", "reason", err)
	s.mu.Lock()
	s.healthVerdict = err
	s.lastHealthErr = err
	s.mu.Unlock()
}

// monitor runs health observations on a fixed cadence, independent of
// the submit cadence. It is the backstop for stalls the pool's own
// deadline cannot see; the loop, not the monitor, acts on verdicts.
func (s *Supervisor) monitor(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.observeHealth(time.Now())
		}
	}
}

// takeHealthVerdict consumes the recorded verdict, if any. One-shot:
// the loop re-validates with a fresh check before acting, because the
// recorded verdict may predate a recovery or a successful unit.
func (s *Supervisor) takeHealthVerdict() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	verdict := s.healthVerdict
	s.healthVerdict = nil
	return verdict
}

// consumeVerdict checks the monitor's recorded verdict against a fresh
// evaluation. True means the loop must escalate to recovery; a stale
// verdict that no longer holds is discarded.
func (s *Supervisor) consumeVerdict() bool {
	verdict := s.takeHealthVerdict()
	if verdict == nil {
		return false
	}
	if err := s.healthNow(); err != nil {
		s.logger.Warn("unhealthy, escalating to recovery", "reason", err)
		return true
	}
	s.logger.Debug("recorded health verdict no longer holds", "verdict", verdict)
	return false
}

// healthNow evaluates a fresh snapshot immediately.
func (s *Supervisor) healthNow() error {
	s.mu.RLock()
	snap := healthSnapshot{
		processing:          s.processing,
		lastActivity:        s.lastActivity,
		consecutiveFailures: s.consecutiveFailures,
	}
	s.mu.RUnlock()
	return checkHealth(snap, time.Now(), s.cfg.TranscriptionTimeout, s.cfg.MaxConsecutiveFailures)
}
