package supervisor

import (
	"errors"
	"testing"
	"time"
)

func TestCheckHealth(t *testing.T) {
	now := time.Now()
	timeout := 30 * time.Second
	maxFailures := 3

	tests := []struct {
		name string
		snap healthSnapshot
		want error
	}{
		{
			name: "idle and clean",
			snap: healthSnapshot{processing: false, lastActivity: now.Add(-time.Hour)},
			want: nil,
		},
		{
			name: "processing with fresh activity",
			snap: healthSnapshot{processing: true, lastActivity: now.Add(-time.Second)},
			want: nil,
		},
		{
			name: "processing past the timeout",
			snap: healthSnapshot{processing: true, lastActivity: now.Add(-31 * time.Second)},
			want: ErrStalled,
		},
		{
			name: "stale activity but not processing",
			snap: healthSnapshot{processing: false, lastActivity: now.Add(-time.Hour)},
			want: nil,
		},
		{
			name: "failures at threshold",
			snap: healthSnapshot{lastActivity: now, consecutiveFailures: 3},
			want: ErrFailureThreshold,
		},
		{
			name: "failures above threshold",
			snap: healthSnapshot{lastActivity: now, consecutiveFailures: 5},
			want: ErrFailureThreshold,
		},
		{
			name: "failures below threshold",
			snap: healthSnapshot{lastActivity: now, consecutiveFailures: 2},
			want: nil,
		},
		{
			name: "stall wins over failure count",
			snap: healthSnapshot{processing: true, lastActivity: now.Add(-time.Minute), consecutiveFailures: 3},
			want: ErrStalled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkHealth(tt.snap, now, timeout, maxFailures)
			if tt.want == nil {
				if err != nil {
					t.Errorf("checkHealth() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("checkHealth() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckHealthBoundary(t *testing.T) {
	now := time.Now()
	timeout := 10 * time.Second

	// Exactly at the timeout is not yet a stall; strictly past it is.
	at := healthSnapshot{processing: true, lastActivity: now.Add(-timeout)}
	if err := checkHealth(at, now, timeout, 3); err != nil {
		t.Errorf("checkHealth() at the deadline = %v, want nil", err)
	}

	past := healthSnapshot{processing: true, lastActivity: now.Add(-timeout - time.Millisecond)}
	if err := checkHealth(past, now, timeout, 3); !errors.Is(err, ErrStalled) {
		t.Errorf("checkHealth() past the deadline = %v, want ErrStalled", err)
	}
}

func TestObserveHealthRecordsVerdict(t *testing.T) {
	s := newTestSupervisor(t, &fakeEngine{})

	// Simulate a stalled RUNNING loop.
	s.mu.Lock()
	s.state = StateRunning
	s.processing = true
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	s.observeHealth(time.Now())

	s.mu.RLock()
	verdict := s.healthVerdict
	sticky := s.lastHealthErr
	s.mu.RUnlock()

	if !errors.Is(verdict, ErrStalled) {
		t.Errorf("recorded verdict = %v, want ErrStalled", verdict)
	}
	if !errors.Is(sticky, ErrStalled) {
		t.Errorf("last health error = %v, want ErrStalled", sticky)
	}

	// Consuming the verdict is one-shot.
	if got := s.takeHealthVerdict(); !errors.Is(got, ErrStalled) {
		t.Errorf("takeHealthVerdict() = %v, want ErrStalled", got)
	}
	if got := s.takeHealthVerdict(); got != nil {
		t.Errorf("second takeHealthVerdict() = %v, want nil", got)
	}
}

func TestObserveHealthSkippedOutsideRunning(t *testing.T) {
	s := newTestSupervisor(t, &fakeEngine{})

	for _, state := range []State{StateStarting, StateRecovering, StateStopped, StateFailed} {
		s.mu.Lock()
		s.state = state
		s.processing = true
		s.lastActivity = time.Now().Add(-time.Hour)
		s.healthVerdict = nil
		s.mu.Unlock()

		s.observeHealth(time.Now())

		s.mu.RLock()
		verdict := s.healthVerdict
		s.mu.RUnlock()
		if verdict != nil {
			t.Errorf("observeHealth() recorded %v in state %v, want skip", verdict, state)
		}
	}
}
