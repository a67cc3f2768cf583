package audio

import (
	"sync"
	"time"
)

// Sim is a capture source that produces silence at real-time pacing.
//
// It exists for development machines without a microphone and for tests:
// the simulated engine backend ignores audio content entirely, and the
// real backends treat silence as an utterance that never ends.
type Sim struct {
	cfg Config

	mu      sync.Mutex
	running bool
	closed  bool
	last    time.Time
}

// NewSim creates a silence source with the given capture parameters.
func NewSim(cfg Config) *Sim {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 1024
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Sim{cfg: cfg}
}

// Start begins producing silence.
func (s *Sim) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.running = true
	s.last = time.Now()
	return nil
}

// ReadChunk returns one buffer of silence, paced to wall-clock time so a
// consumer loop runs at the same rate it would against a real device.
func (s *Sim) ReadChunk() ([]int16, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	interval := time.Duration(s.cfg.FramesPerBuffer) * time.Second / time.Duration(s.cfg.SampleRate)
	elapsed := time.Since(s.last)
	if elapsed < interval {
		s.mu.Unlock()
		time.Sleep(interval - elapsed)
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return nil, ErrNotStarted
		}
	}
	s.last = time.Now()
	s.mu.Unlock()

	return make([]int16, s.cfg.FramesPerBuffer), nil
}

// Drain is a no-op; the simulated source holds no backlog.
func (s *Sim) Drain() {}

// Stop halts silence production. The source can be started again.
func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Close permanently shuts the source down.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.closed = true
	return nil
}
