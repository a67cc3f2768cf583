package audio

import (
	"errors"
	"testing"
	"time"
)

func TestSimReadBeforeStart(t *testing.T) {
	s := NewSim(Config{SampleRate: 16000, FramesPerBuffer: 160, Channels: 1})

	_, err := s.ReadChunk()
	if !errors.Is(err, ErrNotStarted) {
		t.Errorf("ReadChunk() error = %v, want ErrNotStarted", err)
	}
}

func TestSimReadChunk(t *testing.T) {
	s := NewSim(Config{SampleRate: 16000, FramesPerBuffer: 160, Channels: 1})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	chunk, err := s.ReadChunk()
	if err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}
	if len(chunk) != 160 {
		t.Errorf("chunk length = %d, want 160", len(chunk))
	}
	for i, sample := range chunk {
		if sample != 0 {
			t.Fatalf("chunk[%d] = %d, want silence (0)", i, sample)
		}
	}
}

func TestSimPacing(t *testing.T) {
	// 1600 frames at 16 kHz is 100ms of audio per chunk.
	s := NewSim(Config{SampleRate: 16000, FramesPerBuffer: 1600, Channels: 1})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := s.ReadChunk(); err != nil {
			t.Fatalf("ReadChunk() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three paced chunks should take roughly 200ms (the first returns
	// quickly). Allow generous slack for slow CI machines.
	if elapsed < 150*time.Millisecond {
		t.Errorf("3 chunks took %v, expected real-time pacing", elapsed)
	}
}

func TestSimStopAndRestart(t *testing.T) {
	s := NewSim(Config{SampleRate: 16000, FramesPerBuffer: 160, Channels: 1})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, err := s.ReadChunk(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("ReadChunk() after Stop error = %v, want ErrNotStarted", err)
	}

	// Stopped sources can restart; closed sources cannot.
	if err := s.Start(); err != nil {
		t.Fatalf("Start() after Stop error = %v", err)
	}
	if _, err := s.ReadChunk(); err != nil {
		t.Errorf("ReadChunk() after restart error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}

func TestSimDrainIsNoOp(t *testing.T) {
	s := NewSim(Config{SampleRate: 16000, FramesPerBuffer: 160, Channels: 1})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Drain()

	if _, err := s.ReadChunk(); err != nil {
		t.Errorf("ReadChunk() after Drain error = %v", err)
	}
}
