package engine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hark-stt/hark-core/internal/audio"
)

// simDefaultInterval is the pause before each simulated utterance.
const simDefaultInterval = 500 * time.Millisecond

// simDefaultScript is the sentence loop used when none is configured.
var simDefaultScript = []string{
	"the quick brown fox jumps over the lazy dog",
	"testing the transcription pipeline end to end",
	"hark is listening",
}

// simRecogniser emits scripted utterances on a timer.
//
// It exists so the full supervision and delivery path can run on machines
// with no microphone and no model, and so tests can script failure modes:
//
//	Options["script"]      - utterances separated by "|"
//	Options["interval_ms"] - delay before each utterance (default 500)
//	Options["fail_every"]  - every Nth unit returns a transcription error
//	Options["hang_every"]  - every Nth unit blocks until aborted
type simRecogniser struct {
	script   []string
	interval time.Duration
	failEach int
	hangEach int

	mu     sync.Mutex
	n      int
	idx    int
	closed bool
}

func newSim(cfg Config, _ audio.Source) (Recogniser, error) {
	s := &simRecogniser{
		script:   simDefaultScript,
		interval: simDefaultInterval,
	}

	if raw, ok := cfg.Options["script"]; ok && raw != "" {
		s.script = strings.Split(raw, "|")
	}
	if raw, ok := cfg.Options["interval_ms"]; ok {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("sim: invalid interval_ms %q", raw)
		}
		s.interval = time.Duration(ms) * time.Millisecond
	}
	if raw, ok := cfg.Options["fail_every"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("sim: invalid fail_every %q", raw)
		}
		s.failEach = n
	}
	if raw, ok := cfg.Options["hang_every"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("sim: invalid hang_every %q", raw)
		}
		s.hangEach = n
	}

	return s, nil
}

func (s *simRecogniser) Utterance(abort <-chan struct{}) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: recogniser closed", ErrTranscription)
	}
	s.n++
	n := s.n
	text := s.script[s.idx%len(s.script)]
	s.idx++
	s.mu.Unlock()

	// Scripted stall: hold the unit open until the supervisor aborts it.
	if s.hangEach > 0 && n%s.hangEach == 0 {
		<-abort
		return "", ErrAborted
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-abort:
		return "", ErrAborted
	case <-timer.C:
	}

	if s.failEach > 0 && n%s.failEach == 0 {
		return "", fmt.Errorf("%w: scripted failure on unit %d", ErrTranscription, n)
	}
	return text, nil
}

func (s *simRecogniser) Flush() {}

func (s *simRecogniser) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
