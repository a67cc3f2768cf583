package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hark-stt/hark-core/internal/audio"
)

// State represents the lifecycle state of a Handle.
type State string

const (
	StateUninitialised State = "uninitialised"
	StateReady         State = "ready"
	StateFaulted       State = "faulted"
	StateShutdown      State = "shutdown"
)

// Logger defines the logging interface for the engine handle.
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

// Handle owns one recogniser instance and its audio source.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - At most one RunUnit should be productive at a time; an abandoned
//     unit may still be draining while the next one starts, and both
//     observe the same recogniser binding.
type Handle struct {
	cfg     Config
	src     audio.Source
	factory Factory
	logger  Logger

	mu        sync.Mutex
	state     State
	rec       Recogniser
	sessionID string

	// abort interrupts in-flight units. Rotated on every successful Init
	// so units from a previous binding cannot leak aborts into a new one.
	abort   chan struct{}
	aborted bool
}

// NewHandle creates an uninitialised handle.
// Call Init before running units.
func NewHandle(cfg Config, src audio.Source, factory Factory) *Handle {
	return &Handle{
		cfg:     cfg,
		src:     src,
		factory: factory,
		logger:  noopLogger{},
		state:   StateUninitialised,
	}
}

// SetLogger sets the logger for the handle.
func (h *Handle) SetLogger(logger Logger) {
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

// Init builds the recogniser through the factory and starts audio capture.
//
// A ready handle is torn down first, so Init doubles as re-init during
// recovery. On success the handle carries a fresh session ID.
func (h *Handle) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	h.mu.Lock()
	old := h.rec
	h.rec = nil
	h.state = StateUninitialised
	logger := h.logger
	h.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("closing previous recogniser", "error", err)
		}
	}

	rec, err := h.factory(h.cfg, h.src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	if err := h.src.Start(); err != nil {
		rec.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("%w: starting audio: %w", ErrInitFailed, err)
	}

	h.mu.Lock()
	h.rec = rec
	h.state = StateReady
	h.sessionID = uuid.NewString()
	h.abort = make(chan struct{})
	h.aborted = false
	session := h.sessionID
	h.mu.Unlock()

	logger.Info("recogniser initialised",
		"backend", h.cfg.Backend,
		"session_id", session,
	)
	return nil
}

// RunUnit executes one unit of work: block until the recogniser finalises
// a sentence, then hand the raw text to onText.
//
// The call returns ErrNotReady if the handle has no live recogniser,
// ErrAborted if Abort interrupted the unit, and a wrapped ErrTranscription
// on backend failure (including recovered panics). A failed unit marks
// the handle faulted; aborts leave it ready.
//
// onText runs on the caller's goroutine. It may fire even after the
// caller has given up waiting for this unit.
func (h *Handle) RunUnit(onText func(text string)) (err error) {
	h.mu.Lock()
	if h.state != StateReady {
		h.mu.Unlock()
		return ErrNotReady
	}
	rec := h.rec
	abort := h.abort
	h.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: recovered panic: %v", ErrTranscription, r)
			h.markFaulted(rec)
		}
	}()

	text, err := rec.Utterance(abort)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			return err
		}
		h.markFaulted(rec)
		if !errors.Is(err, ErrTranscription) {
			err = fmt.Errorf("%w: %w", ErrTranscription, err)
		}
		return err
	}

	if onText != nil {
		onText(text)
	}
	return nil
}

// markFaulted flags the handle as faulted, unless the failing recogniser
// has already been replaced by a newer Init.
func (h *Handle) markFaulted(rec Recogniser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rec == rec && h.state == StateReady {
		h.state = StateFaulted
	}
}

// Abort interrupts the in-flight unit, if any.
// The recogniser binding stays alive; only the current unit is cancelled.
func (h *Handle) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.abort != nil && !h.aborted {
		close(h.abort)
		h.aborted = true
	}
}

// Drain discards buffered audio and partial hypothesis state.
// Called between abort and shutdown during recovery so the rebuilt
// engine starts from clean input.
func (h *Handle) Drain() {
	h.mu.Lock()
	rec := h.rec
	h.mu.Unlock()

	h.src.Drain()
	if rec != nil {
		rec.Flush()
	}
}

// Shutdown releases the recogniser and halts audio capture.
//
// Safe to call repeatedly; the second and later calls return nil.
// An in-flight unit is aborted so it cannot block on a dead binding.
func (h *Handle) Shutdown() error {
	h.mu.Lock()
	if h.state == StateShutdown {
		h.mu.Unlock()
		return nil
	}
	rec := h.rec
	h.rec = nil
	h.state = StateShutdown
	if h.abort != nil && !h.aborted {
		close(h.abort)
		h.aborted = true
	}
	logger := h.logger
	h.mu.Unlock()

	if err := h.src.Stop(); err != nil {
		logger.Warn("stopping audio capture", "error", err)
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			return fmt.Errorf("closing recogniser: %w", err)
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SessionID returns the identifier of the current recogniser session.
// Empty until the first successful Init; rotated on every re-init.
func (h *Handle) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}
