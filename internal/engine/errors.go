package engine

import "errors"

// Sentinel errors for engine operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotReady is returned when running a unit on a handle that has not
	// been initialised (or has been shut down).
	ErrNotReady = errors.New("engine: recogniser not ready")

	// ErrInitFailed is returned when backend construction fails.
	ErrInitFailed = errors.New("engine: initialisation failed")

	// ErrAborted is returned by an in-flight unit when Abort interrupts it.
	ErrAborted = errors.New("engine: unit aborted")

	// ErrTranscription is returned when the backend fails mid-unit.
	// This includes recovered panics from the recogniser.
	ErrTranscription = errors.New("engine: transcription failed")

	// ErrUnknownBackend is returned for backend names with no factory.
	ErrUnknownBackend = errors.New("engine: unknown backend")
)
