package supervisor

import "errors"

// Sentinel errors for supervision outcomes. Wrapped errors carry
// context; match with errors.Is.
var (
	// ErrTimeout indicates a unit of work exceeded the transcription
	// timeout and was abandoned.
	ErrTimeout = errors.New("supervisor: unit of work timed out")

	// ErrStalled indicates a unit has been processing past the
	// transcription timeout with no sign of life.
	ErrStalled = errors.New("supervisor: transcription stalled")

	// ErrFailureThreshold indicates consecutive failures reached the
	// configured limit.
	ErrFailureThreshold = errors.New("supervisor: consecutive failure threshold reached")

	// ErrRecoveryFailed indicates the recovery sequence could not bring
	// the engine back. Terminal for the loop.
	ErrRecoveryFailed = errors.New("supervisor: recovery failed")

	// ErrAlreadyRunning indicates Start was called on a supervisor whose
	// loop has already been launched.
	ErrAlreadyRunning = errors.New("supervisor: already running")
)

// errInterrupted marks a startup or recovery sequence abandoned because
// a stop was requested; the loop ends STOPPED rather than FAILED.
var errInterrupted = errors.New("supervisor: interrupted by stop request")
