package audio

import "errors"

// Sentinel errors for audio capture.
var (
	// ErrNotStarted is returned when reading from a source that is not capturing.
	ErrNotStarted = errors.New("audio: capture not started")

	// ErrClosed is returned when operating on a closed source.
	ErrClosed = errors.New("audio: source closed")
)

// Config holds capture parameters.
// These map to the audio section of config.yaml.
type Config struct {
	// SampleRate is the capture rate in Hz. Speech models expect 16000.
	SampleRate int

	// FramesPerBuffer is the number of frames read from the device per chunk.
	FramesPerBuffer int

	// Channels is the input channel count. Speech recognition uses mono.
	Channels int
}

// Source supplies PCM16 audio to the speech engine.
//
// Implementations must keep ReadChunk short-blocking: return an empty
// chunk rather than waiting indefinitely for frames, so the caller can
// check for aborts between reads.
type Source interface {
	// Start begins capture. Calling Start on a running source is a no-op.
	// A stopped source can be started again.
	Start() error

	// ReadChunk returns the next captured chunk. An empty chunk (nil or
	// zero-length) means no audio was available within the internal wait.
	ReadChunk() ([]int16, error)

	// Drain discards any audio buffered between the device and the reader.
	Drain()

	// Stop halts capture and releases the device stream.
	// Stopping a source that is not running is a no-op.
	Stop() error

	// Close releases the capture subsystem. The source cannot be restarted
	// after Close.
	Close() error
}
