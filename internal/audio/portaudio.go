package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// readPollDelay is how long ReadChunk waits when the device has no frames.
const readPollDelay = 10 * time.Millisecond

// Capture reads PCM16 audio from the default input device.
//
// Thread Safety:
//   - Start, Stop, Drain and Close are safe for concurrent use.
//   - ReadChunk must be called from a single reader at a time.
type Capture struct {
	cfg    Config
	buffer []int16

	mu      sync.Mutex
	stream  *portaudio.Stream
	running bool
	closed  bool
}

// New initialises PortAudio and prepares a capture source.
//
// The device stream is not opened until Start; construction only claims
// the PortAudio runtime so failures surface early at boot.
func New(cfg Config) (*Capture, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 1024
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialising portaudio: %w", err)
	}

	return &Capture{
		cfg:    cfg,
		buffer: make([]int16, cfg.FramesPerBuffer),
	}, nil
}

// Start opens the default input stream and begins capture.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.running {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(
		c.cfg.Channels,                // input channels
		0,                             // output channels
		float64(c.cfg.SampleRate),     // sample rate
		c.cfg.FramesPerBuffer,         // frames per buffer
		c.buffer,                      // capture buffer
	)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("starting input stream: %w", err)
	}

	c.stream = stream
	c.running = true
	return nil
}

// ReadChunk returns the next captured chunk, or an empty chunk if the
// device produced nothing within readPollDelay.
func (c *Capture) ReadChunk() ([]int16, error) {
	c.mu.Lock()
	stream := c.stream
	running := c.running
	c.mu.Unlock()

	if !running || stream == nil {
		return nil, ErrNotStarted
	}

	available, err := stream.AvailableToRead()
	if err != nil {
		return nil, fmt.Errorf("querying input stream: %w", err)
	}
	if available < c.cfg.FramesPerBuffer {
		time.Sleep(readPollDelay)
		return nil, nil
	}

	if err := stream.Read(); err != nil {
		return nil, fmt.Errorf("reading input stream: %w", err)
	}

	chunk := make([]int16, len(c.buffer))
	copy(chunk, c.buffer)
	return chunk, nil
}

// Drain discards everything currently buffered on the device side.
// Used during recovery so a rebuilt engine does not inherit stale audio.
func (c *Capture) Drain() {
	c.mu.Lock()
	stream := c.stream
	running := c.running
	c.mu.Unlock()

	if !running || stream == nil {
		return
	}

	for {
		available, err := stream.AvailableToRead()
		if err != nil || available < c.cfg.FramesPerBuffer {
			return
		}
		if err := stream.Read(); err != nil {
			return
		}
	}
}

// Stop halts capture and closes the device stream.
// The capture can be started again afterwards.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.stream == nil {
		return nil
	}

	c.running = false
	stream := c.stream
	c.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close() //nolint:errcheck // Best effort after failed stop
		return fmt.Errorf("stopping input stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("closing input stream: %w", err)
	}
	return nil
}

// Close stops capture and releases the PortAudio runtime.
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminating portaudio: %w", err)
	}
	return nil
}
