package engine

import (
	"fmt"

	"github.com/hark-stt/hark-core/internal/audio"
)

// Config holds backend parameters.
// These map to the engine section of config.yaml.
type Config struct {
	// Backend selects the recogniser implementation ("vosk" or "sim").
	Backend string

	// ModelPath is the filesystem path to the model directory.
	// Required for the vosk backend.
	ModelPath string

	// SampleRate is the audio sample rate in Hz the model expects.
	SampleRate int

	// Language is the expected spoken language code (e.g. "en").
	Language string

	// Options carries backend-specific tuning as free-form key/values.
	// The sim backend reads "script", "interval_ms", "fail_every" and
	// "hang_every" from here.
	Options map[string]string
}

// Recogniser is one bound speech engine instance.
//
// Implementations are built by a Factory and owned by a Handle; callers
// outside this package drive the Handle instead.
type Recogniser interface {
	// Utterance blocks until one utterance is finalised and returns its
	// text. It watches abort between audio chunks and returns ErrAborted
	// when the channel closes. Backend failures return a wrapped
	// ErrTranscription.
	//
	// Silence does not produce empty utterances; a recogniser hearing
	// nothing simply keeps listening.
	Utterance(abort <-chan struct{}) (string, error)

	// Flush discards partially accumulated audio and hypothesis state.
	Flush()

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// Factory constructs a Recogniser for a backend.
//
// Factories must be cheap to call repeatedly: recovery rebuilds the
// recogniser through the same factory that built the original.
type Factory func(cfg Config, src audio.Source) (Recogniser, error)

// FactoryFor returns the factory for a configured backend name.
func FactoryFor(backend string) (Factory, error) {
	switch backend {
	case "vosk":
		return newVosk, nil
	case "sim":
		return newSim, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
