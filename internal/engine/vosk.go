package engine

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/hark-stt/hark-core/internal/audio"
)

// voskRecogniser runs offline recognition against a local Vosk model.
//
// One instance binds one model + recogniser pair. Recovery discards the
// whole instance and builds a new one through the factory.
type voskRecogniser struct {
	src        audio.Source
	sampleRate int

	mu    sync.Mutex
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

// voskResult is the JSON shape of a Vosk final result.
type voskResult struct {
	Text string `json:"text"`
}

// newVosk loads the model and constructs a recogniser.
// Model loading dominates init time (seconds for larger models), which is
// why the supervisor budgets retries and settle delays around this call.
func newVosk(cfg Config, src audio.Source) (Recogniser, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("vosk: model path not configured")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("vosk: model not found at %s: %w", cfg.ModelPath, err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	model, err := vosk.NewModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: loading model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("vosk: creating recogniser: %w", err)
	}

	return &voskRecogniser{
		src:        src,
		sampleRate: sampleRate,
		model:      model,
		rec:        rec,
	}, nil
}

// Utterance feeds captured audio into Vosk until an utterance endpoint
// produces non-empty text. Endpoints on silence are swallowed and the
// loop keeps listening - persistent silence means this call never
// returns, which is exactly the behaviour the supervisor's timeout
// bounds.
func (v *voskRecogniser) Utterance(abort <-chan struct{}) (string, error) {
	for {
		select {
		case <-abort:
			return "", ErrAborted
		default:
		}

		chunk, err := v.src.ReadChunk()
		if err != nil {
			return "", fmt.Errorf("%w: reading audio: %w", ErrTranscription, err)
		}
		if len(chunk) == 0 {
			continue
		}

		text, final, err := v.feed(chunk)
		if err != nil {
			return "", err
		}
		if final && text != "" {
			return text, nil
		}
	}
}

// feed pushes one PCM16 chunk into the recogniser and extracts the final
// result when an endpoint is reached.
func (v *voskRecogniser) feed(chunk []int16) (text string, final bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rec == nil {
		return "", false, fmt.Errorf("%w: recogniser closed", ErrTranscription)
	}

	// Vosk consumes little-endian PCM16 bytes.
	pcm := make([]byte, len(chunk)*2)
	for i, sample := range chunk {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}

	if v.rec.AcceptWaveform(pcm) == 0 {
		return "", false, nil
	}

	resultJSON := v.rec.FinalResult()
	v.rec.Reset()

	var result voskResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return "", false, fmt.Errorf("%w: decoding result: %w", ErrTranscription, err)
	}
	return result.Text, true, nil
}

// Flush resets any partial hypothesis accumulated in the recogniser.
func (v *voskRecogniser) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rec != nil {
		v.rec.Reset()
	}
}

// Close frees the recogniser and model. Safe to call repeatedly.
func (v *voskRecogniser) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rec != nil {
		v.rec.Free()
		v.rec = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
