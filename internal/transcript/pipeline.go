package transcript

import (
	"context"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hark-stt/hark-core/internal/langid"
	"github.com/hark-stt/hark-core/internal/supervisor"
)

// DefaultSinkTimeout bounds one sink write.
const DefaultSinkTimeout = 5 * time.Second

// Entry is one processed transcript sentence.
type Entry struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Sequence         uint64    `json:"sequence"`
	Raw              string    `json:"raw"`
	Text             string    `json:"text"`
	Language         string    `json:"language,omitempty"`
	Confidence       float64   `json:"confidence,omitempty"`
	LanguageMismatch bool      `json:"language_mismatch,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
}

// Sink receives processed entries. Writes are bounded by the pipeline's
// sink timeout; errors are the sink's to describe and the pipeline's to
// log.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry Entry) error
}

// Logger defines the logging interface for the pipeline.
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

// Config holds pipeline construction parameters.
type Config struct {
	// Detector identifies the language of processed text. Nil disables
	// language handling entirely.
	Detector langid.Detector

	// ExpectedLanguage enables advisory validation when non-empty. A
	// confident mismatch marks the entry; it never blocks delivery.
	ExpectedLanguage string

	// ConfidenceThreshold below which detections are not trusted enough
	// to flag a mismatch. Zero takes langid.DefaultThreshold.
	ConfidenceThreshold float64

	// SinkTimeout bounds each sink write. Zero takes DefaultSinkTimeout.
	SinkTimeout time.Duration
}

// Pipeline processes segments from the supervisor and fans entries out
// to its sinks. It implements supervisor.TextConsumer and runs on the
// worker goroutine delivering the segment, so nothing here may block
// past the bounded sink writes.
type Pipeline struct {
	cfg    Config
	sinks  []Sink
	logger Logger

	delivered  atomic.Uint64
	skipped    atomic.Uint64
	mismatches atomic.Uint64
	sinkErrors atomic.Uint64
}

// New creates a pipeline delivering to the given sinks.
func New(cfg Config, sinks ...Sink) *Pipeline {
	// Apply defaults for zero values
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = langid.DefaultThreshold
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}

	return &Pipeline{
		cfg:    cfg,
		sinks:  sinks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the pipeline. Call before delivery
// starts.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// Deliver implements supervisor.TextConsumer.
func (p *Pipeline) Deliver(segment supervisor.Segment) {
	text := Preprocess(segment.Text)
	if text == "" {
		p.skipped.Add(1)
		p.logger.Debug("segment empty after preprocessing",
			"session_id", segment.SessionID,
			"sequence", segment.Sequence,
		)
		return
	}

	entry := Entry{
		ID:         uuid.NewString(),
		SessionID:  segment.SessionID,
		Sequence:   segment.Sequence,
		Raw:        segment.Text,
		Text:       text,
		CapturedAt: segment.CapturedAt,
	}

	if p.cfg.Detector != nil {
		lang, confidence := p.cfg.Detector.Detect(text)
		entry.Language = lang
		entry.Confidence = confidence
		if p.cfg.ExpectedLanguage != "" &&
			!langid.Validate(p.cfg.ExpectedLanguage, lang, confidence, p.cfg.ConfidenceThreshold) {
			entry.LanguageMismatch = true
			p.mismatches.Add(1)
			p.logger.Warn("language mismatch",
				"expected", p.cfg.ExpectedLanguage,
				"detected", lang,
				"confidence", confidence,
				"sequence", entry.Sequence,
			)
		}
	}

	for _, sink := range p.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SinkTimeout)
		if err := sink.Write(ctx, entry); err != nil {
			p.sinkErrors.Add(1)
			p.logger.Warn("transcript sink write failed",
				"sink", sink.Name(),
				"sequence", entry.Sequence,
				"error", err,
			)
		}
		cancel()
	}

	p.delivered.Add(1)
	p.logger.Debug("transcript delivered",
		"session_id", entry.SessionID,
		"sequence", entry.Sequence,
		"chars", utf8.RuneCountInString(entry.Text),
	)
}

// Stats is a point-in-time snapshot of pipeline activity.
type Stats struct {
	Delivered  uint64 `json:"delivered"`
	Skipped    uint64 `json:"skipped"`
	Mismatches uint64 `json:"language_mismatches"`
	SinkErrors uint64 `json:"sink_errors"`
	Sinks      int    `json:"sinks"`
}

// Stats returns current pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Delivered:  p.delivered.Load(),
		Skipped:    p.skipped.Load(),
		Mismatches: p.mismatches.Load(),
		SinkErrors: p.sinkErrors.Load(),
		Sinks:      len(p.sinks),
	}
}
