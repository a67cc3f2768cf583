package transcript

import (
	"context"
	"unicode/utf8"

	"github.com/hark-stt/hark-core/internal/infrastructure/influxdb"
)

// MetricsSink forwards one measurement per entry to InfluxDB. The
// client's write API is non-blocking and guards its own connection
// state, so Write never fails here.
type MetricsSink struct {
	client *influxdb.Client
}

// NewMetricsSink creates an InfluxDB metrics sink.
func NewMetricsSink(client *influxdb.Client) *MetricsSink {
	return &MetricsSink{client: client}
}

// Name implements Sink.
func (m *MetricsSink) Name() string { return "influxdb" }

// Write implements Sink.
func (m *MetricsSink) Write(_ context.Context, entry Entry) error {
	m.client.WriteTranscription(
		entry.SessionID,
		entry.Language,
		entry.Sequence,
		utf8.RuneCountInString(entry.Text),
		entry.Confidence,
	)
	return nil
}
