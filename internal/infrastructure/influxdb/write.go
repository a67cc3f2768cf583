package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTranscription writes a single finalised-sentence measurement.
//
// This is the primary method for recording transcription throughput.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sessionID: Recogniser session the sentence belongs to
//   - language: Detected (or configured) language code (e.g., "en")
//   - sequence: Sentence sequence number within the session
//   - chars: Length of the processed sentence in characters
//   - confidence: Language detection confidence (0 when detection is disabled)
//
// Example:
//
//	client.WriteTranscription("0b29c5…", "en", 42, 37, 0.91)
func (c *Client) WriteTranscription(sessionID, language string, sequence uint64, chars int, confidence float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transcription",
		map[string]string{
			"session_id": sessionID,
			"language":   language,
		},
		map[string]interface{}{
			"sequence":   sequence,
			"chars":      chars,
			"confidence": confidence,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteUnitOutcome records the outcome of one bounded transcription unit.
//
// Outcomes are "completed", "timeout" or "error". Durations feed the
// latency dashboards that show how long the engine holds the microphone.
func (c *Client) WriteUnitOutcome(outcome string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transcription_unit",
		map[string]string{
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRecovery records a recovery sequence outcome.
//
// Parameters:
//   - success: Whether the engine came back after the rebuild
//   - attempts: Init attempts consumed (1 to max_init_retries)
//   - duration: Wall-clock time for the whole sequence
func (c *Client) WriteRecovery(success bool, attempts int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"supervisor_recovery",
		map[string]string{
			"success": strconv.FormatBool(success),
		},
		map[string]interface{}{
			"attempts":    attempts,
			"duration_ms": duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStateChange records a supervisor state transition.
//
// Tagged by the new state so dashboards can count transitions per state;
// the failure counter rides along as a field.
func (c *Client) WriteStateChange(state string, failures int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"supervisor_state",
		map[string]string{
			"state": state,
		},
		map[string]interface{}{
			"consecutive_failures": failures,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hark-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
