// Package transcript turns raw engine sentences into persisted,
// published transcript entries.
//
// The supervisor hands finished sentences to the Pipeline, which
// normalises the text, runs advisory language validation, and fans the
// resulting Entry out to its sinks: the SQLite store, the MQTT
// sentence publisher and the InfluxDB metrics sink. Sink failures are
// logged and counted, never propagated — a broken downstream must not
// stall transcription.
//
// The Store doubles as the read surface for the HTTP API: recent
// entries, per-session replay and per-session counts.
package transcript
