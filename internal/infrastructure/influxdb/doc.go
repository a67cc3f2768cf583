// Package influxdb provides InfluxDB connectivity for Hark.
//
// It wraps the official influxdb-client-go v2 library with Hark-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Transcription throughput (sentences, lengths, confidence)
//   - Unit outcomes and durations (completed, timeout, error)
//   - Supervisor state transitions and recovery statistics
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hark",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write transcription metrics
//	client.WriteUnitOutcome("completed", 2300*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps per-sentence overhead negligible next to the engine itself.
package influxdb
