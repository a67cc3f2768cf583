// Package mqtt provides MQTT client connectivity for Hark.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Hark uses MQTT to push transcripts and supervisor state to the rest of
// the house: wall panels show the live sentence feed, and the dashboard
// watches supervisor health. The broker (Mosquitto) decouples Hark from
// its consumers.
//
//	Hark ↔ MQTT Broker ↔ Panels / Dashboard / Automations
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to supervisor commands
//	err = client.Subscribe(mqtt.Topics{}.SupervisorCommand(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a finalised sentence
//	topic := mqtt.Topics{}.TranscriptSentence()
//	client.Publish(topic, []byte(`{"type":"fullSentence","text":"Hello."}`), 1, false)
package mqtt
