package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hark-stt/hark-core/internal/infrastructure/mqtt"
)

// Broker is the publishing surface the MQTT sink needs. Satisfied by
// the infrastructure MQTT client directly.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// ErrBrokerDisconnected is returned when a publish is attempted with no
// broker connection. The pipeline counts it like any other sink error.
var ErrBrokerDisconnected = errors.New("transcript: broker disconnected")

// sentenceMessage is the wire payload the wall panels and dashboard
// expect for each finalised sentence.
type sentenceMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// sessionMessage announces a fresh recogniser session on the session
// topic, so consumers can segment their displays.
type sessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	StartedAt string `json:"started_at"`
}

// Publisher is a pipeline sink that publishes each entry to the MQTT
// sentence topic.
type Publisher struct {
	broker Broker
	topics mqtt.Topics
}

// NewPublisher creates an MQTT sentence sink.
func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

// Name implements Sink.
func (p *Publisher) Name() string { return "mqtt" }

// Write implements Sink. Sentences go out QoS 0, non-retained — the
// live feed is ephemeral; replay belongs to the store.
func (p *Publisher) Write(_ context.Context, entry Entry) error {
	if !p.broker.IsConnected() {
		return ErrBrokerDisconnected
	}

	payload, err := json.Marshal(sentenceMessage{
		Type: "fullSentence",
		Text: entry.Text,
	})
	if err != nil {
		return fmt.Errorf("marshalling sentence: %w", err)
	}
	return p.broker.Publish(p.topics.TranscriptSentence(), payload, 0, false)
}

// PublishSession announces a new recogniser session. Called from the
// bootstrap when the supervisor starts or recovers a session.
func (p *Publisher) PublishSession(sessionID string) error {
	if !p.broker.IsConnected() {
		return ErrBrokerDisconnected
	}

	payload, err := json.Marshal(sessionMessage{
		Type:      "session",
		SessionID: sessionID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshalling session message: %w", err)
	}
	return p.broker.Publish(p.topics.TranscriptSession(), payload, 0, false)
}
