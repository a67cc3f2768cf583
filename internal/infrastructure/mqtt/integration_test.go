//go:build integration

package mqtt

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hark-stt/hark-core/internal/infrastructure/config"
)

// Integration tests for MQTT connection behaviour.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...
//
// Note: Some tests may be flaky in CI due to timing dependencies.
// Consider running with: go test -tags=integration -count=1 -v ...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hark-integration-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_Connect(t *testing.T) {
	cfg := integrationConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

// TestIntegration_SubscriptionTracking verifies subscriptions are tracked
// for restoration on reconnect.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "hark-int-sub-track"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		"hark/int/test/topic1",
		"hark/int/test/topic2",
		"hark/int/test/topic3",
	}

	for _, topic := range topics {
		err := client.Subscribe(topic, 1, func(_ string, _ []byte) error {
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe(%q) error = %v", topic, err)
		}
	}

	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if got := client.SubscriptionCount(); got != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", got, len(topics)-1)
	}
}

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	pubCfg := integrationConfig()
	pubCfg.Broker.ClientID = "hark-int-pub"

	pub, err := Connect(pubCfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	subCfg := integrationConfig()
	subCfg.Broker.ClientID = "hark-int-sub"

	sub, err := Connect(subCfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	topic := "hark/int/roundtrip"
	received := make(chan []byte, 1)

	err = sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := `{"type":"fullSentence","text":"Integration test."}`
	if err := pub.PublishString(topic, want, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != want {
			t.Errorf("received = %q, want %q", payload, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestIntegration_ConnectionCallbacks(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "hark-int-callbacks"

	var connects atomic.Int32
	var mu sync.Mutex
	var lastErr error

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.SetOnConnect(func() {
		connects.Add(1)
	})
	client.SetOnDisconnect(func(err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
	})

	// Callbacks registered after connect only fire on reconnect; verify
	// registration does not disturb the live connection.
	if !client.IsConnected() {
		t.Error("IsConnected() = false after registering callbacks")
	}

	mu.Lock()
	defer mu.Unlock()
	if lastErr != nil {
		t.Errorf("unexpected disconnect: %v", lastErr)
	}
}
