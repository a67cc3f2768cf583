package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hark-stt/hark-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hark-test",
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

// disconnectedClient returns a client that has never connected.
// Validation paths and state checks can be exercised without a broker.
func disconnectedClient() *Client {
	return &Client{
		cfg:           testConfig(),
		subscriptions: make(map[string]subscription),
	}
}

// =============================================================================
// Connection State Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnectedNeverConnected(t *testing.T) {
	client := disconnectedClient()
	if client.IsConnected() {
		t.Error("IsConnected() = true for never-connected client, want false")
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheckDisconnected(t *testing.T) {
	client := disconnectedClient()

	ctx := context.Background()
	err := client.HealthCheck(ctx)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := disconnectedClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
	if errors.Is(err, ErrNotConnected) {
		t.Error("HealthCheck() should report context error before connection state")
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := disconnectedClient()

	err := client.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := disconnectedClient()

	err := client.Publish("hark/test", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	client := disconnectedClient()

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("hark/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishNotConnected(t *testing.T) {
	client := disconnectedClient()

	err := client.Publish("hark/test", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishStringNotConnected(t *testing.T) {
	client := disconnectedClient()

	err := client.PublishString("hark/test", "payload", 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishString() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscribe Validation Tests
// =============================================================================

func TestSubscribeEmptyTopic(t *testing.T) {
	client := disconnectedClient()

	err := client.Subscribe("", 1, func(_ string, _ []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	client := disconnectedClient()

	err := client.Subscribe("hark/test", 5, func(_ string, _ []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := disconnectedClient()

	err := client.Subscribe("hark/test", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeNotConnected(t *testing.T) {
	client := disconnectedClient()

	err := client.Subscribe("hark/test", 1, func(_ string, _ []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribe, want 0", client.SubscriptionCount())
	}
}

func TestUnsubscribeNotConnected(t *testing.T) {
	client := disconnectedClient()

	err := client.Unsubscribe("hark/test")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	client := disconnectedClient()

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	if client.HasSubscription("hark/test") {
		t.Error("HasSubscription() = true for fresh client, want false")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name: "SystemStatus",
			build: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "hark/system/status",
		},
		{
			name: "TranscriptSentence",
			build: func() string {
				return Topics{}.TranscriptSentence()
			},
			expected: "hark/transcript/sentence",
		},
		{
			name: "TranscriptSession",
			build: func() string {
				return Topics{}.TranscriptSession()
			},
			expected: "hark/transcript/session",
		},
		{
			name: "SupervisorHealth",
			build: func() string {
				return Topics{}.SupervisorHealth()
			},
			expected: "hark/supervisor/health",
		},
		{
			name: "SupervisorEvent",
			build: func() string {
				return Topics{}.SupervisorEvent()
			},
			expected: "hark/supervisor/event",
		},
		{
			name: "SupervisorCommand",
			build: func() string {
				return Topics{}.SupervisorCommand()
			},
			expected: "hark/supervisor/command",
		},
		{
			name: "AllTranscripts",
			build: func() string {
				return Topics{}.AllTranscripts()
			},
			expected: "hark/transcript/+",
		},
		{
			name: "AllSupervisor",
			build: func() string {
				return Topics{}.AllSupervisor()
			},
			expected: "hark/supervisor/+",
		},
		{
			name: "AllTopics",
			build: func() string {
				return Topics{}.AllTopics()
			},
			expected: "hark/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build()
			if got != tt.expected {
				t.Errorf("topic = %q, want %q", got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers count = %d, want 1", len(opts.Servers))
	}

	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("broker scheme = %q, want %q", opts.Servers[0].Scheme, "tcp")
	}

	if opts.ClientID != "hark-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "hark-test")
	}

	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("broker scheme = %q, want %q", opts.Servers[0].Scheme, "ssl")
	}

	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil, want configured")
	}
}

func TestBuildClientOptionsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "hark"
	cfg.Auth.Password = "secret"
	opts := buildClientOptions(cfg)

	if opts.Username != "hark" {
		t.Errorf("Username = %q, want %q", opts.Username, "hark")
	}

	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if !opts.WillEnabled {
		t.Error("WillEnabled = false, want true")
	}

	if opts.WillTopic != "hark/system/status" {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, "hark/system/status")
	}

	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	payload := string(opts.WillPayload)
	if !strings.Contains(payload, `"status":"offline"`) {
		t.Errorf("WillPayload = %q, missing offline status", payload)
	}
	if !strings.Contains(payload, `"reason":"unexpected_disconnect"`) {
		t.Errorf("WillPayload = %q, missing disconnect reason", payload)
	}
	if !strings.Contains(payload, `"client_id":"hark-test"`) {
		t.Errorf("WillPayload = %q, missing client_id", payload)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("hark-test")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload = %q, missing online status", online)
	}
	if !strings.Contains(online, `"client_id":"hark-test"`) {
		t.Errorf("online payload = %q, missing client_id", online)
	}

	offline := buildOfflinePayload("hark-test")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload = %q, missing offline status", offline)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %q, missing shutdown reason", offline)
	}
}
