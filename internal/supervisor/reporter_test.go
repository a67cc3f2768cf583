package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type publishRecord struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBroker records publishes and lets tests inject inbound messages
// through the captured subscription handlers.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	subscribeErr error
	publishes    []publishRecord
	handlers     map[string]func(topic string, payload []byte)
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.publishes = append(b.publishes, publishRecord{topic, cp, qos, retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) published() []publishRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishRecord, len(b.publishes))
	copy(out, b.publishes)
	return out
}

// deliver pushes an inbound message through the captured handler, the
// way the broker client would on receipt.
func (b *fakeBroker) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	b.mu.Lock()
	handler := b.handlers[topic]
	b.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed on %q", topic)
	}
	handler(topic, []byte(payload))
}

func TestNewReporterValidation(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	if _, err := NewReporter(ReporterConfig{Broker: broker}); err == nil {
		t.Error("NewReporter() without a supervisor: error = nil, want error")
	}
	if _, err := NewReporter(ReporterConfig{Supervisor: sup}); err == nil {
		t.Error("NewReporter() without a broker: error = nil, want error")
	}

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if r.interval != DefaultReportInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultReportInterval)
	}
	if r.healthTopic != defaultHealthTopic {
		t.Errorf("health topic = %q, want %q", r.healthTopic, defaultHealthTopic)
	}
	if r.commandTopic != defaultCommandTopic {
		t.Errorf("command topic = %q, want %q", r.commandTopic, defaultCommandTopic)
	}
}

func TestReporterPublishNow(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker, Version: "1.2.3"})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	if err := r.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	pubs := broker.published()
	if len(pubs) != 1 {
		t.Fatalf("publishes = %d, want 1", len(pubs))
	}
	rec := pubs[0]
	if rec.topic != defaultHealthTopic {
		t.Errorf("topic = %q, want %q", rec.topic, defaultHealthTopic)
	}
	if rec.qos != reportQoS {
		t.Errorf("qos = %d, want %d", rec.qos, reportQoS)
	}
	if !rec.retained {
		t.Error("health report not retained; late subscribers would see nothing")
	}

	var report healthReport
	if err := json.Unmarshal(rec.payload, &report); err != nil {
		t.Fatalf("unmarshalling report: %v", err)
	}
	if report.Status != "starting" {
		t.Errorf("status = %q, want %q", report.Status, "starting")
	}
	if report.Version != "1.2.3" {
		t.Errorf("version = %q, want %q", report.Version, "1.2.3")
	}
	if report.Stats.State != StateStarting {
		t.Errorf("stats state = %q, want %q", report.Stats.State, StateStarting)
	}
	if _, err := time.Parse(time.RFC3339, report.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", report.Timestamp, err)
	}
}

func TestReporterSkipsWhenDisconnected(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()
	broker.connected = false

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	if err := r.PublishNow(); err != nil {
		t.Errorf("PublishNow() while disconnected error = %v, want nil", err)
	}
	if n := len(broker.published()); n != 0 {
		t.Errorf("publishes = %d, want 0 while disconnected", n)
	}
}

func TestReporterSubscribeFailure(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()
	broker.subscribeErr = errors.New("broker refused")

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}

	if err := r.Start(context.Background()); !errors.Is(err, broker.subscribeErr) {
		t.Errorf("Start() error = %v, want %v", err, broker.subscribeErr)
	}
}

func TestReporterCommandStatus(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{
		Supervisor: sup,
		Broker:     broker,
		Interval:   time.Hour, // only the initial and commanded reports
	})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	waitFor(t, time.Second, func() bool {
		return len(broker.published()) >= 1
	}, "initial report never published")

	before := len(broker.published())
	broker.deliver(t, defaultCommandTopic, `{"action":"status"}`)

	if after := len(broker.published()); after != before+1 {
		t.Errorf("publishes after status command = %d, want %d", after, before+1)
	}
}

func TestReporterCommandStop(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	if sup.stopRequested() {
		t.Fatal("supervisor already stopping before the command")
	}
	broker.deliver(t, defaultCommandTopic, `{"action":"stop"}`)
	if !sup.stopRequested() {
		t.Error("stop command did not request a supervisor stop")
	}
}

func TestReporterCommandInvalid(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	waitFor(t, time.Second, func() bool {
		return len(broker.published()) >= 1
	}, "initial report never published")
	before := len(broker.published())

	broker.deliver(t, defaultCommandTopic, `not json at all`)
	broker.deliver(t, defaultCommandTopic, `{"action":"reboot"}`)

	if after := len(broker.published()); after != before {
		t.Errorf("publishes after invalid commands = %d, want %d", after, before)
	}
	if sup.stopRequested() {
		t.Error("invalid command requested a supervisor stop")
	}
}

func TestReporterPeriodicPublish(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{
		Supervisor: sup,
		Broker:     broker,
		Interval:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(broker.published()) >= 3
	}, "periodic reports never accumulated")

	r.Stop()
	r.Stop() // idempotent
}

func TestReporterStopPublishesFinalReport(t *testing.T) {
	sup := newTestSupervisor(t, &fakeEngine{})
	broker := newFakeBroker()

	r, err := NewReporter(ReporterConfig{Supervisor: sup, Broker: broker, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return len(broker.published()) >= 1
	}, "initial report never published")
	before := len(broker.published())

	r.Stop()

	if after := len(broker.published()); after != before+1 {
		t.Errorf("publishes after Stop() = %d, want %d (farewell report)", after, before+1)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  string
	}{
		{"running clean", Stats{State: StateRunning}, "healthy"},
		{"running with failures", Stats{State: StateRunning, ConsecutiveFailures: 2}, "degraded"},
		{"recovering", Stats{State: StateRecovering}, "recovering"},
		{"stopped", Stats{State: StateStopped}, "stopped"},
		{"failed", Stats{State: StateFailed}, "failed"},
		{"starting", Stats{State: StateStarting}, "starting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.stats); got != tt.want {
				t.Errorf("overallStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
