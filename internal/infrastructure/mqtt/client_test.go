package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-rf-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// =============================================================================
// Options
// =============================================================================

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "rf", Password: "secret"}

	opts := buildClientOptions(cfg, resolveOptions(nil))

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "graylogic-rf-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "rf" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS enabled")
	}

	// Default LWT goes to the client's status topic.
	if !opts.WillEnabled || opts.WillTopic != StatusTopic("graylogic-rf-test") {
		t.Errorf("will = %v %q", opts.WillEnabled, opts.WillTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will qos/retained = %d/%v", opts.WillQos, opts.WillRetained)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg, resolveOptions(nil))
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v", opts.TLSConfig)
	}
}

func TestWithWill(t *testing.T) {
	payload := []byte(`{"status":"offline"}`)
	opts := buildClientOptions(testConfig(), resolveOptions([]Option{
		WithWill("graylogic/health/rf433", payload),
	}))

	if opts.WillTopic != "graylogic/health/rf433" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if string(opts.WillPayload) != string(payload) {
		t.Errorf("WillPayload = %s", opts.WillPayload)
	}
}

func TestWithConnectTimeout(t *testing.T) {
	if got := resolveOptions(nil).connectTimeout; got != defaultConnectTimeout {
		t.Errorf("default timeout = %v", got)
	}
	if got := resolveOptions([]Option{WithConnectTimeout(2 * time.Second)}).connectTimeout; got != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", got)
	}
	if got := resolveOptions([]Option{WithConnectTimeout(0)}).connectTimeout; got != defaultConnectTimeout {
		t.Errorf("zero timeout changed default: %v", got)
	}
}

func TestStatusPayload(t *testing.T) {
	var msg map[string]string
	if err := json.Unmarshal([]byte(statusPayload("rf-1", "offline", "graceful_shutdown")), &msg); err != nil {
		t.Fatalf("statusPayload() is not JSON: %v", err)
	}
	if msg["status"] != "offline" || msg["client_id"] != "rf-1" || msg["reason"] != "graceful_shutdown" {
		t.Errorf("payload = %v", msg)
	}

	if strings.Contains(statusPayload("rf-1", "online", ""), "reason") {
		t.Error("online payload carries a reason")
	}
}

// =============================================================================
// Topics
// =============================================================================

func TestStatusTopic(t *testing.T) {
	if got := StatusTopic("graylogic-rf"); got != "graylogic/system/status/graylogic-rf" {
		t.Errorf("StatusTopic() = %q", got)
	}
}

// =============================================================================
// Unconnected client
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := newClient(testConfig(), resolveOptions(nil))

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"bad qos", "graylogic/test", nil, 3, ErrInvalidQoS},
		{"oversized", "graylogic/test", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "graylogic/test", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(testConfig(), resolveOptions(nil))
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v", err)
	}
	if err := c.Subscribe("a/b", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v", err)
	}
	if err := c.Subscribe("a/b", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v", err)
	}
	if err := c.Subscribe("a/b", 0, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v", err)
	}
	if len(c.handlers) != 0 {
		t.Errorf("failed subscriptions were kept: %v", c.handlers)
	}
}

func TestHealthCheck(t *testing.T) {
	c := newClient(testConfig(), resolveOptions(nil))

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}
}

func TestClose_Unconnected(t *testing.T) {
	if err := newClient(testConfig(), resolveOptions(nil)).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestCallbacks(t *testing.T) {
	c := newClient(testConfig(), resolveOptions(nil))

	connected := make(chan struct{}, 1)
	lost := make(chan error, 1)
	c.SetOnConnect(func() { connected <- struct{}{} })
	c.SetOnDisconnect(func(err error) { lost <- err })

	c.handleConnect()
	select {
	case <-connected:
	default:
		t.Error("onConnect not called")
	}

	want := errors.New("eof")
	c.handleDisconnect(want)
	select {
	case got := <-lost:
		if !errors.Is(got, want) {
			t.Errorf("onDisconnect error = %v", got)
		}
	default:
		t.Error("onDisconnect not called")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}

func TestDispatch_LogsErrorsAndPanics(t *testing.T) {
	c := newClient(testConfig(), resolveOptions(nil))
	logger := &mockLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want 1", logger.warns)
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want 1", logger.errors)
	}

	c.SetLogger(nil)
	if c.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
	// No logger: still must not panic.
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
}
