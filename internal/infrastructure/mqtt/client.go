package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-rf/internal/infrastructure/config"
)

// Client is the broker connection shared by the RF433 bridge and the
// selectplus send command. It is safe for concurrent use. Subscriptions
// made through it survive a reconnect.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// mu guards everything below.
	mu        sync.RWMutex
	connected bool
	handlers  map[string]subscription
	hooks     hooks
}

// hooks are the optional callbacks main wires in.
type hooks struct {
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger receives handler failures. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message. paho calls it from its own
// goroutine, so it must not block; a returned error is logged.
type MessageHandler func(topic string, payload []byte) error

func newClient(cfg config.MQTTConfig, co connectOptions) *Client {
	c := &Client{
		cfg:      cfg,
		handlers: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg, co)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect dials the broker and waits for the first CONNACK. Reconnects
// after that are automatic; the will is registered before dialling so a
// crash is visible to other subscribers.
func Connect(cfg config.MQTTConfig, opts ...Option) (*Client, error) {
	co := resolveOptions(opts)
	c := newClient(cfg, co)

	token := c.client.Connect()
	if !token.WaitTimeout(co.connectTimeout) {
		return nil, fmt.Errorf("%w: no answer from %s within %v", ErrConnectionFailed, brokerURL(cfg), co.connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// paho runs the connect handler asynchronously.
	c.setConnected(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.mu.RLock()
	for topic, sub := range c.handlers {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	onConnect := c.hooks.onConnect
	c.mu.RUnlock()

	c.publishStatus("online", "")
	if onConnect != nil {
		onConnect()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.mu.RLock()
	onDisconnect := c.hooks.onDisconnect
	c.mu.RUnlock()
	if onDisconnect != nil {
		onDisconnect(err)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// publishStatus writes the retained service status without waiting for
// the broker's acknowledgement.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	id := c.cfg.Broker.ClientID
	return c.client.Publish(StatusTopic(id), byte(c.cfg.QoS), true, statusPayload(id, status, reason))
}

// Close announces a graceful offline status and disconnects. A nil client
// closes cleanly.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers fn for the first connect and every reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.hooks.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers fn for a lost connection.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.hooks.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets where handler errors and panics are reported.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.hooks.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks.logger
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

// dispatch runs handler and reports its failure. A panicking handler must
// not take paho's router goroutine with it.
func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("mqtt handler panicked", "topic", topic, "panic", r)
			}
		}
	}()

	if err := handler(topic, payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("mqtt handler failed", "topic", topic, "bytes", len(payload), "error", err)
		}
	}
}
