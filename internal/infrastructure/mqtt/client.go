package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang as the relay transport for the sACN adapter.
//
// Unlike a long-lived bus connection, reconnection is NOT automatic: the
// adapter owns the retry policy (a fixed interval) and calls Connect again
// after every failure. Connect itself never blocks; outcomes are reported
// through the handlers registered with SetConnectionHandlers.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Handlers are invoked on paho goroutines; callers that own state on
//     another goroutine must hand the work off themselves.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected  bool
	connecting bool
	connMu     sync.RWMutex

	onConnect  func()
	onFailure  func(err error)
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library and
// should not block. A returned error is logged.
type MessageHandler = func(topic string, payload []byte) error

// New builds a client from config without connecting.
// Call SetConnectionHandlers and then Connect.
func New(cfg config.MQTTConfig) *Client {
	c := &Client{
		cfg:           cfg,
		options:       buildClientOptions(cfg),
		subscriptions: make(map[string]subscription),
	}

	c.options.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	c.options.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleFailure(fmt.Errorf("%w: %w", ErrConnectionLost, err))
	})
	return c
}

// SetWill configures the Last Will and Testament published by the broker
// if this client disappears without a clean disconnect. It must be called
// before the first Connect.
func (c *Client) SetWill(topic string, payload []byte) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.client == nil {
		c.options.SetBinaryWill(topic, payload, 1, true)
	}
}

// Connect starts one connection attempt and returns immediately.
//
// On success the onConnect handler runs (subscriptions made earlier are
// restored first). On failure or timeout the onFailure handler runs with an
// error wrapping ErrConnectionFailed. Calling Connect while connected or
// while an attempt is in flight does nothing.
func (c *Client) Connect() {
	c.connMu.Lock()
	if c.connected || c.connecting {
		c.connMu.Unlock()
		return
	}
	c.connecting = true
	if c.client == nil {
		c.client = pahomqtt.NewClient(c.options)
	}
	client := c.client
	c.connMu.Unlock()

	token := client.Connect()
	go func() {
		var err error
		switch {
		case !token.WaitTimeout(defaultConnectTimeout):
			err = fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
		case token.Error() != nil:
			err = fmt.Errorf("%w: %w", ErrConnectionFailed, token.Error())
		}

		c.connMu.Lock()
		c.connecting = false
		c.connMu.Unlock()

		if err != nil {
			c.handleFailure(err)
		}
	}()
}

// handleConnect is called by paho once the session is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connecting = false
	c.connMu.Unlock()

	c.restoreSubscriptions()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleFailure is called for failed attempts and lost connections.
func (c *Client) handleFailure(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onFailure
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Disconnect closes the connection. Handlers are not invoked.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	client := c.client
	c.connected = false
	c.connMu.Unlock()

	if client != nil && client.IsConnectionOpen() {
		client.Disconnect(defaultDisconnectQuiesce)
	}
}

// Close is Disconnect for io.Closer users.
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}

// HealthCheck reports ErrNotConnected when the link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnectionOpen()
}

// SetConnectionHandlers registers the callbacks for connection outcomes.
// onConnect runs after every successful Connect; onFailure runs for every
// failed attempt and every lost connection.
func (c *Client) SetConnectionHandlers(onConnect func(), onFailure func(err error)) {
	c.callbackMu.Lock()
	c.onConnect = onConnect
	c.onFailure = onFailure
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for handler errors and panics.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
