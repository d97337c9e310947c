// Package mqttbus is the MQTT transport for the sync engine. A Bus is bound
// to one topic; it publishes payloads there and delivers incoming messages to
// a registered handler.
//
// Reconnection is delegated to the paho client (auto-reconnect with
// exponential back-off). The subscription is renewed from the on-connect
// handler, so it survives a disconnect/reconnect cycle.
package mqttbus

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	retryDelay      = time.Second
	maxRetryDelay   = 30 * time.Second
	connectTimeout  = 10 * time.Second
	keepAlive       = 60 * time.Second
	subscribeWait   = 10 * time.Second
	disconnectQuiet = 250 // ms
)

// Options configures a Bus.
type Options struct {
	Host     string
	Port     int
	Topic    string
	ClientID string // empty = random "cbportal-xxxxxxxx"
	Username string
	Password string
	// TLS enables ssl:// when non-nil.
	TLS *tls.Config
	// QoS for publish and subscribe.
	QoS byte
	// ConnectAttempts bounds the initial connection attempts. Zero retries
	// until ctx is done.
	ConnectAttempts int
	// SkipRetained drops messages the broker replays from its retained
	// store on (re)subscribe; only live publishes reach the handler.
	SkipRetained bool
}

// Bus is an MQTT connection bound to one topic.
type Bus struct {
	client       mqtt.Client
	topic        string
	qos          byte
	skipRetained bool

	mu      sync.Mutex
	handler func([]byte)
}

// Dial connects to the broker, retrying with back-off per opts.ConnectAttempts.
func Dial(ctx context.Context, opts Options) (*Bus, error) {
	if opts.Topic == "" {
		return nil, errors.New("mqttbus: topic is required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("mqttbus: invalid QoS %d", opts.QoS)
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = randomClientID()
	}
	url := BrokerURL(opts.Host, opts.Port, opts.TLS != nil)

	b := &Bus{topic: opts.Topic, qos: opts.QoS, skipRetained: opts.SkipRetained}

	co := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxRetryDelay).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		// Handlers run on their own goroutines so a slow clipboard write
		// never stalls acknowledgements for our own publishes.
		SetOrderMatters(false).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("broker connection lost, reconnecting", "err", err)
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			slog.Info("reconnecting to broker", "broker", url)
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		co.SetTLSConfig(opts.TLS)
	}
	b.client = mqtt.NewClient(co)

	delay := retryDelay
	for attempt := 1; ; attempt++ {
		slog.Info("connecting", "broker", url, "topic", opts.Topic, "attempt", attempt)
		err := wait(ctx, b.client.Connect())
		if err == nil {
			return b, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if opts.ConnectAttempts > 0 && attempt >= opts.ConnectAttempts {
			return nil, fmt.Errorf("connect %s after %d attempts: %w", url, attempt, err)
		}
		slog.Warn("connection failed", "err", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
}

// BrokerURL returns the paho broker URL for host:port.
func BrokerURL(host string, port int, useTLS bool) string {
	scheme := "tcp"
	if useTLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Publish sends msg to the topic and waits for the client to hand it off
// (QoS 0) or for the broker to acknowledge it (QoS 1/2), or for ctx.
func (b *Bus) Publish(ctx context.Context, msg []byte, retained bool) error {
	return wait(ctx, b.client.Publish(b.topic, b.qos, retained, msg))
}

// Subscribe registers handler and subscribes to the topic. The subscription
// is renewed on every reconnect.
func (b *Bus) Subscribe(ctx context.Context, handler func([]byte)) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	if err := wait(ctx, b.client.Subscribe(b.topic, b.qos, b.deliver)); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topic, err)
	}
	slog.Debug("subscribed", "topic", b.topic)
	return nil
}

// Close disconnects from the broker.
func (b *Bus) Close() error {
	b.client.Disconnect(disconnectQuiet)
	slog.Debug("disconnected from broker")
	return nil
}

func (b *Bus) deliver(_ mqtt.Client, m mqtt.Message) {
	if b.skipRetained && m.Retained() {
		slog.Debug("ignoring retained message", "topic", m.Topic())
		return
	}
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(m.Payload())
	}
}

// onConnect runs on every (re)connect. The first connect happens before any
// handler is registered; later ones renew the subscription.
func (b *Bus) onConnect(c mqtt.Client) {
	slog.Info("connected to broker")
	b.mu.Lock()
	subscribed := b.handler != nil
	b.mu.Unlock()
	if !subscribed {
		return
	}
	tok := c.Subscribe(b.topic, b.qos, b.deliver)
	if !tok.WaitTimeout(subscribeWait) {
		slog.Warn("resubscribe timed out", "topic", b.topic)
		return
	}
	if err := tok.Error(); err != nil {
		slog.Error("resubscribe failed", "topic", b.topic, "err", err)
	}
}

func wait(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomClientID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return "cbportal-" + hex.EncodeToString(b[:])
}
