// Package mqtt connects the microgrid to an MQTT broker: completed windows
// are published as reports, and a remote simulator can be driven over
// request/response topics.
package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/monitoring"
	"github.com/kilianp07/microgrid/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Client is a connected Paho client with retrying publication.
type Client struct {
	cli        pahoClient
	qos        byte
	maxRetries int
	backoff    time.Duration
	log        corelogger.Logger

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

// Connect dials the broker. Subscriptions made through the client are
// restored after a reconnect.
func Connect(cfg Config, component string) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        logger.New(component),
		subs:       make(map[string]paho.MessageHandler),
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	if c.backoff <= 0 {
		c.backoff = 100 * time.Millisecond
	}
	opts.OnConnect = func(pc paho.Client) {
		c.log.Infof("MQTT connected to %s", cfg.Broker)
		c.mu.Lock()
		defer c.mu.Unlock()
		for topic, h := range c.subs {
			if token := pc.Subscribe(topic, c.qos, h); token.Wait() && token.Error() != nil {
				c.log.Errorf("resubscribe %s: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		c.log.Warnf("reconnecting to MQTT broker")
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	c.cli = cli
	return c, nil
}

// Publish sends payload to topic, retrying with exponential backoff.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token := c.cli.Publish(topic, c.qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		c.log.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < c.maxRetries {
			time.Sleep(c.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("publish %s: %w", topic, err)
}

// Subscribe registers h for topic.
func (c *Client) Subscribe(topic string, h paho.MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()
	if token := c.cli.Subscribe(topic, c.qos, h); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
