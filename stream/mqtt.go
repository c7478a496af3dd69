package stream

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig describes the broker the strip listens on.
type MQTTConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
	Topics   struct {
		Stream string `yaml:"stream"`
	} `yaml:"topics"`
}

// Validate fills defaults and checks the broker settings.
func (c *MQTTConfig) Validate() error {
	if c.ClientID == "" {
		c.ClientID = "ledfade"
	}
	if c.Topics.Stream == "" {
		c.Topics.Stream = "home/xmastree/stream"
	}
	if c.URL == "" {
		return errors.New("mqtt: url is required")
	}
	return nil
}

// NewMQTTClient creates an auto-reconnecting client. It does not connect.
func NewMQTTClient(cfg MQTTConfig, log zerolog.Logger) mqtt.Client {
	log = log.With().Str("component", "mqtt").Logger()
	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info().Str("broker", cfg.URL).Msg("connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("connection lost")
		})
	return mqtt.NewClient(options)
}

// ErrNotConnected is returned when a frame is published while the broker
// connection is down.
var ErrNotConnected = errors.New("mqtt: not connected")

type publishClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher sends frames as binary messages over MQTT to an ledrx device.
type MQTTPublisher struct {
	client  publishClient
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher publishes on topic through client.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return newMQTTPublisher(client, topic)
}

func newMQTTPublisher(client publishClient, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, timeout: time.Second}
}

// Publish sends one frame at QoS 2 and waits for delivery.
func (p *MQTTPublisher) Publish(frame []byte) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := p.client.Publish(p.topic, 2, false, frame)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt: publish to %s timed out", p.topic)
	}
	return token.Error()
}
