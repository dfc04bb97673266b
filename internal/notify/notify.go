// Package notify announces finished files to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-resolver/internal/domain/plate"
)

var ErrNotConnected = errors.New("mqtt not connected")

// Message is the payload published for every terminal file result.
type Message struct {
	RunID          uuid.UUID            `json:"run_id"`
	SessionID      uuid.UUID            `json:"session_id"`
	File           string               `json:"file"`
	Success        bool                 `json:"success"`
	Plate          string               `json:"plate"`
	Phase          plate.Phase          `json:"phase,omitempty"`
	Attempts       int                  `json:"attempts"`
	Jurisdiction   string               `json:"jurisdiction"`
	Vehicle        *plate.VehicleRecord `json:"vehicle,omitempty"`
	Failure        string               `json:"failure,omitempty"`
	ElapsedSeconds float64              `json:"elapsed_seconds"`
	PublishedAt    time.Time            `json:"published_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Message) error { return nil }
func (NopPublisher) Close() error                           { return nil }

type MQTTConfig struct {
	Broker   string
	ClientID string
	// Topic is the prefix; results go to <Topic>/success or <Topic>/failure.
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// tokenPublisher is the part of mqtt.Client the publisher uses.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTPublisher struct {
	cfg       MQTTConfig
	client    mqtt.Client
	pub       tokenPublisher
	connected atomic.Bool
	log       zerolog.Logger
}

func NewMQTTPublisher(cfg MQTTConfig, log zerolog.Logger) *MQTTPublisher {
	if cfg.ClientID == "" {
		cfg.ClientID = "plate-resolver-" + uuid.NewString()[:8]
	}
	if cfg.Topic == "" {
		cfg.Topic = "plate-resolver/results"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &MQTTPublisher{cfg: cfg, log: log.With().Str("component", "mqtt").Logger()}
}

// Connect dials the broker. The client reconnects on its own afterwards.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.connected.Store(true)
		p.log.Info().Str("broker", p.cfg.Broker).Str("client_id", p.cfg.ClientID).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.connected.Store(false)
		p.log.Warn().Err(err).Str("broker", p.cfg.Broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	p.client = mqtt.NewClient(opts)
	p.pub = p.client

	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(p.cfg.ConnectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.connected.Store(true)
	return nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, msg Message) error {
	if p.pub == nil || !p.connected.Load() {
		return ErrNotConnected
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	topic := path.Join(p.cfg.Topic, "failure")
	if msg.Success {
		topic = path.Join(p.cfg.Topic, "success")
	}

	token := p.pub.Publish(topic, p.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-time.After(p.cfg.PublishTimeout):
		return fmt.Errorf("publish timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	p.log.Debug().Str("topic", topic).Str("file", msg.File).Int("size", len(payload)).Msg("result published")
	return nil
}

func (p *MQTTPublisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.connected.Store(false)
	return nil
}
