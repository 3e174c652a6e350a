package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/internal/config"
)

const publishTimeout = 5 * time.Second

// Payload is the JSON document published for each measurement.
type Payload struct {
	Timestamp time.Time `json:"timestamp"`
	PM1_0CF1  uint16    `json:"pm1_0_cf1"`
	PM2_5CF1  uint16    `json:"pm2_5_cf1"`
	PM10CF1   uint16    `json:"pm10_cf1"`
	PM1_0Atm  uint16    `json:"pm1_0_atm"`
	PM2_5Atm  uint16    `json:"pm2_5_atm"`
	PM10Atm   uint16    `json:"pm10_atm"`
	N0_3      uint16    `json:"n0_3"`
	N0_5      uint16    `json:"n0_5"`
	N1_0      uint16    `json:"n1_0"`
	N2_5      uint16    `json:"n2_5"`
	N5_0      uint16    `json:"n5_0"`
	N10       uint16    `json:"n10"`
}

// NewPayload converts a measurement for publishing.
func NewPayload(m pms7003.Measurement) Payload {
	return Payload{
		Timestamp: m.Timestamp,
		PM1_0CF1:  m.PM1_0CF1,
		PM2_5CF1:  m.PM2_5CF1,
		PM10CF1:   m.PM10CF1,
		PM1_0Atm:  m.PM1_0Atm,
		PM2_5Atm:  m.PM2_5Atm,
		PM10Atm:   m.PM10Atm,
		N0_3:      m.N0_3,
		N0_5:      m.N0_5,
		N1_0:      m.N1_0,
		N2_5:      m.N2_5,
		N5_0:      m.N5_0,
		N10:       m.N10,
	}
}

// Publisher sends measurements to an MQTT broker. Availability is published
// retained on <prefix>/status, with a last will of "offline".
type Publisher struct {
	client paho.Client
	prefix string
	qos    byte
	log    *slog.Logger
}

// New creates a publisher for cfg. Call Connect before publishing.
func New(cfg config.MQTTConfig, log *slog.Logger) *Publisher {
	p := &Publisher{prefix: cfg.TopicPrefix, qos: cfg.QoS, log: log}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(time.Duration(cfg.KeepAlive) * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(p.StatusTopic(), "offline", 1, true)

	opts.SetOnConnectHandler(func(client paho.Client) {
		log.Info("connected to MQTT broker", "broker", cfg.Broker)
		if token := client.Publish(p.StatusTopic(), 1, true, "online"); token.Wait() && token.Error() != nil {
			log.Warn("publish online status", "err", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Error("MQTT connection lost", "err", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// NewWithClient wraps an existing client.
func NewWithClient(client paho.Client, prefix string, qos byte, log *slog.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, qos: qos, log: log}
}

// MeasurementTopic is where measurements are published.
func (p *Publisher) MeasurementTopic() string { return p.prefix + "/measurement" }

// StatusTopic carries the retained online/offline availability.
func (p *Publisher) StatusTopic() string { return p.prefix + "/status" }

// Connect connects to the broker, giving up when ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends one measurement.
func (p *Publisher) Publish(m pms7003.Measurement) error {
	payload, err := json.Marshal(NewPayload(m))
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}
	token := p.client.Publish(p.MeasurementTopic(), p.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timeout", p.MeasurementTopic())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.MeasurementTopic(), err)
	}
	return nil
}

// PublishAll sends measurements in order and returns how many were sent.
// It keeps going after a failure and returns the joined errors.
func (p *Publisher) PublishAll(ms []pms7003.Measurement) (int, error) {
	var errs []error
	sent := 0
	for _, m := range ms {
		if err := p.Publish(m); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if len(errs) > 0 {
		p.log.Warn("some measurements were not published", "sent", sent, "failed", len(errs))
	}
	return sent, errors.Join(errs...)
}

// Close marks the publisher offline when connected and disconnects, which
// also cancels any pending connection attempt.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		token := p.client.Publish(p.StatusTopic(), 1, true, "offline")
		token.WaitTimeout(time.Second)
	}
	p.client.Disconnect(250)
}
