// Package telemetry publishes ride samples to an MQTT broker so dashboards
// can follow a run tick by tick.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/ride"
)

const publishTimeout = 2 * time.Second

// Publisher is the part of mqtt.Client the observer needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Connect dials the broker named in the profile.
func Connect(cfg config.TelemetryConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("telemetry: connected to %s, publishing to %s", cfg.Broker, cfg.Topic)
	return client, nil
}

// Observer publishes every Nth sample as JSON. It implements ride.Observer.
type Observer struct {
	pub      Publisher
	topic    string
	every    int
	seen     int
	phase    braketilt.Phase
	sent     int
	failures int
}

func NewObserver(pub Publisher, topic string, every int) *Observer {
	if every < 1 {
		every = 1
	}
	return &Observer{pub: pub, topic: topic, every: every}
}

func (o *Observer) OnTick(s ride.Sample) {
	due := o.seen%o.every == 0
	changed := (o.seen > 0 && s.Phase != o.phase) || s.HoldEngaged
	o.seen++
	o.phase = s.Phase
	// phase changes and hold-tilt engagements are published even between
	// sampled ticks
	if !due && !changed {
		return
	}

	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("telemetry: json marshal error (tick %d): %v", s.Tick, err)
		o.failures++
		return
	}
	token := o.pub.Publish(o.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("telemetry: publish timeout (tick %d)", s.Tick)
		o.failures++
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("telemetry: publish error (tick %d): %v", s.Tick, err)
		o.failures++
		return
	}
	o.sent++
}

// Sent and Failures report publish counts for the CLI summary.
func (o *Observer) Sent() int     { return o.sent }
func (o *Observer) Failures() int { return o.failures }
