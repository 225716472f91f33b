// Package mqtt publishes GNSS fixes to an MQTT broker as JSON, so other
// systems on the vehicle network can consume position data without talking
// to the receiver themselves.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ubxdash/ubxdash/internal/gnss"
)

// Publisher sends each fix to a configured topic.
type Publisher struct {
	client paho.Client
	topic  string
}

// Config holds broker connection settings.
type Config struct {
	Broker   string `yaml:"broker" json:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id" json:"clientId"`
	Topic    string `yaml:"topic" json:"topic"`
}

// fixMessage is the published JSON document.
type fixMessage struct {
	Fix        *gnss.Fix        `json:"fix"`
	Tracked    int              `json:"tracked"`
	Used       int              `json:"used"`
	Satellites []gnss.Satellite `json:"satellites,omitempty"`
}

// Connect dials the broker and returns a ready Publisher.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "ubxdash"
	}
	if cfg.Topic == "" {
		cfg.Topic = "gnss/fix"
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("[mqtt] connected to %s (topic %s)", cfg.Broker, cfg.Topic)

	return &Publisher{client: client, topic: cfg.Topic}, nil
}

// PublishFix sends one fix with its satellite summary, retained so late
// subscribers see the last known position immediately.
func (p *Publisher) PublishFix(fix *gnss.Fix, sats []gnss.Satellite) error {
	used := 0
	for _, s := range sats {
		if s.Used {
			used++
		}
	}
	payload, err := json.Marshal(fixMessage{
		Fix:        fix,
		Tracked:    len(sats),
		Used:       used,
		Satellites: sats,
	})
	if err != nil {
		return fmt.Errorf("mqtt: marshal fix: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt: publish: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
