package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
)

// Publisher mirrors device state and enforcements onto the broker. It
// implements engine.StatusListener and engine.EnforcementNotifier.
type Publisher struct {
	client paho.Client
	prefix string
	log    zerolog.Logger
}

func NewPublisher(client paho.Client, prefix string, log zerolog.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, log: log}
}

// StatusChanged publishes the device's new status as a retained message so
// late subscribers see the current state.
func (p *Publisher) StatusChanged(_ context.Context, change engine.StatusChange) {
	p.publish(statusTopic(p.prefix, change.DeviceID), true, change)
}

func (p *Publisher) Enforced(_ context.Context, entry domain.EnforcementLogEntry) {
	p.publish(enforcementTopic(p.prefix), false, entry)
}

func (p *Publisher) publish(topic string, retained bool, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("encode mqtt payload")
		return
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.log.Warn().Str("topic", topic).Msg("mqtt publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("mqtt publish failed")
	}
}
