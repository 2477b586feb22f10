// Package mqtt bridges the engine to an MQTT broker: device status changes and
// enforcements are published, and switch commands are accepted.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	qos            = 1
	publishTimeout = 2 * time.Second
)

// Connect dials the broker with a unique client id derived from name.
func Connect(broker, name string, log zerolog.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", broker).Msg("mqtt connected")
		})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func statusTopic(prefix string, deviceID int64) string {
	return fmt.Sprintf("%s/devices/%d/status", prefix, deviceID)
}

func enforcementTopic(prefix string) string {
	return prefix + "/enforcements"
}

func commandFilter(prefix string) string {
	return prefix + "/devices/+/command"
}
