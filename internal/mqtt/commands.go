package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

// DeviceController is the part of the device service commands drive.
type DeviceController interface {
	Toggle(ctx context.Context, actor service.Actor, id int64) (domain.Device, error)
	SetStatus(ctx context.Context, actor service.Actor, id int64, on bool) (domain.Device, error)
}

const (
	ActionOn     = "on"
	ActionOff    = "off"
	ActionToggle = "toggle"
)

// Command is the payload accepted on <prefix>/devices/<id>/command.
type Command struct {
	Action string `json:"action"`
	UserID int64  `json:"user_id"`
}

// CommandListener applies switch commands from the broker as manual
// operations on behalf of the user named in the command. Commands never carry
// admin rights: the user must own the device.
type CommandListener struct {
	client  paho.Client
	prefix  string
	devices DeviceController
	log     zerolog.Logger
}

func NewCommandListener(client paho.Client, prefix string, devices DeviceController, log zerolog.Logger) *CommandListener {
	return &CommandListener{client: client, prefix: prefix, devices: devices, log: log}
}

func (l *CommandListener) Start() error {
	filter := commandFilter(l.prefix)
	token := l.client.Subscribe(filter, qos, func(_ paho.Client, msg paho.Message) {
		if err := l.handleMessage(context.Background(), msg.Topic(), msg.Payload()); err != nil {
			l.log.Error().Err(err).Str("topic", msg.Topic()).Msg("device command rejected")
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", filter, token.Error())
	}
	l.log.Info().Str("topic", filter).Msg("listening for device commands")
	return nil
}

func (l *CommandListener) Stop() {
	l.client.Unsubscribe(commandFilter(l.prefix)).Wait()
}

func (l *CommandListener) deviceID(topic string) (int64, error) {
	rest := strings.TrimPrefix(topic, l.prefix+"/devices/")
	if rest == topic || !strings.HasSuffix(rest, "/command") {
		return 0, fmt.Errorf("unexpected topic %q", topic)
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(rest, "/command"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid device id in topic %q", topic)
	}
	return id, nil
}

func (l *CommandListener) handleMessage(ctx context.Context, topic string, payload []byte) error {
	id, err := l.deviceID(topic)
	if err != nil {
		return err
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if cmd.UserID <= 0 {
		return fmt.Errorf("command for device %d has no user_id", id)
	}
	actor := service.Actor{UserID: cmd.UserID}

	var d domain.Device
	switch strings.ToLower(cmd.Action) {
	case ActionOn:
		d, err = l.devices.SetStatus(ctx, actor, id, true)
	case ActionOff:
		d, err = l.devices.SetStatus(ctx, actor, id, false)
	case ActionToggle:
		d, err = l.devices.Toggle(ctx, actor, id)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	if err != nil {
		return err
	}
	l.log.Info().Int64("device_id", d.ID).Bool("status", d.Status).Int64("user_id", cmd.UserID).Msg("device command applied")
	return nil
}
