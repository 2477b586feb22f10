package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/config"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/logging"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/mqtt"
)

// The simulator plays a household pressing switches: it publishes random
// on/off/toggle commands for a fixed set of devices.
func main() {
	viper.SetDefault("SIM_DEVICE_IDS", "1,2,3")
	viper.SetDefault("SIM_USER_ID", 1)
	viper.SetDefault("SIM_COMMANDS", 100)
	viper.SetDefault("SIM_INTERVAL", "2s")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	deviceIDs, err := parseIDs(viper.GetString("SIM_DEVICE_IDS"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid SIM_DEVICE_IDS")
	}
	userID := viper.GetInt64("SIM_USER_ID")
	count := viper.GetInt("SIM_COMMANDS")
	interval := viper.GetDuration("SIM_INTERVAL")

	client, err := mqtt.Connect(cfg.MQTTBroker, "shems-simulator", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	actions := []string{mqtt.ActionOn, mqtt.ActionOff, mqtt.ActionToggle}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < count; i++ {
		id := deviceIDs[rng.Intn(len(deviceIDs))]
		cmd := mqtt.Command{
			Action: actions[rng.Intn(len(actions))],
			UserID: userID,
		}
		payload, _ := json.Marshal(cmd)
		topic := fmt.Sprintf("%s/devices/%d/command", cfg.MQTTTopicPrefix, id)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("publish failed")
		} else {
			logger.Info().Str("topic", topic).Str("action", cmd.Action).Msg("command sent")
		}
		time.Sleep(interval)
	}
	logger.Info().Int("commands", count).Msg("simulation done")
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("device id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no device ids in %q", raw)
	}
	return ids, nil
}
