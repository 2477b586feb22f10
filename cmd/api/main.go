package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/cloud"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/config"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/database"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	httpHandlers "github.com/ANIKETSHETTY47/smart-home-energy-management/internal/http"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/logging"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/mqtt"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logger := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("db connect failed")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate failed")
	}

	repos := repository.New(db, repository.BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
	})

	clk := clock.NewReal(cfg.Location)
	registry := engine.NewRegistry(repos, clk, logging.Component(logger, "registry"))
	ledger := engine.NewLedger(repos)
	meter := engine.NewMeter(registry, ledger, logging.Component(logger, "meter"))
	scheduler := engine.NewScheduler(repos, registry, logging.Component(logger, "scheduler"))
	enforcer := engine.NewEnforcer(repos, registry, ledger, logging.Component(logger, "enforcer"))
	dispatcher := engine.NewDispatcher(cfg.TickInterval, clk, cfg.Location, meter, scheduler, enforcer,
		logging.Component(logger, "dispatcher"))

	// Broker and cloud sinks receive events through the relay, off the tick
	// and request goroutines.
	relay := engine.NewRelay(engine.DefaultRelayBuffer, logging.Component(logger, "relay"))
	registry.Subscribe(relay)
	enforcer.Notify(relay)

	deps := service.Deps{
		Repos:    repos,
		Registry: registry,
		Ledger:   ledger,
		Enforcer: enforcer,
		Clock:    clk,
		Log:      logging.Component(logger, "service"),
	}

	if cfg.UseCloudServices {
		awsCfg, err := cloud.LoadConfig(context.Background(), cfg.AWSRegion)
		if err != nil {
			logger.Fatal().Err(err).Msg("aws config load failed")
		}
		var alerts *cloud.SNSClient
		if cfg.SNSTopicArn != "" {
			alerts = cloud.NewSNSClient(awsCfg, cfg.SNSTopicArn)
		}
		archive := cloud.NewDynamoDBClient(awsCfg, cfg.EnforcementTable)
		relay.AddNotifier(cloud.NewEnforcementNotifier(alerts, archive, logging.Component(logger, "cloud")))
		deps.Uploader = cloud.NewS3Client(awsCfg, cfg.S3Bucket)
		logger.Info().Str("region", cfg.AWSRegion).Str("bucket", cfg.S3Bucket).Msg("cloud services enabled")
	}

	svcs := service.New(deps, service.Settings{
		EnergyRate:                cfg.EnergyRate,
		DefaultPolicyThresholdKWh: cfg.DefaultPolicyThresholdKWh,
		UsageMediumKWh:            cfg.UsageMediumKWh,
		UsageHighKWh:              cfg.UsageHighKWh,
		PeakDeviceKWh:             cfg.PeakDeviceKWh,
		PeakUserKWh:               cfg.PeakUserKWh,
	})

	var broker paho.Client
	var commands *mqtt.CommandListener
	if cfg.MQTTEnabled {
		mqttLog := logging.Component(logger, "mqtt")
		broker, err = mqtt.Connect(cfg.MQTTBroker, "shems-api", mqttLog)
		if err != nil {
			logger.Fatal().Err(err).Msg("mqtt connect failed")
		}
		publisher := mqtt.NewPublisher(broker, cfg.MQTTTopicPrefix, mqttLog)
		relay.AddListener(publisher)
		relay.AddNotifier(publisher)

		commands = mqtt.NewCommandListener(broker, cfg.MQTTTopicPrefix, svcs.Devices, mqttLog)
	}
	relay.Start()

	if commands != nil {
		if err := commands.Start(); err != nil {
			logger.Fatal().Err(err).Msg("mqtt subscribe failed")
		}
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpHandlers.Register(app, svcs, logging.Component(logger, "http"))

	if err := dispatcher.Start(); err != nil {
		logger.Fatal().Err(err).Msg("dispatcher start failed")
	}

	go func() {
		logger.Info().Str("addr", cfg.APIAddr).Msg("api listening")
		if err := app.Listen(cfg.APIAddr); err != nil {
			logger.Fatal().Err(err).Msg("server exit")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Stop()
	if commands != nil {
		commands.Stop()
	}
	relay.Stop()
	if broker != nil {
		broker.Disconnect(250)
	}
	logger.Info().Msg("stopped")
}
