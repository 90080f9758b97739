// onkyoapi serves an HTTP control API for an Onkyo receiver.
//
// It keeps the receiver behind a single proxy that serialises every
// operation, clamps volume to the active profile and applies listening
// profiles. The same proxy is optionally exposed over MQTT, and state
// changes can be recorded in InfluxDB.
//
// Configuration is read from the YAML file named by ONKYO_CONFIG, then
// overridden by ONKYO_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/api"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/influxdb"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/logging"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/mqtt"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/mqttbridge"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnv names the environment variable holding the config file path.
// When unset, built-in defaults and environment overrides are used.
const configEnv = "ONKYO_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting onkyo-ctl API",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	dialer, err := eiscp.NewDialer(cfg.Device)
	if err != nil {
		return fmt.Errorf("configuring receiver transport: %w", err)
	}
	session := eiscp.NewSession(dialer, eiscp.SessionConfigFrom(cfg.Device))
	session.SetLogger(log.With("component", "eiscp"))
	log.Info("receiver session ready",
		"transport", cfg.Device.Transport,
		"host", cfg.Device.Host,
		"port", cfg.Device.Port,
	)

	catalog, err := profile.FromConfig(cfg.Profiles)
	if err != nil {
		return fmt.Errorf("loading profile catalog: %w", err)
	}
	log.Info("profile catalog loaded", "profiles", catalog.Len())

	proxy := receiver.New(session, catalog, receiver.OptionsFromConfig(cfg.Device))
	proxy.SetLogger(log.With("component", "receiver"))

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		rec := newTelemetry(influxClient, catalog)
		proxy.Subscribe(rec.recordEvent)
		session.SetOnExchange(rec.recordExchange)
	}

	// Connect to MQTT broker and start the bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := startBridge(ctx, cfg, mqttClient, proxy, session, log)
		if bridgeErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", bridgeErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.With("component", "api"),
		Proxy:   proxy,
		Session: session,
		MQTT:    mqttClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("onkyo-ctl API stopped")
	return nil
}

// getConfigPath returns the configuration file path from ONKYO_CONFIG.
func getConfigPath() string {
	return os.Getenv(configEnv)
}

// healthCheck verifies the optional infrastructure connections. Either
// client may be nil when disabled.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startBridge creates and starts the MQTT bridge over the proxy.
func startBridge(ctx context.Context, cfg *config.Config, client *mqtt.Client, proxy *receiver.Proxy, session *eiscp.Session, log *logging.Logger) (*mqttbridge.Bridge, error) {
	bridge, err := mqttbridge.NewBridge(mqttbridge.Options{
		Receiver:   proxy,
		MQTTClient: client,
		Topics:     client.Topics(),
		QoS:        client.QoS(),
		Stats:      session,
		Version:    version,
		Logger:     log.With("component", "mqttbridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return nil, err
	}
	log.Info("MQTT bridge started", "prefix", cfg.MQTT.TopicPrefix)

	return bridge, nil
}
