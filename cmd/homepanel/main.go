// Home Panel Core - control panel for a networked home automation node
//
// This is the main entry point. It keeps a cached view of one node (lamp
// and plug relays, door sensor, thermistor, buzzer), polls it over plain
// HTTP, and serves that view to panel shells over a local REST/WebSocket
// API. Optional extras: an MQTT bridge and InfluxDB telemetry.
//
// Configuration comes from HOMEPANEL_CONFIG or configs/config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/api"
	"github.com/nerrad567/homepanel-core/internal/automation"
	"github.com/nerrad567/homepanel-core/internal/bridges/mqttstate"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homepanel-core/internal/session"
	"github.com/nerrad567/homepanel-core/internal/settings"
	"github.com/nerrad567/homepanel-core/internal/telemetry"
	"github.com/nerrad567/homepanel-core/internal/transport"
	"github.com/nerrad567/homepanel-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// healthCheckTimeout bounds the startup health check.
const healthCheckTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, serves until ctx is cancelled, then shuts
// down in reverse order.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // composition root: linear wiring of optional components
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting home panel core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).ForNode(cfg.Node.ID)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	// Device state, transport and session
	store := device.NewStore(device.DefaultState())
	tr := transport.New(transport.WithTimeout(cfg.RequestTimeout()))
	sess := session.New(session.Options{
		Transport:    tr,
		Store:        store,
		PollInterval: cfg.PollInterval(),
		Timeout:      cfg.RequestTimeout(),
		Logger:       log.With("component", "session"),
	})

	// Settings: the stored threshold wins over the configured default
	thresholds := settings.NewThresholds(settings.Options{
		Repository:   settings.NewSQLiteRepository(db.DB),
		Store:        store,
		Sender:       sess,
		PushToDevice: cfg.Alarm.PushToDevice,
		Logger:       log.With("component", "settings"),
	})
	if _, restoreErr := thresholds.Restore(ctx, cfg.Alarm.DefaultThreshold); restoreErr != nil {
		return restoreErr
	}

	// Activity log
	actLog := activity.NewLog(activity.Options{
		Repository: activity.NewSQLiteRepository(db.DB, cfg.Node.ID),
		MaxEntries: cfg.Activity.MaxEntries,
		Logger:     log.With("component", "activity"),
	})
	if loadErr := actLog.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading activity log: %w", loadErr)
	}
	log.Info("activity log loaded", "entries", actLog.Len())

	alarmSync := automation.NewAlarmSync(sess, log.With("component", "alarm_sync"))

	// Background workers outlive the session so the activity log can
	// persist everything the last poll produced.
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	var workers sync.WaitGroup
	defer func() {
		stopWorkers()
		workers.Wait()
		log.Info("background workers stopped")
	}()

	workers.Add(2)
	go func() {
		defer workers.Done()
		actLog.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		if runErr := alarmSync.Run(workerCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("alarm synchronizer stopped", "error", runErr)
		}
	}()

	defer sess.Close()

	// Store subscribers. The activity log attaches first so advice computed
	// by later subscribers already sees the newest entry.
	defer actLog.Attach(store)()
	defer alarmSync.Attach(store)()

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Node.ID)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := startBridge(mqttClient, sess, thresholds, store, actLog, log)
		if bridgeErr != nil {
			return bridgeErr
		}
		defer bridge.Stop()
	} else {
		log.Info("MQTT bridge disabled")
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder := telemetry.NewRecorder(influxClient, cfg.Node.ID)
		defer recorder.AttachStore(store)()
		defer recorder.AttachActivity(actLog)()
	} else {
		log.Info("InfluxDB disabled")
	}

	// View API
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.With("component", "api"),
		Store:      store,
		Session:    sess,
		Activity:   actLog,
		Thresholds: thresholds,
		Prober:     tr,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Device connection
	switch {
	case cfg.Device.Address == "":
		log.Info("no device address configured, waiting for one via the API")
	case !cfg.Device.AutoConnect:
		log.Info("auto-connect disabled", "address", cfg.Device.Address)
	default:
		if connErr := sess.Connect(cfg.Device.Address); connErr != nil {
			log.Warn("could not start polling", "address", cfg.Device.Address, "error", connErr)
		}
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, healthCheckTimeout)
	if healthErr := healthCheck(checkCtx, db, mqttClient, influxClient); healthErr != nil {
		log.Warn("startup health check failed", "error", healthErr)
	}
	cancelCheck()

	log.Info("home panel core running", "api", apiServer.Addr())

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// startBridge creates and starts the MQTT bridge and attaches it to the
// store and the activity log. Stop detaches it again.
func startBridge(
	client *mqtt.Client,
	sess *session.Session,
	thresholds *settings.Thresholds,
	store *device.Store,
	actLog *activity.Log,
	log *logging.Logger,
) (*attachedBridge, error) {
	bridge, err := mqttstate.NewBridge(mqttstate.Options{
		Client:     client,
		Topics:     client.Topics(),
		QoS:        client.QoS(),
		Session:    sess,
		Thresholds: thresholds,
		Logger:     log.With("component", "mqtt_bridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := bridge.Start(); err != nil {
		return nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}

	return &attachedBridge{
		bridge: bridge,
		detaches: []func(){
			bridge.AttachStore(store),
			bridge.AttachActivity(actLog),
		},
	}, nil
}

// attachedBridge is a running bridge together with its subscriptions.
type attachedBridge struct {
	bridge   *mqttstate.Bridge
	detaches []func()
}

// Stop detaches the bridge, then stops it.
func (a *attachedBridge) Stop() {
	for _, detach := range a.detaches {
		detach()
	}
	a.bridge.Stop()
}

// getConfigPath returns the configuration file path.
// It checks the HOMEPANEL_CONFIG environment variable first, then falls back to the default.
func getConfigPath() string {
	if path := os.Getenv("HOMEPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

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

	// The device is not checked here: it may legitimately be offline at
	// startup and the session reports that through the state.
	return nil
}
