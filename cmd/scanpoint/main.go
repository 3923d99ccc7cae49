// Scanpoint Core - Checkpoint Verification Daemon
//
// This is the main entry point for the Scanpoint Core application.
// Scanpoint verifies two factors at a physical checkpoint:
//   - An access QR code scanned by the terminal's camera
//   - A roll number typed by the person presenting it
//
// Terminals are thin MQTT clients; every session decision is made here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/scanpoint/scanpoint-core/migrations"

	"github.com/scanpoint/scanpoint-core/internal/api"
	"github.com/scanpoint/scanpoint-core/internal/audit"
	"github.com/scanpoint/scanpoint-core/internal/bridges/scanner"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/config"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/database"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/influxdb"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/logging"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/mqtt"
	"github.com/scanpoint/scanpoint-core/internal/roster"
	"github.com/scanpoint/scanpoint-core/internal/session"
	"github.com/scanpoint/scanpoint-core/internal/terminal"
	"github.com/scanpoint/scanpoint-core/internal/verify"
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

// auditCapacity is the size of the in-memory audit ring.
const auditCapacity = 1000

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Scanpoint Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings, tagged with the site
	// so aggregated logs from multiple checkpoints stay attributable.
	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the roster database, only needed for the sqlite source
	var db *database.DB
	if cfg.Roster.Source == config.RosterSourceSQLite {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")
	}

	// Load the verification roster
	table, err := roster.Load(ctx, roster.Config{
		Source:  cfg.Roster.Source,
		File:    cfg.Roster.File,
		Entries: cfg.Roster.Entries,
	}, db)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	log.Info("roster loaded",
		"source", cfg.Roster.Source,
		"codes", table.CodeCount(),
		"identifiers", table.IdentifierCount(),
	)

	// Identity store: the single process-wide verified identity
	identity := verify.NewStore(table)

	// Audit trail
	recorder := audit.NewRecorder(auditCapacity)

	// Terminal registry with its offline sweeper
	registry := terminal.NewRegistry()
	registry.SetLogger(log.With("component", "terminal"))
	registry.SetStaleAfter(cfg.GetTerminalStaleAfter())
	registry.Start()
	defer func() {
		log.Info("stopping terminal registry")
		registry.Stop()
	}()

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub, shared between the API server and the session fan-out
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	go hub.Run(ctx)
	broadcaster := api.NewSessionBroadcaster(hub)

	// Session transitions fan out to the audit trail, the dashboard hub,
	// telemetry and the terminal bridge. All receivers are registered
	// before any session traffic can arrive.
	notifier := &notifierFanout{}
	notifier.add(audit.NewObserver(recorder))
	notifier.add(broadcaster)
	if influxClient != nil {
		notifier.add(&influxSessionObserver{client: influxClient})
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Decode dispatcher: still-image decodes ride the worker pool
	mqttAdapter := &mqttBridgeAdapter{client: mqttClient}
	decoder := scanner.NewMQTTDecoder(mqttAdapter, log.With("component", "decoder"))
	if err := decoder.Start(); err != nil {
		return fmt.Errorf("starting decode dispatcher: %w", err)
	}

	// Session manager with its idle sweeper
	sessions := session.NewManager(identity, decoder, notifier, log.With("component", "session"))
	sessions.SetDecodeTimeout(cfg.GetDecodeTimeout())
	sessions.SetIdleTimeout(cfg.GetSessionIdleTimeout())
	sessions.Start()
	defer func() {
		log.Info("stopping sessions")
		sessions.Stop()
	}()

	// Terminal bridge: terminal events in, retained session state out.
	// Registered with the fan-out before Start so the first event's
	// transition already publishes back to the terminal.
	bridge, err := scanner.NewBridge(scanner.BridgeOptions{
		MQTT:     mqttAdapter,
		Sessions: sessions,
		Registry: &registryAdapter{registry: registry},
		Logger:   log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating terminal bridge: %w", err)
	}
	notifier.add(bridge)
	if err := bridge.Start(); err != nil {
		return fmt.Errorf("starting terminal bridge: %w", err)
	}
	defer func() {
		log.Info("stopping terminal bridge")
		bridge.Stop()
	}()

	// Presence transitions reach the dashboard and telemetry
	registry.SetOnPresenceChange(func(id string, online bool) {
		if term, getErr := registry.Get(id); getErr == nil {
			broadcaster.BroadcastTerminalPresence(*term, online)
		}
		if influxClient != nil {
			influxClient.WriteTerminalPresence(id, online)
		}
	})

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log.With("component", "api"),
		Sessions:    sessions,
		Identity:    identity,
		Terminals:   registry,
		Audit:       recorder,
		Roster:      table,
		MQTT:        mqttClient,
		Influx:      influxClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
		"tls", cfg.API.TLS.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, bridge, sessions, MQTT, InfluxDB, registry, database.

	log.Info("Scanpoint Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SCANPOINT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SCANPOINT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy. The
// database and InfluxDB handles may be nil when their features are off.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// notifierFanout delivers each session transition to every receiver in
// registration order. Receivers are added during startup only; once traffic
// flows the slice is read-only, so no lock is needed.
type notifierFanout struct {
	receivers []session.Notifier
}

func (f *notifierFanout) add(n session.Notifier) {
	f.receivers = append(f.receivers, n)
}

// SessionChanged implements session.Notifier.
func (f *notifierFanout) SessionChanged(state session.State, event string) {
	for _, r := range f.receivers {
		r.SessionChanged(state, event)
	}
}

// influxSessionObserver writes session transitions to the telemetry bucket,
// splitting verification and decode outcomes into their own measurements.
type influxSessionObserver struct {
	client *influxdb.Client
}

// SessionChanged implements session.Notifier.
func (o *influxSessionObserver) SessionChanged(state session.State, event string) {
	switch event {
	case session.EventInputChanged:
		// Keystroke noise; deliberately not written.
	case session.EventVerifyAccepted:
		o.client.WriteVerification(state.TerminalID, influxdb.OutcomeAccepted)
	case session.EventVerifyRejected:
		o.client.WriteVerification(state.TerminalID, influxdb.OutcomeRejected)
	case session.EventVerifyError:
		o.client.WriteVerification(state.TerminalID, influxdb.OutcomeError)
	case session.EventDecodeFound:
		o.client.WriteDecode(state.TerminalID, influxdb.OutcomeFound)
	case session.EventDecodeEmpty:
		o.client.WriteDecode(state.TerminalID, influxdb.OutcomeEmpty)
	case session.EventDecodeError:
		o.client.WriteDecode(state.TerminalID, influxdb.OutcomeError)
	default:
		o.client.WriteSessionEvent(state.TerminalID, event)
	}
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// infrastructure handlers return an error, bridge handlers do not.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements scanner.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements scanner.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements scanner.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// registryAdapter adapts the terminal registry to the bridge's Registry
// interface, mapping wire status messages onto registry status records.
type registryAdapter struct {
	registry *terminal.Registry
}

// UpdateStatus implements scanner.Registry.
func (a *registryAdapter) UpdateStatus(id string, msg scanner.StatusMessage) {
	a.registry.UpdateStatus(id, terminal.Status{
		Online:        msg.Online,
		CameraGranted: msg.CameraGranted,
		Name:          msg.Name,
		Location:      msg.Location,
	})
}

// Touch implements scanner.Registry.
func (a *registryAdapter) Touch(id string) {
	a.registry.Touch(id)
}

// CameraGranted implements scanner.Registry.
func (a *registryAdapter) CameraGranted(id string) bool {
	return a.registry.CameraGranted(id)
}
