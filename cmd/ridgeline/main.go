// Ridgeline Core - Home Control Platform
//
// This is the main entry point for the Ridgeline Core application.
// Ridgeline is a self-hosted home control system designed for:
//   - Offline-first operation (wall panels keep working without internet)
//   - Open transports (MQTT for devices, REST/WebSocket for panels)
//   - Zero vendor lock-in
//
// For architecture details, see: docs/architecture/system-overview.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ridgelinehome/ridgeline-core/migrations"

	"github.com/ridgelinehome/ridgeline-core/internal/api"
	"github.com/ridgelinehome/ridgeline-core/internal/dashboard"
	"github.com/ridgelinehome/ridgeline-core/internal/device"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/config"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/database"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/influxdb"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/logging"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/mqtt"
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

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Ridgeline Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.Count())

	// Initialise dashboard store and guarantee a default dashboard so
	// the first panel to connect always finds something to render
	dashboardStore := dashboard.NewStore(dashboard.NewSQLiteRepository(db.DB))
	dashboardStore.SetLogger(log)

	if refreshErr := dashboardStore.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading dashboards: %w", refreshErr)
	}
	if ensureErr := dashboardStore.EnsureDefault(ctx); ensureErr != nil {
		return fmt.Errorf("ensuring default dashboard: %w", ensureErr)
	}
	log.Info("dashboard store initialised", "dashboards", dashboardStore.Count())

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

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional telemetry mirror)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start telemetry ingest: device reports flow from the bus into the
	// registry, and numeric readings mirror to InfluxDB when enabled
	ingestor := device.NewIngestor(deviceRegistry, mqttBus{mqttClient})
	ingestor.SetLogger(log)
	if influxClient != nil {
		ingestor.SetMetricsWriter(influxClient)
	}
	if startErr := ingestor.Start(ctx); startErr != nil {
		return fmt.Errorf("starting telemetry ingest: %w", startErr)
	}
	log.Info("telemetry ingest started")

	// Command dispatch: REST and layer sessions publish device commands
	// through the same path
	commander := device.NewCommander(deviceRegistry, mqttBus{mqttClient})
	commander.SetLogger(log)

	// Start API server (REST + WebSocket + panel assets)
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Layer:     cfg.Layer,
		Logger:    log,
		Registry:  deviceRegistry,
		Commander: commander,
		Store:     dashboardStore,
		MQTT:      mqttClient,
		DB:        db,
		PanelDir:  os.Getenv("RIDGELINE_PANEL_DIR"),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Ridgeline Core stopped")
	return nil
}

// mqttBus adapts the infrastructure MQTT client to the device package's
// MessageBus interface. Publish and IsConnected are promoted from the
// embedded client unchanged; Subscribe bridges the device package's
// error-free handler signature onto the client's MessageHandler, which
// expects handlers to report an error (the ingest path never fails, so
// the bridged handler always reports success).
type mqttBus struct {
	*mqtt.Client
}

func (b mqttBus) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return b.Client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// getConfigPath returns the configuration file path.
// Uses RIDGELINE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RIDGELINE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
