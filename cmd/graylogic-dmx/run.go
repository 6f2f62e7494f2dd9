package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-dmx/internal/api"
	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/configwatch"
	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/engine"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dmx/migrations"
)

var _ sacn.Transport = (*mqtt.Client)(nil)

// run is the serve command, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Config file to load
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic DMX",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer log.Close()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	m := metrics.New()
	statsSinks := []diagnostics.StatsSink{m}
	errorSinks := []diagnostics.ErrorSink{m}

	var errorLog *diagnostics.ErrorLog
	if cfg.Diagnostics.PersistErrors {
		errorLog = diagnostics.NewErrorLog(db.DB, log)
		// Closed after the engine stops so the last errors are flushed.
		defer func() {
			if closeErr := errorLog.Close(); closeErr != nil {
				log.Error("error closing error log", "error", closeErr)
			}
			if dropped := errorLog.Dropped(); dropped > 0 {
				log.Warn("error log dropped entries", "count", dropped)
			}
		}()
		errorSinks = append(errorSinks, errorLog)
		log.Info("network error persistence enabled")
	}

	influxClient, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		statsSinks = append(statsSinks, influxClient)
		errorSinks = append(errorSinks, influxClient)
	}

	// The adapter owns the MQTT connection lifecycle; the engine disconnects
	// it on shutdown.
	var transport sacn.Transport
	if cfg.Network.Enabled {
		client, mqttErr := newRelayClient(cfg, log)
		if mqttErr != nil {
			return mqttErr
		}
		transport = client
		log.Info("sACN relay configured",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("network ingestion disabled")
	}

	eng, err := engine.New(engine.Options{
		Transport:   transport,
		Logger:      log,
		Version:     version,
		Playback:    cfg.Playback,
		Diagnostics: cfg.Diagnostics,
		Network:     cfg.Network,
		StatsSinks:  statsSinks,
		ErrorSinks:  errorSinks,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gctx)
	})

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Engine:   eng,
			Metrics:  m,
			Version:  version,
		}
		if errorLog != nil {
			deps.ErrorLog = errorLog
		}
		srv, apiErr := api.New(deps)
		if apiErr != nil {
			eng.Close()
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(gctx); startErr != nil {
			eng.Close()
			return fmt.Errorf("starting API server: %w", startErr)
		}
		// Stop taking requests before the engine goes away.
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	} else {
		log.Info("API disabled")
	}

	if transport != nil {
		watcher := configwatch.New(configPath, cfg.Network.Multicast, eng, log)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return err
	}

	// Deferred Close() calls run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. Error log (if enabled)
	// 3. Database
	// 4. Logger
	log.Info("Gray Logic DMX stopped")
	return nil
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// newRelayClient builds the MQTT client the sACN adapter publishes and
// subscribes through. The broker announces the bridge offline if the
// process dies without disconnecting.
func newRelayClient(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	lwt, err := sacn.NewLWTPayload(sacn.DefaultBridgeID)
	if err != nil {
		return nil, fmt.Errorf("building LWT payload: %w", err)
	}

	client := mqtt.New(cfg.MQTT)
	client.SetLogger(log)
	client.SetWill(mqtt.Topics{}.Health(), lwt)
	return client, nil
}

// healthCheck verifies infrastructure connections are healthy. The relay is
// not checked: the adapter connects asynchronously and keeps retrying.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
