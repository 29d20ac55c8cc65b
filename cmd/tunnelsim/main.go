package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/tunnelwatch/engine/internal/api"
	"github.com/tunnelwatch/engine/internal/config"
	"github.com/tunnelwatch/engine/internal/dispatcher"
	"github.com/tunnelwatch/engine/internal/geo"
	"github.com/tunnelwatch/engine/internal/handlers"
	"github.com/tunnelwatch/engine/internal/influx"
	"github.com/tunnelwatch/engine/internal/logging"
	"github.com/tunnelwatch/engine/internal/model"
	"github.com/tunnelwatch/engine/internal/monitor"
	intOtel "github.com/tunnelwatch/engine/internal/otel"
	"github.com/tunnelwatch/engine/internal/sim"
	"github.com/tunnelwatch/engine/internal/storage"
	"github.com/tunnelwatch/engine/internal/view"
	"github.com/tunnelwatch/engine/internal/worker"
	"github.com/tunnelwatch/engine/pkg/core"
)

const AppName = "tunnelsim"

// BuildDate can be set at build time via ldflags.
var BuildDate string = "unknown"

// global services
var (
	SessionStartTime = time.Now()

	LogFilePath string
	LogFile     *os.File

	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	OTelProvider *intOtel.Provider

	handlerService  handlers.Service
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	engine          *sim.Engine
	zoneSelector    *view.ZoneSelector
	storageBackend  storage.Backend
	influxManager   *influx.Manager
)

func main() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.SetupOptions{Level: "info"})
	Logger = SlogManager.Logger()

	if err := config.Load("."); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	// Direct subcommands run against the database and exit
	args := os.Args[1:]
	if len(args) > 0 {
		runCLI(args)
		return
	}

	if err := setupLogging(); err != nil {
		Logger.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}

	if err := setupServices(); err != nil {
		Logger.Error("Failed to set up services", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTickLoop(ctx)

	// Begin recording immediately; the run ends on shutdown
	runName := fmt.Sprintf("Run %s", SessionStartTime.Format("2006-01-02 15:04:05"))
	_, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   ":RUN:START:",
		Args:      []string{runName, config.GetString("tunnel.name")},
		Timestamp: SessionStartTime,
	})
	if err != nil {
		Logger.Error("Failed to start run", "error", err)
		os.Exit(1)
	}
	Logger.Info("Run started", "name", runName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	Logger.Info("Shutting down", "signal", sig.String())

	cancel()
	shutdown()
}

// setupLogging creates the log file and rebuilds the slog pipeline with the
// optional Graylog and OTel outputs.
func setupLogging() error {
	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", LogFilePath, err)
	}

	otelCfg := intOtel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  AppName,
		BatchTimeout: 5 * time.Second,
		LogWriter:    LogFile,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     config.GetBool("otel.insecure"),
	}
	OTelProvider, err = intOtel.New(otelCfg)
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil && OTelProvider.Enabled() {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	var graylogAddress string
	if config.GetBool("graylog.enabled") {
		graylogAddress = config.GetString("graylog.address")
	}

	SlogManager.Setup(logging.SetupOptions{
		File:           LogFile,
		Level:          config.GetString("logLevel"),
		Provider:       otelLogProvider,
		GraylogAddress: graylogAddress,
		Context:        runStateAttrs,
	})
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "buildDate", BuildDate)

	return nil
}

// runStateAttrs stamps the active run and engine state onto every log record.
func runStateAttrs() []slog.Attr {
	var attrs []slog.Attr
	if handlerService != nil {
		if run, active := handlerService.GetRunContext().Current(); active {
			attrs = append(attrs,
				slog.Uint64("runId", uint64(run.ID)),
				slog.String("runName", run.Name),
			)
		}
	}
	if engine != nil {
		attrs = append(attrs, slog.Bool("running", engine.Snapshot().Running))
	}
	return attrs
}

func setupServices() error {
	zlog := zerolog.New(LogFile).With().Timestamp().Logger()

	axis := geo.Axis{
		PortalLon:  config.GetFloat64("geo.portalLon"),
		PortalLat:  config.GetFloat64("geo.portalLat"),
		HeadingDeg: config.GetFloat64("geo.headingDeg"),
		LengthM:    config.GetFloat64("geo.lengthM"),
	}
	tunnel := model.Tunnel{
		Name:       config.GetString("tunnel.name"),
		LengthM:    float32(axis.LengthM),
		Lanes:      3,
		HeadingDeg: float32(axis.HeadingDeg),
	}

	storageCfg := config.Storage()
	var err error
	storageBackend, err = storage.NewBackend(storageCfg, storage.Dependencies{
		Logger: zlog,
		Axis:   axis,
		Tunnel: tunnel,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := storageBackend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	Logger.Info("Storage backend initialized", "backend", storageCfg.Backend)

	if config.GetBool("influx.enabled") {
		backupPath := logging.LogFilePath(config.GetString("logsDir"), AppName+".influx_backup", SessionStartTime) + ".gz"
		influxManager = influx.NewManager(zlog, backupPath)
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB disabled", "error", err)
			influxManager = nil
		}
	}

	engine = sim.NewEngine(engineConfig(), sim.NewTimeSeededRand())
	zoneSelector = view.NewZoneSelector()
	handlerService = handlers.NewService(Logger)

	workerManager = worker.NewManager(worker.Dependencies{
		Engine:         engine,
		Selector:       zoneSelector,
		HandlerService: handlerService,
		LogManager:     SlogManager,
		Metrics:        influxManager,
	}, storageBackend)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	if config.GetBool("monitor.enabled") {
		monitorService = monitor.NewService(monitor.Dependencies{
			DB:            hypertableDB(),
			LogManager:    SlogManager,
			RunContext:    handlerService.GetRunContext(),
			WorkerManager: workerManager,
			Engine:        engine,
			StatusDir:     config.GetString("logsDir"),
			Interval:      time.Duration(config.GetInt("monitor.intervalSec")) * time.Second,
		})
		if err := monitorService.Start(); err != nil {
			Logger.Warn("Failed to start status monitor", "error", err)
		}

		if hypertableDB() != nil && config.GetBool("db.timescale") {
			err := monitorService.ValidateHypertables(map[string][]string{
				"vehicle_states":      {"run_id", "vehicle_object_id"},
				"alerts":              {"run_id"},
				"environment_samples": {"run_id"},
			})
			if err != nil {
				Logger.Warn("Failed to validate hypertables", "error", err)
			}
		}
	}

	return nil
}

// uploadArchive pushes the finished run archive to the replay frontend when
// the active backend produced one.
func uploadArchive(run core.Run, elapsed float64) {
	p, ok := storageBackend.(storage.Exportable)
	if !ok || p.ExportedFilePath() == "" {
		return
	}

	client := api.New(config.GetString("api.url"), config.GetString("api.key"))
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("Replay frontend unreachable, skipping upload", "error", err)
		return
	}

	err := client.Upload(p.ExportedFilePath(), api.UploadMetadata{
		TunnelName:  run.TunnelName,
		RunName:     run.Name,
		RunDuration: elapsed,
	})
	if err != nil {
		Logger.Error("Failed to upload run archive", "error", err)
		return
	}
	Logger.Info("Uploaded run archive", "path", p.ExportedFilePath())
}

// hypertableDB returns the backend's DB connection when it has one.
func hypertableDB() *gorm.DB {
	type dbProvider interface{ DB() *gorm.DB }
	if p, ok := storageBackend.(dbProvider); ok {
		return p.DB()
	}
	return nil
}

func engineConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.TickIncrement = config.GetFloat64("sim.tickIncrement")
	cfg.SpawnIntervalMin = config.SpawnIntervalMin()
	cfg.SpawnIntervalMax = config.SpawnIntervalMax()
	cfg.AlertLogCapacity = config.GetInt("sim.alertLogCapacity")
	return cfg
}

// startTickLoop drives the simulation clock. Each tick carries the wall-clock
// delta since the previous one plus the generation observed at scheduling
// time, so a reset racing a queued tick wins.
func startTickLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(config.TickInterval())
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				delta := now.Sub(last)
				last = now

				_, err := eventDispatcher.Dispatch(dispatcher.Event{
					Command: ":TICK:",
					Args: []string{
						strconv.FormatFloat(float64(delta)/float64(time.Millisecond), 'f', 3, 64),
						strconv.FormatUint(engine.Generation(), 10),
					},
					Timestamp: now,
				})
				if err != nil {
					Logger.Error("Tick dispatch failed", "error", err)
				}
			}
		}
	}()
}

func shutdown() {
	run, hadRun := handlerService.GetRunContext().Current()
	elapsed := engine.Snapshot().Elapsed

	if _, err := eventDispatcher.Dispatch(dispatcher.Event{Command: ":RUN:END:", Timestamp: time.Now()}); err != nil {
		Logger.Error("Failed to end run", "error", err)
	}

	if hadRun && config.GetBool("api.enabled") {
		uploadArchive(run, elapsed)
	}

	if monitorService != nil {
		monitorService.Stop()
	}
	if err := storageBackend.Close(); err != nil {
		Logger.Error("Failed to close storage backend", "error", err)
	}
	if influxManager != nil && influxManager.Client != nil {
		influxManager.Client.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Error("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
