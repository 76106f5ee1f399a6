// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/api"
	"github.com/vermilinks/agrihub/api/middleware"
	"github.com/vermilinks/agrihub/internal/actuator"
	"github.com/vermilinks/agrihub/internal/cleanup"
	"github.com/vermilinks/agrihub/internal/config"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/dispatch"
	"github.com/vermilinks/agrihub/internal/evaluator"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/ingest"
	"github.com/vermilinks/agrihub/internal/liveness"
	"github.com/vermilinks/agrihub/internal/monitoring"
	"github.com/vermilinks/agrihub/internal/repository/postgres"
	"github.com/vermilinks/agrihub/internal/repository/timescale"
)

// Server wires the pipeline together and runs the HTTP surface plus the
// background loops (MQTT ingest, command retry, automatic control, guard
// sweep, retention pruning).
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	monitoring *monitoring.Service

	tracker  *liveness.Tracker
	guard    *ingest.Guard
	queue    *dispatch.Queue
	control  *actuator.Controller
	pruner   *cleanup.PruneService
	mqtt     *ingest.MQTTIngestor
	stopBg   context.CancelFunc
	bgCtx    context.Context
	shutdown chan struct{}
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	bgCtx, stopBg := context.WithCancel(context.Background())
	return &Server{
		config:   cfg,
		bgCtx:    bgCtx,
		stopBg:   stopBg,
		shutdown: make(chan struct{}),
	}
}

// Start wires dependencies, launches the background loops and serves HTTP
// until an interrupt arrives.
func (s *Server) Start() error {
	tsdb := initTimescaleDB(s.config.Database.TimescaleDB)
	appDB := initAppDB(s.config.Database.AppDB)

	schemaCtx, cancelSchema := context.WithTimeout(s.bgCtx, 30*time.Second)
	defer cancelSchema()
	if err := timescale.InitializeSchema(schemaCtx, tsdb); err != nil {
		return fmt.Errorf("failed to initialize readings schema: %w", err)
	}
	if err := postgres.InitializeSchema(schemaCtx, appDB); err != nil {
		return fmt.Errorf("failed to initialize application schema: %w", err)
	}

	publisher := s.initPublisher()

	// Repositories
	devices := postgres.NewDeviceRepository(appDB)
	alerts := postgres.NewAlertRepository(appDB)
	actuators := postgres.NewActuatorRepository(appDB)
	actuatorLogs := postgres.NewActuatorLogRepository(appDB)
	commands := postgres.NewCommandRepository(appDB)
	snapshots := postgres.NewSnapshotRepository(appDB)
	settings := postgres.NewSettingsRepository(appDB)
	readings := timescale.NewReadingRepository(tsdb)

	// Pipeline stages
	ctl := s.config.Control
	s.guard = ingest.NewGuard(ctl.DedupeTTL, ctl.ThrottleWindow)
	s.tracker = liveness.NewTracker(devices, alerts, publisher, ctl.OfflineTimeout, ctl.DisableTimers)

	var direct *dispatch.DirectCaller
	if ctl.DeviceDirectURL != "" {
		direct = dispatch.NewDirectCaller(ctl.DeviceDirectURL, ctl.DeviceDirectTimeout)
	}
	s.queue = dispatch.NewQueue(commands, publisher, s.tracker, direct, ctl.CommandRetryEvery, ctl.CommandStaleAfter)

	eval := evaluator.New(alerts, settings, publisher, ctl.AlertDebounce, ctl.StaleReadingMaxAge)
	s.control = actuator.NewController(
		actuators, actuatorLogs, snapshots, readings,
		publisher, s.queue, ctl.AutoControlInterval, ctl.FloatInterlock,
	)

	s.hubservice = hubservice.New(hubservice.Deps{
		Guard:     s.guard,
		Tracker:   s.tracker,
		Evaluator: eval,
		Control:   s.control,
		Queue:     s.queue,
		Publisher: publisher,
		Devices:   devices,
		Readings:  readings,
		Snapshots: snapshots,
		Alerts:    alerts,
		Actuators: actuators,
		Logs:      actuatorLogs,
		Commands:  commands,
		Settings:  settings,
	})

	seedCtx, cancel := context.WithTimeout(s.bgCtx, 10*time.Second)
	if err := s.control.Seed(seedCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to seed actuators: %w", err)
	}
	cancel()

	s.monitoring = monitoring.NewService(monitoring.Config{
		PrometheusEndpoint: s.config.Monitoring.PrometheusEndpoint,
		LokiEndpoint:       s.config.Monitoring.LokiEndpoint,
	})

	s.pruner = cleanup.New(readings, alerts, commands, actuatorLogs, ctl.RetentionMaxAge, ctl.PruneInterval)
	s.setupPruneHandlers()

	if s.config.MQTT.BrokerURL != "" {
		s.mqtt = ingest.NewMQTTIngestor(s.config.MQTT, s.hubservice, s.queue)
		if err := s.mqtt.Start(); err != nil {
			return fmt.Errorf("failed to start mqtt ingest: %w", err)
		}
	} else {
		nuts.L.Warnf("[Server] No MQTT broker configured; ingesting over HTTP only")
	}

	go s.queue.Run(s.bgCtx)
	go s.control.Run(s.bgCtx)
	go s.pruner.Run(s.bgCtx)
	go s.guard.Run(s.bgCtx, time.Minute)

	router := api.NewRouter(s.hubservice, middleware.TokenConfig{Token: s.config.Server.APIToken})
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	s.stopBg()
	s.tracker.Stop()
	if s.mqtt != nil {
		s.mqtt.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// initPublisher builds the Redis event fan-out, falling back to a no-op
// publisher when Redis is not configured.
func (s *Server) initPublisher() events.Publisher {
	if s.config.Redis.Host == "" {
		nuts.L.Warnf("[Server] No Redis configured; event broadcasting disabled")
		return events.NopPublisher{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.config.Redis.Host, s.config.Redis.Port),
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping Redis: %v", err)
	}

	nuts.L.Infof("[Server] Connected to Redis at %s:%d", s.config.Redis.Host, s.config.Redis.Port)
	return events.NewRedisPublisher(client)
}

func (s *Server) setupPruneHandlers() {
	s.pruner.OnPrune(func(result *cleanup.PruneResult) {
		s.monitoring.RecordEvent("retention_prune", map[string]string{
			"readings":      fmt.Sprintf("%d", result.Readings),
			"alerts":        fmt.Sprintf("%d", result.Alerts),
			"commands":      fmt.Sprintf("%d", result.Commands),
			"actuator_logs": fmt.Sprintf("%d", result.ActuatorLogs),
		})
	})
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to AppDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping AppDB: %v", err)
	}
	return wrappedDB
}
