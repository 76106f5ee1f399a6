// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/api/middleware"
	"github.com/vermilinks/agrihub/api/resources"
	"github.com/vermilinks/agrihub/internal/hubservice"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.TokenMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, tokenConfig middleware.TokenConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewTokenMiddleware(tokenConfig),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Ingestion (device-facing)
	ingest := protected.PathPrefix("/ingest").Subrouter()
	ingest.HandleFunc("/readings", r.resources.Ingest.PostReading).Methods(http.MethodPost)
	ingest.HandleFunc("/heartbeat", r.resources.Ingest.PostHeartbeat).Methods(http.MethodPost)
	ingest.HandleFunc("/commands/{id}/ack", r.resources.Ingest.PostCommandAck).Methods(http.MethodPost)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/snapshot", r.resources.Devices.GetSnapshot).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/readings", r.resources.Devices.GetReadings).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/offline", r.resources.Devices.MarkOffline).Methods(http.MethodPost)

	// Actuators
	actuators := protected.PathPrefix("/actuators").Subrouter()
	actuators.HandleFunc("", r.resources.Actuators.ListActuators).Methods(http.MethodGet)
	actuators.HandleFunc("/logs", r.resources.Actuators.ListLogs).Methods(http.MethodGet)
	actuators.HandleFunc("/{id}", r.resources.Actuators.GetActuator).Methods(http.MethodGet)
	actuators.HandleFunc("/{id}/status", r.resources.Actuators.SetStatus).Methods(http.MethodPut)
	actuators.HandleFunc("/{id}/mode", r.resources.Actuators.SetMode).Methods(http.MethodPut)

	// Alerts
	alerts := protected.PathPrefix("/alerts").Subrouter()
	alerts.HandleFunc("", r.resources.Alerts.ListAlerts).Methods(http.MethodGet)
	alerts.HandleFunc("/{id}", r.resources.Alerts.GetAlert).Methods(http.MethodGet)
	alerts.HandleFunc("/{id}/resolve", r.resources.Alerts.ResolveAlert).Methods(http.MethodPost)
	alerts.HandleFunc("/{id}/read", r.resources.Alerts.MarkRead).Methods(http.MethodPost)

	// Commands
	commands := protected.PathPrefix("/commands").Subrouter()
	commands.HandleFunc("", r.resources.Commands.ListCommands).Methods(http.MethodGet)
	commands.HandleFunc("/{id}", r.resources.Commands.GetCommand).Methods(http.MethodGet)

	// Settings
	settings := protected.PathPrefix("/settings").Subrouter()
	settings.HandleFunc("/thresholds", r.resources.Settings.GetThresholds).Methods(http.MethodGet)
	settings.HandleFunc("/thresholds", r.resources.Settings.UpdateThresholds).Methods(http.MethodPut)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handlers.CompressHandler(handlers.CombinedLoggingHandler(logWriter{}, r.router)).ServeHTTP(w, req)
}

// logWriter routes gorilla's access log lines through the structured logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	nuts.L.Debugf("[API] %s", string(p))
	return len(p), nil
}
