// FilePath: api/resources/api.resource.alerts.go
package resources

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/models"
)

// AlertHandlers encapsulates the alert-related HTTP handlers
type AlertHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List alerts
// @Description Get a filtered, paginated list of alerts
// @Tags alerts
// @Produce json
// @Param deviceId query string false "Filter by device"
// @Param type query string false "Filter by alert type"
// @Param severity query string false "Filter by severity"
// @Param unresolved query bool false "Only open alerts"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.Alert
// @Router /alerts [get]
// @Security BearerAuth
func (h *AlertHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	var filters models.AlertFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	alerts, err := h.hubservice.Alerts().List(r.Context(), filters, offset, limit)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list alerts", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, alerts)
}

// @Summary Get an alert
// @Description Get one alert by id
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id} [get]
// @Security BearerAuth
func (h *AlertHandlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	alert, err := h.hubservice.Alerts().Get(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get alert", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}

// @Summary Resolve an alert
// @Description Mark an open alert as resolved
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id}/resolve [post]
// @Security BearerAuth
func (h *AlertHandlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.hubservice.Alerts().Resolve(r.Context(), id, time.Now().UTC()); err != nil {
		respondWithError(w, asAPIError(err, "failed to resolve alert", requestID))
		return
	}

	alert, err := h.hubservice.Alerts().Get(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get alert", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}

// @Summary Mark an alert read
// @Description Flag an alert as seen by an operator
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id}/read [post]
// @Security BearerAuth
func (h *AlertHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.hubservice.Alerts().MarkRead(r.Context(), id); err != nil {
		respondWithError(w, asAPIError(err, "failed to mark alert read", requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
