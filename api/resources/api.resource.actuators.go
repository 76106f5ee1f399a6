// FilePath: api/resources/api.resource.actuators.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/actuator"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/models"
)

// ActuatorHandlers encapsulates the actuator-related HTTP handlers
type ActuatorHandlers struct {
	hubservice *hubservice.HubService
}

type setStatusRequest struct {
	Status   bool   `json:"status"`
	DeviceID string `json:"deviceId,omitempty"`
	Reason   string `json:"reason,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type setModeRequest struct {
	Mode   string `json:"mode"`
	Reason string `json:"reason,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// @Summary List actuators
// @Description Get all actuators with their current state
// @Tags actuators
// @Produce json
// @Success 200 {array} models.Actuator
// @Router /actuators [get]
// @Security BearerAuth
func (h *ActuatorHandlers) ListActuators(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	actuators, err := h.hubservice.Actuators().List(r.Context())
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list actuators", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, actuators)
}

// @Summary Get an actuator
// @Description Get one actuator by id
// @Tags actuators
// @Produce json
// @Param id path string true "Actuator ID"
// @Success 200 {object} models.Actuator
// @Failure 404 {object} errors.APIError
// @Router /actuators/{id} [get]
// @Security BearerAuth
func (h *ActuatorHandlers) GetActuator(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	act, err := h.hubservice.Actuators().Get(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get actuator", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, act)
}

// @Summary Set actuator status
// @Description Manually switch an actuator on or off
// @Tags actuators
// @Accept json
// @Produce json
// @Param id path string true "Actuator ID"
// @Param status body setStatusRequest true "Desired status"
// @Success 200 {object} actuator.ChangeResult
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /actuators/{id}/status [put]
// @Security BearerAuth
func (h *ActuatorHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.Controller().SetStatus(r.Context(), id, req.Status, actuator.Trigger{
		By:       actuator.TriggerManual,
		UserID:   req.UserID,
		DeviceID: req.DeviceID,
		Reason:   req.Reason,
	})
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to set actuator status", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Set actuator mode
// @Description Switch an actuator between manual and automatic control
// @Tags actuators
// @Accept json
// @Produce json
// @Param id path string true "Actuator ID"
// @Param mode body setModeRequest true "Desired mode"
// @Success 200 {object} actuator.ChangeResult
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /actuators/{id}/mode [put]
// @Security BearerAuth
func (h *ActuatorHandlers) SetMode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.Controller().SetMode(r.Context(), id, models.ActuatorMode(req.Mode), actuator.Trigger{
		By:     actuator.TriggerManual,
		UserID: req.UserID,
		Reason: req.Reason,
	})
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to set actuator mode", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary List actuator logs
// @Description Get the most recent actuator audit log entries
// @Tags actuators
// @Produce json
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.ActuatorLog
// @Router /actuators/logs [get]
// @Security BearerAuth
func (h *ActuatorHandlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	_, limit := getPaginationParams(r)

	logs, err := h.hubservice.Logs().ListRecent(r.Context(), limit)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list actuator logs", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}
