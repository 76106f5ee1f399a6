// FilePath: api/resources/api.resource.ingest.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/ingest"
	"github.com/vermilinks/agrihub/internal/models"
)

// IngestHandlers encapsulates the device-facing ingestion HTTP handlers,
// for gateways that POST instead of publishing over MQTT.
type IngestHandlers struct {
	hubservice *hubservice.HubService
}

type heartbeatRequest struct {
	DeviceID string      `json:"deviceId"`
	Metadata models.JSON `json:"metadata,omitempty"`
}

type ackRequest struct {
	Success  bool        `json:"success"`
	Status   string      `json:"status,omitempty"` // completed|ok|failed|error; overrides success when set
	Response models.JSON `json:"response,omitempty"`
}

// succeeded folds the two ack forms firmware sends: a boolean flag or a
// status word.
func (a *ackRequest) succeeded() (bool, error) {
	switch a.Status {
	case "":
		return a.Success, nil
	case "completed", "ok":
		return true, nil
	case "failed", "error":
		return false, nil
	default:
		return false, errors.NewValidationError("status must be completed, ok, failed or error", nil)
	}
}

type ingestResponse struct {
	Accepted bool   `json:"accepted"`
	DeviceID string `json:"deviceId"`
}

// @Summary Ingest a sensor reading
// @Description Accept one telemetry payload from a device over HTTP
// @Tags ingest
// @Accept json
// @Produce json
// @Param reading body ingest.TelemetryPayload true "Telemetry payload"
// @Success 202 {object} ingestResponse
// @Failure 400 {object} errors.APIError
// @Router /ingest/readings [post]
// @Security BearerAuth
func (h *IngestHandlers) PostReading(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var payload ingest.TelemetryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if payload.DeviceID == "" {
		respondWithError(w, errors.NewValidationError("deviceId is required", nil).WithRequestID(requestID))
		return
	}

	raw, _ := json.Marshal(payload)
	reading := payload.ToReading(payload.DeviceID, "http")
	accepted, err := h.hubservice.HandleReading(r.Context(), "http/"+payload.DeviceID, payload.DeviceID, raw, reading)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to ingest reading", requestID))
		return
	}

	respondWithJSON(w, http.StatusAccepted, ingestResponse{Accepted: accepted, DeviceID: payload.DeviceID})
}

// @Summary Record a device heartbeat
// @Description Mark a device online without submitting telemetry
// @Tags ingest
// @Accept json
// @Produce json
// @Param heartbeat body heartbeatRequest true "Heartbeat"
// @Success 200 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Router /ingest/heartbeat [post]
// @Security BearerAuth
func (h *IngestHandlers) PostHeartbeat(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.hubservice.HandleHeartbeat(r.Context(), req.DeviceID, req.Metadata)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to record heartbeat", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Acknowledge a command
// @Description Record a device's acknowledgement of a dispatched command
// @Tags ingest
// @Accept json
// @Produce json
// @Param id path string true "Command ID"
// @Param ack body ackRequest true "Acknowledgement"
// @Success 200 {object} models.DeviceCommand
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /ingest/commands/{id}/ack [post]
// @Security BearerAuth
func (h *IngestHandlers) PostCommandAck(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	success, err := req.succeeded()
	if err != nil {
		respondWithError(w, asAPIError(err, "invalid acknowledgement", requestID))
		return
	}

	cmd, err := h.hubservice.HandleCommandAck(r.Context(), id, success, req.Response)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to acknowledge command", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, cmd)
}
