// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/hubservice"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List devices
// @Description Get a paginated list of known devices
// @Tags devices
// @Produce json
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.Device
// @Router /devices [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	devices, err := h.hubservice.Devices().List(r.Context(), offset, limit)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list devices", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}

// @Summary Get a device
// @Description Get a device by its hardware id
// @Tags devices
// @Produce json
// @Param id path string true "Device hardware ID"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	device, err := h.hubservice.Devices().GetByDeviceID(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get device", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Get a device's current snapshot
// @Description Get the latest reported metrics for a device
// @Tags devices
// @Produce json
// @Param id path string true "Device hardware ID"
// @Success 200 {object} models.Snapshot
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/snapshot [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	snap, err := h.hubservice.Snapshots().Get(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get snapshot", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

// @Summary Get a device's readings
// @Description Get readings for a device within a time range
// @Tags devices
// @Produce json
// @Param id path string true "Device hardware ID"
// @Param from query string false "Range start (RFC3339), default 24h ago"
// @Param to query string false "Range end (RFC3339), default now"
// @Success 200 {array} models.Reading
// @Router /devices/{id}/readings [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetReadings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	now := time.Now().UTC()
	from, to := now.Add(-24*time.Hour), now
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			to = parsed
		}
	}

	readings, err := h.hubservice.Readings().ListByDevice(r.Context(), id, from, to, offset, limit)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list readings", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary Mark a device offline
// @Description Force a device offline, closing its open alerts
// @Tags devices
// @Produce json
// @Param id path string true "Device hardware ID"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/offline [post]
// @Security BearerAuth
func (h *DeviceHandlers) MarkOffline(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	device, err := h.hubservice.Tracker().MarkOffline(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to mark device offline", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}
