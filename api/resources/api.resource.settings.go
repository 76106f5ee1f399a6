// FilePath: api/resources/api.resource.settings.go
package resources

import (
	"encoding/json"
	"net/http"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/models"
)

// SettingsHandlers encapsulates the threshold settings HTTP handlers
type SettingsHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Get thresholds
// @Description Get the active alert threshold configuration
// @Tags settings
// @Produce json
// @Success 200 {object} models.Thresholds
// @Router /settings/thresholds [get]
// @Security BearerAuth
func (h *SettingsHandlers) GetThresholds(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	thresholds, err := h.hubservice.Settings().GetThresholds(r.Context())
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get thresholds", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, thresholds)
}

// @Summary Update thresholds
// @Description Replace the active alert threshold configuration
// @Tags settings
// @Accept json
// @Produce json
// @Param thresholds body models.Thresholds true "Threshold configuration"
// @Success 200 {object} models.Thresholds
// @Failure 400 {object} errors.APIError
// @Router /settings/thresholds [put]
// @Security BearerAuth
func (h *SettingsHandlers) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var thresholds models.Thresholds
	if err := json.NewDecoder(r.Body).Decode(&thresholds); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.Settings().UpdateThresholds(r.Context(), thresholds); err != nil {
		respondWithError(w, asAPIError(err, "failed to update thresholds", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, thresholds)
}
