// FilePath: api/resources/api.resource.commands.go
package resources

import (
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
	"github.com/vermilinks/agrihub/internal/models"
)

// CommandHandlers encapsulates the device command HTTP handlers
type CommandHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List commands
// @Description Get a filtered, paginated list of device commands
// @Tags commands
// @Produce json
// @Param deviceId query string false "Filter by device"
// @Param status query string false "Filter by status"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.DeviceCommand
// @Router /commands [get]
// @Security BearerAuth
func (h *CommandHandlers) ListCommands(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	var filters models.CommandFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	commands, err := h.hubservice.Commands().List(r.Context(), filters, offset, limit)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to list commands", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, commands)
}

// @Summary Get a command
// @Description Get one device command by id
// @Tags commands
// @Produce json
// @Param id path string true "Command ID"
// @Success 200 {object} models.DeviceCommand
// @Failure 404 {object} errors.APIError
// @Router /commands/{id} [get]
// @Security BearerAuth
func (h *CommandHandlers) GetCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	cmd, err := h.hubservice.Commands().Get(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, "failed to get command", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, cmd)
}
