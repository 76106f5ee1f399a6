// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/hubservice"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Ingest    *IngestHandlers
	Devices   *DeviceHandlers
	Actuators *ActuatorHandlers
	Alerts    *AlertHandlers
	Commands  *CommandHandlers
	Settings  *SettingsHandlers
}

// queryDecoder maps query strings onto filter structs; shared because
// decoder instances cache struct metadata.
var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Ingest:    &IngestHandlers{hubservice: svc},
		Devices:   &DeviceHandlers{hubservice: svc},
		Actuators: &ActuatorHandlers{hubservice: svc},
		Alerts:    &AlertHandlers{hubservice: svc},
		Commands:  &CommandHandlers{hubservice: svc},
		Settings:  &SettingsHandlers{hubservice: svc},
	}
}

// Helper functions

func getPaginationParams(r *http.Request) (offset, limit int) {
	query := r.URL.Query()
	offset, _ = strconv.Atoi(query.Get("offset"))
	limit, _ = strconv.Atoi(query.Get("limit"))

	if limit <= 0 || limit > 100 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	return offset, limit
}

// asAPIError normalizes service errors so handlers keep their status codes
// instead of flattening everything to 500.
func asAPIError(err error, fallbackMsg, requestID string) *errors.APIError {
	if apiErr, ok := err.(*errors.APIError); ok {
		return apiErr.WithRequestID(requestID)
	}
	return errors.NewInternalError(fallbackMsg, err).WithRequestID(requestID)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
