// FilePath: internal/models/api.models.filters.go
package models

// AlertFilters narrows alert list queries. Decoded from query strings with
// gorilla/schema.
type AlertFilters struct {
	DeviceID   string `schema:"deviceId"`
	Type       string `schema:"type"`
	Severity   string `schema:"severity"`
	Unresolved bool   `schema:"unresolved"`
}

// CommandFilters narrows device command list queries.
type CommandFilters struct {
	DeviceID string `schema:"deviceId"`
	Status   string `schema:"status"`
}
