// FilePath: internal/models/models.device.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a wrapper around map[string]interface{} for database storage
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
)

// Device is one field device (ESP32 node or bridge endpoint). Rows are
// created on first heartbeat/reading and never hard-deleted.
type Device struct {
	ID            string       `json:"id" db:"id"`
	DeviceID      string       `json:"device_id" db:"device_id"`
	Status        DeviceStatus `json:"status" db:"status"`
	LastHeartbeat time.Time    `json:"last_heartbeat" db:"last_heartbeat"`
	Metadata      JSON         `json:"metadata" db:"metadata"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}
