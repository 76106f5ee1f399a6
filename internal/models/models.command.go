// FilePath: internal/models/models.command.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type CommandStatus string

const (
	CommandPending    CommandStatus = "pending"
	CommandDispatched CommandStatus = "dispatched"
	CommandCompleted  CommandStatus = "completed"
	CommandFailed     CommandStatus = "failed"
)

// CommandPayload is the structured body of an actuator command. Explicit
// fields instead of an opaque blob so the dispatch/ack path is type-checked.
type CommandPayload struct {
	Actuator      string `json:"actuator"`
	Desired       string `json:"desired"` // "on" | "off"
	ActuatorKey   string `json:"actuator_key,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Context       JSON   `json:"context,omitempty"`
}

// Value implements the driver.Valuer interface
func (p CommandPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *CommandPayload) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// DeviceCommand is one unit of work for a device. Transitions are monotonic
// forward except dispatched -> pending on staleness, which makes the command
// eligible for redispatch under the same id.
type DeviceCommand struct {
	ID                 string         `json:"id" db:"id"`
	DeviceID           string         `json:"device_id" db:"device_id"`
	CommandType        string         `json:"command_type" db:"command_type"`
	Payload            CommandPayload `json:"payload" db:"payload"`
	Status             CommandStatus  `json:"status" db:"status"`
	RequestedAt        time.Time      `json:"requested_at" db:"requested_at"`
	DispatchedAt       *time.Time     `json:"dispatched_at,omitempty" db:"dispatched_at"`
	ResponsePayload    JSON           `json:"response_payload,omitempty" db:"response_payload"`
	ResponseReceivedAt *time.Time     `json:"response_received_at,omitempty" db:"response_received_at"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the command has reached an end state.
func (c *DeviceCommand) Terminal() bool {
	return c.Status == CommandCompleted || c.Status == CommandFailed
}

// CommandMessage is the wire form pushed over a device's live channel.
type CommandMessage struct {
	CommandID   string         `json:"commandId"`
	Type        string         `json:"type"`
	RequestedAt time.Time      `json:"requestedAt"`
	Payload     CommandPayload `json:"payload"`
}
