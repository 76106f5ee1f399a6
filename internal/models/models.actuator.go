// FilePath: internal/models/models.actuator.go
package models

import "time"

type ActuatorType string

const (
	ActuatorPump     ActuatorType = "pump"
	ActuatorSolenoid ActuatorType = "solenoid"
	ActuatorFan      ActuatorType = "fan"
)

type ActuatorMode string

const (
	ModeManual ActuatorMode = "manual"
	ModeAuto   ActuatorMode = "auto"
)

// Actuator is one of the fixed set of controllable outputs (pump, valve,
// fan). Exactly one row exists per canonical name; rows are seeded once and
// only ever updated.
type Actuator struct {
	ID               string       `json:"id" db:"id"`
	Name             string       `json:"name" db:"name"`
	Type             ActuatorType `json:"type" db:"type"`
	Status           bool         `json:"status" db:"status"`
	Mode             ActuatorMode `json:"mode" db:"mode"`
	LastUpdated      time.Time    `json:"last_updated" db:"last_updated"`
	DeviceAck        bool         `json:"device_ack" db:"device_ack"`
	DeviceAckMessage string       `json:"device_ack_message,omitempty" db:"device_ack_message"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// Sanitized returns the wire form broadcast on actuator:update events.
func (a *Actuator) Sanitized() JSON {
	return JSON{
		"id":          a.ID,
		"name":        a.Name,
		"type":        string(a.Type),
		"status":      a.Status,
		"mode":        string(a.Mode),
		"lastUpdated": a.LastUpdated.UTC().Format(time.RFC3339),
		"deviceAck":   a.DeviceAck,
	}
}

// ActuatorLog is the audit trail for every status/mode change.
type ActuatorLog struct {
	ID           string       `json:"id" db:"id"`
	DeviceID     string       `json:"device_id" db:"device_id"`
	ActuatorType ActuatorType `json:"actuator_type" db:"actuator_type"`
	Action       string       `json:"action" db:"action"`
	Reason       string       `json:"reason,omitempty" db:"reason"`
	TriggeredBy  string       `json:"triggered_by" db:"triggered_by"`
	UserID       string       `json:"user_id,omitempty" db:"user_id"`
	Timestamp    time.Time    `json:"timestamp" db:"timestamp"`
}
