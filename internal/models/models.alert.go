// FilePath: internal/models/models.alert.go
package models

import "time"

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type AlertStatus string

const (
	AlertNew  AlertStatus = "new"
	AlertRead AlertStatus = "read"
)

// Alert is a threshold violation raised by the evaluator. The triggering
// reading is snapshotted onto the row for forensic context.
type Alert struct {
	ID         string        `json:"id" db:"id"`
	Type       string        `json:"type" db:"type"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	DeviceID   string        `json:"device_id" db:"device_id"`
	Threshold  JSON          `json:"threshold,omitempty" db:"threshold"`
	Snapshot   JSON          `json:"snapshot,omitempty" db:"snapshot"`
	IsResolved bool          `json:"is_resolved" db:"is_resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	Status     AlertStatus   `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}
