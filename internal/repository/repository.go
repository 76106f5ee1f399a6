// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DeviceRepository defines the interface for device row operations. Devices
// are keyed by their stable hardware id and are never hard-deleted.
type DeviceRepository interface {
	database.Repository
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	GetOrCreate(ctx context.Context, deviceID string, metadata models.JSON) (*models.Device, error)
	MarkOnline(ctx context.Context, deviceID string, heartbeat time.Time, metadata models.JSON) (*models.Device, error)
	MarkOffline(ctx context.Context, deviceID string, at time.Time) (*models.Device, error)
	List(ctx context.Context, offset, limit int) ([]*models.Device, error)
}

// ReadingRepository defines the interface for the reading time-series.
type ReadingRepository interface {
	database.Repository
	Insert(ctx context.Context, reading *models.Reading) error
	Latest(ctx context.Context) (*models.Reading, error)
	LatestByDevice(ctx context.Context, deviceID string) (*models.Reading, error)
	ListByDevice(ctx context.Context, deviceID string, from, to time.Time, offset, limit int) ([]*models.Reading, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SnapshotRepository defines the interface for per-device latest-reading rows.
type SnapshotRepository interface {
	database.Repository
	Upsert(ctx context.Context, snapshot *models.Snapshot) error
	Get(ctx context.Context, deviceID string) (*models.Snapshot, error)
	Latest(ctx context.Context) (*models.Snapshot, error)
}

// AlertRepository defines the interface for alert rows.
type AlertRepository interface {
	database.Repository
	Create(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id string) (*models.Alert, error)
	LatestUnresolved(ctx context.Context, alertType, deviceID string) (*models.Alert, error)
	Resolve(ctx context.Context, id string, at time.Time) error
	ResolveByDevice(ctx context.Context, deviceID string, at time.Time) (int64, error)
	MarkRead(ctx context.Context, id string) error
	List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error)
	DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error)
}

// ActuatorRepository defines the interface for the fixed actuator set.
type ActuatorRepository interface {
	database.Repository
	Seed(ctx context.Context, defaults []models.Actuator) error
	List(ctx context.Context) ([]*models.Actuator, error)
	Get(ctx context.Context, id string) (*models.Actuator, error)
	GetByName(ctx context.Context, name string) (*models.Actuator, error)
	UpdateStatus(ctx context.Context, id string, status bool, at time.Time) error
	UpdateMode(ctx context.Context, id string, mode models.ActuatorMode, at time.Time) error
	SetDeviceAck(ctx context.Context, id string, ack bool, message string) error
}

// ActuatorLogRepository defines the interface for the actuator audit trail.
type ActuatorLogRepository interface {
	database.Repository
	Create(ctx context.Context, entry *models.ActuatorLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActuatorLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// CommandRepository defines the interface for device command rows. Status
// guards live in the queries so concurrent retry passes and acks cannot
// resurrect a terminal command.
type CommandRepository interface {
	database.Repository
	Create(ctx context.Context, command *models.DeviceCommand) error
	Get(ctx context.Context, id string) (*models.DeviceCommand, error)
	ListPendingByDevice(ctx context.Context, deviceID string, limit int) ([]*models.DeviceCommand, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]*models.DeviceCommand, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) (bool, error)
	MarkPending(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string, success bool, response models.JSON, at time.Time) (*models.DeviceCommand, error)
	List(ctx context.Context, filters models.CommandFilters, offset, limit int) ([]*models.DeviceCommand, error)
	DeleteTerminalBefore(ctx context.Context, before time.Time) (int64, error)
}

// SettingsRepository defines the interface for the single settings row.
type SettingsRepository interface {
	database.Repository
	GetThresholds(ctx context.Context) (models.Thresholds, error)
	UpdateThresholds(ctx context.Context, thresholds models.Thresholds) error
}
