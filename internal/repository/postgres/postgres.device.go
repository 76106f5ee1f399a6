// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) *DeviceRepo {
	repo := &PostgresBaseRepo{db: db}
	return &DeviceRepo{PostgresBaseRepo: *repo}
}

func (r *DeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE device_id = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

// GetOrCreate returns the device row for deviceID, creating it online with
// the given metadata on first contact.
func (r *DeviceRepo) GetOrCreate(ctx context.Context, deviceID string, metadata models.JSON) (*models.Device, error) {
	if metadata == nil {
		metadata = models.JSON{}
	}
	now := time.Now().UTC()
	device := &models.Device{
		ID:            nuts.NID("dev", 12),
		DeviceID:      deviceID,
		Status:        models.DeviceOnline,
		LastHeartbeat: now,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO devices (
			id, device_id, status, last_heartbeat, metadata, created_at, updated_at
		) VALUES (
			:id, :device_id, :status, :last_heartbeat, :metadata, :created_at, :updated_at
		)
		ON CONFLICT (device_id) DO NOTHING`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, device); err != nil {
		return nil, errors.NewDatabaseError("failed to create device", err)
	}

	return r.GetByDeviceID(ctx, deviceID)
}

// MarkOnline upserts the device row, refreshes the heartbeat and merges
// metadata. The returned row reflects the persisted state.
func (r *DeviceRepo) MarkOnline(ctx context.Context, deviceID string, heartbeat time.Time, metadata models.JSON) (*models.Device, error) {
	device, err := r.GetOrCreate(ctx, deviceID, metadata)
	if err != nil {
		return nil, err
	}

	merged := device.Metadata
	if merged == nil {
		merged = models.JSON{}
	}
	for k, v := range metadata {
		merged[k] = v
	}

	query := `
		UPDATE devices SET
			status = $1,
			last_heartbeat = $2,
			metadata = $3,
			updated_at = $2
		WHERE device_id = $4`

	if _, err := r.db.GetDB().ExecContext(ctx, query, models.DeviceOnline, heartbeat, merged, deviceID); err != nil {
		return nil, errors.NewDatabaseError("failed to mark device online", err)
	}

	device.Status = models.DeviceOnline
	device.LastHeartbeat = heartbeat
	device.Metadata = merged
	device.UpdatedAt = heartbeat
	return device, nil
}

// MarkOffline flips the device to offline. Returns ErrNotFound for unknown
// devices; offline transitions never create rows.
func (r *DeviceRepo) MarkOffline(ctx context.Context, deviceID string, at time.Time) (*models.Device, error) {
	device, err := r.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE devices SET
			status = $1,
			last_heartbeat = $2,
			updated_at = $2
		WHERE device_id = $3`

	if _, err := r.db.GetDB().ExecContext(ctx, query, models.DeviceOffline, at, deviceID); err != nil {
		return nil, errors.NewDatabaseError("failed to mark device offline", err)
	}

	device.Status = models.DeviceOffline
	device.LastHeartbeat = at
	device.UpdatedAt = at
	return device, nil
}

func (r *DeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}
