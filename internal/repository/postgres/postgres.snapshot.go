// FilePath: internal/repository/postgres/postgres.snapshot.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

type SnapshotRepo struct {
	PostgresBaseRepo
}

func NewSnapshotRepository(db database.DB) *SnapshotRepo {
	repo := &PostgresBaseRepo{db: db}
	return &SnapshotRepo{PostgresBaseRepo: *repo}
}

// Upsert replaces the device's current-state row in place. Only metrics
// present on the incoming snapshot overwrite stored values; COALESCE keeps
// the previous value for metrics the device did not report this time.
func (r *SnapshotRepo) Upsert(ctx context.Context, snap *models.Snapshot) error {
	query := `
		INSERT INTO sensor_snapshots (
			device_id, temperature, humidity, moisture, ph, ec,
			nitrogen, phosphorus, potassium, water_level, float_sensor,
			battery_level, signal_strength, timestamp, updated_at
		) VALUES (
			:device_id, :temperature, :humidity, :moisture, :ph, :ec,
			:nitrogen, :phosphorus, :potassium, :water_level, :float_sensor,
			:battery_level, :signal_strength, :timestamp, :updated_at
		)
		ON CONFLICT (device_id) DO UPDATE SET
			temperature     = COALESCE(EXCLUDED.temperature, sensor_snapshots.temperature),
			humidity        = COALESCE(EXCLUDED.humidity, sensor_snapshots.humidity),
			moisture        = COALESCE(EXCLUDED.moisture, sensor_snapshots.moisture),
			ph              = COALESCE(EXCLUDED.ph, sensor_snapshots.ph),
			ec              = COALESCE(EXCLUDED.ec, sensor_snapshots.ec),
			nitrogen        = COALESCE(EXCLUDED.nitrogen, sensor_snapshots.nitrogen),
			phosphorus      = COALESCE(EXCLUDED.phosphorus, sensor_snapshots.phosphorus),
			potassium       = COALESCE(EXCLUDED.potassium, sensor_snapshots.potassium),
			water_level     = COALESCE(EXCLUDED.water_level, sensor_snapshots.water_level),
			float_sensor    = COALESCE(EXCLUDED.float_sensor, sensor_snapshots.float_sensor),
			battery_level   = COALESCE(EXCLUDED.battery_level, sensor_snapshots.battery_level),
			signal_strength = COALESCE(EXCLUDED.signal_strength, sensor_snapshots.signal_strength),
			timestamp       = EXCLUDED.timestamp,
			updated_at      = EXCLUDED.updated_at`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, snap)
	if err != nil {
		return errors.NewDatabaseError("failed to upsert snapshot", err)
	}
	return nil
}

func (r *SnapshotRepo) Get(ctx context.Context, deviceID string) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	query := `SELECT * FROM sensor_snapshots WHERE device_id = $1`

	err := r.db.GetDB().GetContext(ctx, snap, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("snapshot not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get snapshot", err)
	}
	return snap, nil
}

// Latest returns the most recently updated snapshot across all devices.
// The automatic control policy reads environment state from here.
func (r *SnapshotRepo) Latest(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	query := `SELECT * FROM sensor_snapshots ORDER BY updated_at DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, snap, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no snapshots recorded", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest snapshot", err)
	}
	return snap, nil
}
