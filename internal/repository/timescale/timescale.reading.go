// FilePath: internal/repository/timescale/timescale.reading.go
package timescale

import (
	"context"
	"database/sql"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

// ReadingRepo persists sensor readings into the sensor_readings hypertable.
// Rows are append-only; retention pruning is the only delete path.
type ReadingRepo struct {
	TimeScaleBaseRepo
}

func NewReadingRepository(db database.DB) *ReadingRepo {
	repo := &TimeScaleBaseRepo{db: db}
	return &ReadingRepo{TimeScaleBaseRepo: *repo}
}

func (r *ReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	if reading.ID == "" {
		reading.ID = nuts.NID("rdg", 12)
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	reading.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO sensor_readings (
			id, device_id, temperature, humidity, moisture, ph, ec,
			nitrogen, phosphorus, potassium, water_level, float_sensor,
			battery_level, signal_strength, timestamp, is_offline_data,
			source, dedupe_signature, created_at
		) VALUES (
			:id, :device_id, :temperature, :humidity, :moisture, :ph, :ec,
			:nitrogen, :phosphorus, :potassium, :water_level, :float_sensor,
			:battery_level, :signal_strength, :timestamp, :is_offline_data,
			:source, :dedupe_signature, :created_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, reading)
	if err != nil {
		return errors.NewDatabaseError("failed to insert reading", err)
	}
	return nil
}

// Latest returns the most recent reading across all devices.
func (r *ReadingRepo) Latest(ctx context.Context) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `SELECT * FROM sensor_readings ORDER BY timestamp DESC LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings recorded", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest reading", err)
	}
	return reading, nil
}

func (r *ReadingRepo) LatestByDevice(ctx context.Context, deviceID string) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `
		SELECT * FROM sensor_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest device reading", err)
	}
	return reading, nil
}

func (r *ReadingRepo) ListByDevice(ctx context.Context, deviceID string, from, to time.Time, offset, limit int) ([]*models.Reading, error) {
	readings := []*models.Reading{}
	query := `
		SELECT * FROM sensor_readings
		WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, deviceID, from, to, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list readings", err)
	}
	return readings, nil
}

func (r *ReadingRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sensor_readings WHERE timestamp < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	nuts.L.Infof("[ReadingRepo] Deleted %d readings older than %v", rows, before)
	return rows, nil
}
