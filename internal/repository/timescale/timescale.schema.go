// FilePath: internal/repository/timescale/timescale.schema.go
package timescale

import (
	"context"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
)

// schemaStatements creates the readings hypertable. The timestamp is part of
// the primary key because hypertable unique indexes must include the
// partition column.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		temperature DOUBLE PRECISION,
		humidity DOUBLE PRECISION,
		moisture DOUBLE PRECISION,
		ph DOUBLE PRECISION,
		ec DOUBLE PRECISION,
		nitrogen DOUBLE PRECISION,
		phosphorus DOUBLE PRECISION,
		potassium DOUBLE PRECISION,
		water_level DOUBLE PRECISION,
		float_sensor DOUBLE PRECISION,
		battery_level DOUBLE PRECISION,
		signal_strength DOUBLE PRECISION,
		timestamp TIMESTAMPTZ NOT NULL,
		is_offline_data BOOLEAN NOT NULL DEFAULT FALSE,
		source TEXT NOT NULL DEFAULT '',
		dedupe_signature TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (id, timestamp)
	)`,
	`SELECT create_hypertable('sensor_readings', 'timestamp',
		chunk_time_interval => INTERVAL '1 day',
		if_not_exists => TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_device_time
		ON sensor_readings (device_id, timestamp DESC)`,
}

// InitializeSchema applies the time-series DDL. Called once on startup.
func InitializeSchema(ctx context.Context, db database.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.GetDB().ExecContext(ctx, stmt); err != nil {
			return errors.NewDatabaseError("failed to initialize readings schema", err)
		}
	}
	nuts.L.Infof("[TimescaleSchema] Readings hypertable ready")
	return nil
}
