// FilePath: internal/repository/postgres/postgres.schema.go
package postgres

import (
	"context"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
)

// schemaStatements creates the application tables on a fresh database. Every
// statement is idempotent so the hub can run it on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'offline',
		last_heartbeat TIMESTAMPTZ NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		device_id TEXT NOT NULL DEFAULT '',
		threshold JSONB,
		snapshot JSONB,
		is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_open
		ON alerts (type, device_id, is_resolved)`,
	`CREATE TABLE IF NOT EXISTS actuators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		status BOOLEAN NOT NULL DEFAULT FALSE,
		mode TEXT NOT NULL DEFAULT 'auto',
		last_updated TIMESTAMPTZ NOT NULL,
		device_ack BOOLEAN NOT NULL DEFAULT TRUE,
		device_ack_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS actuator_logs (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL DEFAULT '',
		actuator_type TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		triggered_by TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_actuator_logs_time
		ON actuator_logs (timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS device_commands (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		command_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested_at TIMESTAMPTZ NOT NULL,
		dispatched_at TIMESTAMPTZ,
		response_payload JSONB,
		response_received_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_device_commands_pending
		ON device_commands (device_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_device_commands_stale
		ON device_commands (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS sensor_snapshots (
		device_id TEXT PRIMARY KEY,
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
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		thresholds JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// InitializeSchema applies the application DDL. Called once on startup
// before any repository touches the database.
func InitializeSchema(ctx context.Context, db database.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.GetDB().ExecContext(ctx, stmt); err != nil {
			return errors.NewDatabaseError("failed to initialize application schema", err)
		}
	}
	nuts.L.Infof("[PostgresSchema] Application schema ready (%d statements)", len(schemaStatements))
	return nil
}
