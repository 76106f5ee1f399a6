// FilePath: internal/repository/postgres/postgres.actuatorlog.go
package postgres

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

type ActuatorLogRepo struct {
	PostgresBaseRepo
}

func NewActuatorLogRepository(db database.DB) *ActuatorLogRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ActuatorLogRepo{PostgresBaseRepo: *repo}
}

func (r *ActuatorLogRepo) Create(ctx context.Context, log *models.ActuatorLog) error {
	if log.ID == "" {
		log.ID = nuts.NID("alg", 12)
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO actuator_logs (
			id, device_id, actuator_type, action, reason,
			triggered_by, user_id, timestamp
		) VALUES (
			:id, :device_id, :actuator_type, :action, :reason,
			:triggered_by, :user_id, :timestamp
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, log)
	if err != nil {
		return errors.NewDatabaseError("failed to create actuator log", err)
	}
	return nil
}

func (r *ActuatorLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.ActuatorLog, error) {
	logs := []*models.ActuatorLog{}
	query := `SELECT * FROM actuator_logs ORDER BY timestamp DESC LIMIT $1`

	err := r.db.GetDB().SelectContext(ctx, &logs, query, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list actuator logs", err)
	}
	return logs, nil
}

func (r *ActuatorLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM actuator_logs WHERE timestamp < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete actuator logs", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	nuts.L.Infof("[ActuatorLogRepo] Deleted %d actuator logs older than %v", rows, before)
	return rows, nil
}
