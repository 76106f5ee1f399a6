// FilePath: internal/repository/postgres/postgres.actuator.go
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

type ActuatorRepo struct {
	PostgresBaseRepo
}

func NewActuatorRepository(db database.DB) *ActuatorRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ActuatorRepo{PostgresBaseRepo: *repo}
}

// Seed inserts the canonical actuator set, skipping names that already
// exist. Rows are only ever updated after this, never duplicated.
func (r *ActuatorRepo) Seed(ctx context.Context, defaults []models.Actuator) error {
	query := `
		INSERT INTO actuators (
			id, name, type, status, mode, last_updated,
			device_ack, device_ack_message, created_at, updated_at
		) VALUES (
			:id, :name, :type, :status, :mode, :last_updated,
			:device_ack, :device_ack_message, :created_at, :updated_at
		)
		ON CONFLICT (name) DO NOTHING`

	now := time.Now().UTC()
	for _, def := range defaults {
		actuator := def
		if actuator.ID == "" {
			actuator.ID = nuts.NID("act", 12)
		}
		if actuator.Mode == "" {
			actuator.Mode = models.ModeAuto
		}
		actuator.LastUpdated = now
		actuator.DeviceAck = true
		actuator.CreatedAt = now
		actuator.UpdatedAt = now

		if _, err := r.db.GetDB().NamedExecContext(ctx, query, actuator); err != nil {
			return errors.NewDatabaseError("failed to seed actuator "+actuator.Name, err)
		}
	}
	return nil
}

func (r *ActuatorRepo) List(ctx context.Context) ([]*models.Actuator, error) {
	actuators := []*models.Actuator{}
	query := `SELECT * FROM actuators ORDER BY created_at ASC`

	err := r.db.GetDB().SelectContext(ctx, &actuators, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list actuators", err)
	}
	return actuators, nil
}

func (r *ActuatorRepo) Get(ctx context.Context, id string) (*models.Actuator, error) {
	actuator := &models.Actuator{}
	query := `SELECT * FROM actuators WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, actuator, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("actuator not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get actuator", err)
	}
	return actuator, nil
}

func (r *ActuatorRepo) GetByName(ctx context.Context, name string) (*models.Actuator, error) {
	actuator := &models.Actuator{}
	query := `SELECT * FROM actuators WHERE lower(name) = lower($1)`

	err := r.db.GetDB().GetContext(ctx, actuator, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("actuator not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get actuator", err)
	}
	return actuator, nil
}

// UpdateStatus commits the logical state change optimistically: the ack flag
// goes true and any previous failure message is cleared. A later dispatch
// failure flips it back via SetDeviceAck.
func (r *ActuatorRepo) UpdateStatus(ctx context.Context, id string, status bool, at time.Time) error {
	query := `
		UPDATE actuators SET
			status = $1,
			last_updated = $2,
			device_ack = true,
			device_ack_message = '',
			updated_at = $2
		WHERE id = $3`

	result, err := r.db.GetDB().ExecContext(ctx, query, status, at, id)
	if err != nil {
		return errors.NewDatabaseError("failed to update actuator status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	return nil
}

func (r *ActuatorRepo) UpdateMode(ctx context.Context, id string, mode models.ActuatorMode, at time.Time) error {
	query := `
		UPDATE actuators SET
			mode = $1,
			last_updated = $2,
			updated_at = $2
		WHERE id = $3`

	result, err := r.db.GetDB().ExecContext(ctx, query, mode, at, id)
	if err != nil {
		return errors.NewDatabaseError("failed to update actuator mode", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	return nil
}

func (r *ActuatorRepo) SetDeviceAck(ctx context.Context, id string, ack bool, message string) error {
	query := `
		UPDATE actuators SET
			device_ack = $1,
			device_ack_message = $2,
			updated_at = $3
		WHERE id = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query, ack, message, time.Now().UTC(), id)
	if err != nil {
		return errors.NewDatabaseError("failed to set device ack", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	return nil
}
