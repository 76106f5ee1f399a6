// FilePath: internal/repository/postgres/postgres.command.go
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

type CommandRepo struct {
	PostgresBaseRepo
}

func NewCommandRepository(db database.DB) *CommandRepo {
	repo := &PostgresBaseRepo{db: db}
	return &CommandRepo{PostgresBaseRepo: *repo}
}

func (r *CommandRepo) Create(ctx context.Context, cmd *models.DeviceCommand) error {
	now := time.Now().UTC()
	if cmd.ID == "" {
		cmd.ID = nuts.NID("cmd", 12)
	}
	if cmd.Status == "" {
		cmd.Status = models.CommandPending
	}
	if cmd.RequestedAt.IsZero() {
		cmd.RequestedAt = now
	}
	cmd.CreatedAt = now
	cmd.UpdatedAt = now

	query := `
		INSERT INTO device_commands (
			id, device_id, command_type, payload, status, requested_at,
			dispatched_at, response_payload, response_received_at, created_at, updated_at
		) VALUES (
			:id, :device_id, :command_type, :payload, :status, :requested_at,
			:dispatched_at, :response_payload, :response_received_at, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, cmd)
	if err != nil {
		return errors.NewDatabaseError("failed to create device command", err)
	}
	return nil
}

func (r *CommandRepo) Get(ctx context.Context, id string) (*models.DeviceCommand, error) {
	cmd := &models.DeviceCommand{}
	query := `SELECT * FROM device_commands WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, cmd, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("command not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get command", err)
	}
	return cmd, nil
}

func (r *CommandRepo) ListPendingByDevice(ctx context.Context, deviceID string, limit int) ([]*models.DeviceCommand, error) {
	cmds := []*models.DeviceCommand{}
	query := `
		SELECT * FROM device_commands
		WHERE device_id = $1 AND status = $2
		ORDER BY requested_at ASC
		LIMIT $3`

	err := r.db.GetDB().SelectContext(ctx, &cmds, query, deviceID, models.CommandPending, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list pending commands", err)
	}
	return cmds, nil
}

// ListStale returns non-terminal commands whose last state change predates
// the cutoff. The retry loop treats these as lost-in-flight.
func (r *CommandRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*models.DeviceCommand, error) {
	cmds := []*models.DeviceCommand{}
	query := `
		SELECT * FROM device_commands
		WHERE status IN ($1, $2) AND updated_at <= $3
		ORDER BY requested_at ASC
		LIMIT $4`

	err := r.db.GetDB().SelectContext(ctx, &cmds, query,
		models.CommandPending, models.CommandDispatched, cutoff, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list stale commands", err)
	}
	return cmds, nil
}

// MarkDispatched advances a command to dispatched. The status is re-checked
// at update time so a command that completed between read and write is left
// alone; the bool reports whether the row actually moved.
func (r *CommandRepo) MarkDispatched(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE device_commands SET
			status = $1,
			dispatched_at = $2,
			updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		models.CommandDispatched, at, id, models.CommandPending, models.CommandDispatched)
	if err != nil {
		return false, errors.NewDatabaseError("failed to mark command dispatched", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

// MarkPending requeues a dispatched command that was never acknowledged.
// Terminal commands never move back.
func (r *CommandRepo) MarkPending(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE device_commands SET
			status = $1,
			dispatched_at = NULL,
			updated_at = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		models.CommandPending, time.Now().UTC(), id, models.CommandDispatched)
	if err != nil {
		return false, errors.NewDatabaseError("failed to mark command pending", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows > 0, nil
}

// Complete records the device's acknowledgement and moves the command to a
// terminal state. A command already terminal stays as it is; callers get a
// conflict error so duplicate acks are visible.
func (r *CommandRepo) Complete(ctx context.Context, id string, success bool, response models.JSON, at time.Time) (*models.DeviceCommand, error) {
	status := models.CommandCompleted
	if !success {
		status = models.CommandFailed
	}

	query := `
		UPDATE device_commands SET
			status = $1,
			response_payload = $2,
			response_received_at = $3,
			updated_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		status, response, at, id, models.CommandCompleted, models.CommandFailed)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to complete command", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.NewConflictError("command already acknowledged", nil)
	}
	return r.Get(ctx, id)
}

func (r *CommandRepo) List(ctx context.Context, filters models.CommandFilters, offset, limit int) ([]*models.DeviceCommand, error) {
	query := `SELECT * FROM device_commands WHERE 1=1`
	args := []interface{}{}

	if filters.DeviceID != "" {
		args = append(args, filters.DeviceID)
		query += ` AND device_id = $` + itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += ` AND status = $` + itoa(len(args))
	}

	args = append(args, limit)
	query += ` ORDER BY requested_at DESC LIMIT $` + itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + itoa(len(args))

	cmds := []*models.DeviceCommand{}
	err := r.db.GetDB().SelectContext(ctx, &cmds, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list commands", err)
	}
	return cmds, nil
}

func (r *CommandRepo) DeleteTerminalBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM device_commands
		WHERE status IN ($1, $2) AND updated_at < $3`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		models.CommandCompleted, models.CommandFailed, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete terminal commands", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	nuts.L.Infof("[CommandRepo] Deleted %d terminal commands older than %v", rows, before)
	return rows, nil
}
