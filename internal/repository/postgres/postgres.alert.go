// FilePath: internal/repository/postgres/postgres.alert.go
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

type AlertRepo struct {
	PostgresBaseRepo
}

func NewAlertRepository(db database.DB) *AlertRepo {
	repo := &PostgresBaseRepo{db: db}
	return &AlertRepo{PostgresBaseRepo: *repo}
}

func (r *AlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = nuts.NID("alr", 12)
	}
	query := `
		INSERT INTO alerts (
			id, type, severity, message, device_id, threshold,
			snapshot, is_resolved, resolved_at, status, created_at, updated_at
		) VALUES (
			:id, :type, :severity, :message, :device_id, :threshold,
			:snapshot, :is_resolved, :resolved_at, :status, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, alert)
	if err != nil {
		return errors.NewDatabaseError("failed to create alert", err)
	}
	return nil
}

func (r *AlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `SELECT * FROM alerts WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, alert, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("alert not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get alert", err)
	}
	return alert, nil
}

// LatestUnresolved returns the most recent open alert of the given type for
// a device. This is the debounce point query; indexed by (type, device_id,
// is_resolved).
func (r *AlertRepo) LatestUnresolved(ctx context.Context, alertType, deviceID string) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `
		SELECT * FROM alerts
		WHERE type = $1 AND device_id = $2 AND is_resolved = false
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, alert, query, alertType, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no unresolved alert", err)
		}
		return nil, errors.NewDatabaseError("failed to query unresolved alert", err)
	}
	return alert, nil
}

func (r *AlertRepo) Resolve(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE alerts SET
			is_resolved = true,
			resolved_at = $1,
			updated_at = $1
		WHERE id = $2 AND is_resolved = false`

	result, err := r.db.GetDB().ExecContext(ctx, query, at, id)
	if err != nil {
		return errors.NewDatabaseError("failed to resolve alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("alert not found or already resolved", nil)
	}
	return nil
}

// ResolveByDevice closes every open alert for a device; used when the
// device goes offline.
func (r *AlertRepo) ResolveByDevice(ctx context.Context, deviceID string, at time.Time) (int64, error) {
	query := `
		UPDATE alerts SET
			is_resolved = true,
			resolved_at = $1,
			updated_at = $1
		WHERE device_id = $2 AND is_resolved = false`

	result, err := r.db.GetDB().ExecContext(ctx, query, at, deviceID)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to resolve device alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows, nil
}

func (r *AlertRepo) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE alerts SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.GetDB().ExecContext(ctx, query, models.AlertRead, time.Now().UTC(), id)
	if err != nil {
		return errors.NewDatabaseError("failed to mark alert read", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("alert not found", nil)
	}
	return nil
}

func (r *AlertRepo) List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	query := `SELECT * FROM alerts WHERE 1=1`
	args := []interface{}{}

	if filters.DeviceID != "" {
		args = append(args, filters.DeviceID)
		query += ` AND device_id = $` + itoa(len(args))
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		query += ` AND type = $` + itoa(len(args))
	}
	if filters.Severity != "" {
		args = append(args, filters.Severity)
		query += ` AND severity = $` + itoa(len(args))
	}
	if filters.Unresolved {
		query += ` AND is_resolved = false`
	}

	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + itoa(len(args))

	alerts := []*models.Alert{}
	err := r.db.GetDB().SelectContext(ctx, &alerts, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list alerts", err)
	}
	return alerts, nil
}

func (r *AlertRepo) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM alerts WHERE is_resolved = true AND resolved_at < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete resolved alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	nuts.L.Infof("[AlertRepo] Deleted %d resolved alerts older than %v", rows, before)
	return rows, nil
}
