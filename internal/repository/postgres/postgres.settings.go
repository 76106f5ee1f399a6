// FilePath: internal/repository/postgres/postgres.settings.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

// settingsRowID pins the thresholds to a single row; there is exactly one
// active threshold set per hub.
const settingsRowID = "global"

type SettingsRepo struct {
	PostgresBaseRepo
}

func NewSettingsRepository(db database.DB) *SettingsRepo {
	repo := &PostgresBaseRepo{db: db}
	return &SettingsRepo{PostgresBaseRepo: *repo}
}

// GetThresholds returns the active threshold set, creating the row with
// defaults on first use.
func (r *SettingsRepo) GetThresholds(ctx context.Context) (models.Thresholds, error) {
	var row struct {
		ID         string            `db:"id"`
		Thresholds models.Thresholds `db:"thresholds"`
		UpdatedAt  time.Time         `db:"updated_at"`
	}
	query := `SELECT * FROM settings WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, &row, query, settingsRowID)
	if err == nil {
		return row.Thresholds, nil
	}
	if err != sql.ErrNoRows {
		return models.Thresholds{}, errors.NewDatabaseError("failed to get settings", err)
	}

	defaults := models.DefaultThresholds()
	insert := `
		INSERT INTO settings (id, thresholds, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.GetDB().ExecContext(ctx, insert, settingsRowID, defaults, time.Now().UTC()); err != nil {
		return models.Thresholds{}, errors.NewDatabaseError("failed to seed settings", err)
	}
	return defaults, nil
}

func (r *SettingsRepo) UpdateThresholds(ctx context.Context, thresholds models.Thresholds) error {
	query := `
		INSERT INTO settings (id, thresholds, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			thresholds = EXCLUDED.thresholds,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.GetDB().ExecContext(ctx, query, settingsRowID, thresholds, time.Now().UTC())
	if err != nil {
		return errors.NewDatabaseError("failed to update thresholds", err)
	}
	return nil
}
