// FilePath: internal/repository/postgres/postgres.alert_test.go
package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

var alertColumns = []string{
	"id", "type", "severity", "message", "device_id", "threshold",
	"snapshot", "is_resolved", "resolved_at", "status", "created_at", "updated_at",
}

func alertRow(id string, resolved bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(alertColumns).AddRow(
		id, "temperature_high", "critical", "Temperature critical", "dev-1",
		nil, nil, resolved, nil, "new", now, now,
	)
}

func TestAlertCreateAssignsId(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alerts")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alert := &models.Alert{
		Type:     "temperature_high",
		Severity: models.SeverityCritical,
		DeviceID: "dev-1",
		Status:   models.AlertNew,
	}
	require.NoError(t, repo.Create(context.Background(), alert))
	assert.NotEmpty(t, alert.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLatestUnresolvedNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM alerts WHERE type = $1 AND device_id = $2 AND is_resolved = false")).
		WithArgs("temperature_high", "dev-1").
		WillReturnRows(sqlmock.NewRows(alertColumns))

	_, err := repo.LatestUnresolved(context.Background(), "temperature_high", "dev-1")
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertResolveGuardsAlreadyResolved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET")).
		WithArgs(at, "alr_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Resolve(context.Background(), "alr_1", at)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertResolveByDeviceCountsRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET")).
		WithArgs(at, "dev-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ResolveByDevice(context.Background(), "dev-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertListBuildsFilterPlaceholders(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM alerts WHERE 1=1 AND device_id = $1 AND severity = $2 AND is_resolved = false ORDER BY created_at DESC LIMIT $3 OFFSET $4`)).
		WithArgs("dev-1", "critical", 50, 10).
		WillReturnRows(alertRow("alr_1", false))

	alerts, err := repo.List(context.Background(),
		models.AlertFilters{DeviceID: "dev-1", Severity: "critical", Unresolved: true}, 10, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alr_1", alerts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertListNoFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM alerts WHERE 1=1 ORDER BY created_at DESC LIMIT $1 OFFSET $2`)).
		WithArgs(50, 0).
		WillReturnRows(alertRow("alr_1", false))

	alerts, err := repo.List(context.Background(), models.AlertFilters{}, 0, 50)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertDeleteResolvedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepository(db)
	before := time.Now().UTC().Add(-90 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM alerts WHERE is_resolved = true AND resolved_at < $1")).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteResolvedBefore(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
