// FilePath: internal/repository/timescale/timescale.schema_test.go
package timescale

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vermilinks/agrihub/internal/errors"
)

// mockDB adapts a sqlmock connection to the database.DB interface.
type mockDB struct {
	db *sqlx.DB
}

func (m *mockDB) Close() error { return m.db.Close() }

func (m *mockDB) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }

func (m *mockDB) GetDB() *sqlx.DB { return m.db }

func newMockDB(t *testing.T) (*mockDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return &mockDB{db: sqlxDB}, mock
}

func TestInitializeSchemaCreatesHypertable(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sensor_readings")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT create_hypertable('sensor_readings', 'timestamp'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_sensor_readings_device_time")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InitializeSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitializeSchemaStopsOnFirstError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sensor_readings")).
		WillReturnError(fmt.Errorf("connection reset"))

	err := InitializeSchema(context.Background(), db)
	require.Error(t, err)
	assert.True(t, errors.IsDatabase(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
