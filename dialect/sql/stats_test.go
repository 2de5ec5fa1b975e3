package sql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelq/dialect"
)

func statsFixture(t *testing.T, opts ...StatsOption) (*StatsDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	opts = append([]StatsOption{WithStatsLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return WithStats(OpenDB(dialect.Postgres, db), opts...), mock
}

func TestStatsCounters(t *testing.T) {
	drv, mock := statsFixture(t)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		rows := &Rows{}
		require.NoError(t, drv.Query(ctx, "SELECT id FROM users", []any{}, rows))
		require.NoError(t, rows.Close())
	}
	require.NoError(t, drv.Exec(ctx, "UPDATE users SET name = 'x'", []any{}, nil))

	snap := drv.Stats()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.TotalExecs)
	assert.Greater(t, snap.TotalDuration, time.Duration(0))
	assert.Equal(t, int64(0), snap.Errors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsErrors(t *testing.T) {
	drv, mock := statsFixture(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
	rows := &Rows{}
	require.Error(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))

	snap := drv.Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.Errors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsSlowQueryHook(t *testing.T) {
	var (
		gotQuery    string
		gotDuration time.Duration
		calls       int
	)
	drv, mock := statsFixture(t,
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, d time.Duration) {
			calls++
			gotQuery = query
			gotDuration = d
		}),
	)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users", []any{}, rows))
	require.NoError(t, rows.Close())

	assert.Equal(t, 1, calls)
	assert.Equal(t, "SELECT id FROM users", gotQuery)
	assert.Greater(t, gotDuration, time.Duration(0))
	assert.Equal(t, int64(1), drv.Stats().SlowQueries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsReset(t *testing.T) {
	drv, mock := statsFixture(t)

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
	require.Equal(t, int64(1), drv.Stats().TotalExecs)

	drv.Reset()
	snap := drv.Stats()
	assert.Equal(t, StatsSnapshot{}, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsSnapshotString(t *testing.T) {
	snap := StatsSnapshot{
		TotalQueries:  3,
		TotalExecs:    1,
		TotalDuration: 4 * time.Millisecond,
		SlowQueries:   1,
		Errors:        2,
	}
	assert.Equal(t, time.Millisecond, snap.AvgQueryDuration())
	assert.Equal(t, "queries=3 execs=1 duration=4ms avg=1ms slow=1 errors=2", snap.String())

	t.Run("zero_total", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), StatsSnapshot{}.AvgQueryDuration())
	})
}
