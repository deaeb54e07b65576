package sqlite_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
)

func TestNewDB_Pragmas(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	assert.NotZero(t, db.Stats().MaxOpenConnections)
}

func TestNewDB_InMemorySingleConnection(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	assert.True(t, sqlite.Healthy(context.Background(), db))
}

func TestNewDB_FileCreated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "new.db")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	db, err := sqlite.NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewDB_MissingParentDirectory(t *testing.T) {
	t.Parallel()

	_, err := sqlite.NewDB(filepath.Join(t.TempDir(), "missing", "db.sqlite"))
	assert.Error(t, err)
}

func TestHealthy_ClosedDB(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.False(t, sqlite.Healthy(context.Background(), db))
	assert.False(t, sqlite.Healthy(context.Background(), nil))
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	in := time.Date(2026, 3, 9, 14, 5, 6, 789000000, time.FixedZone("ART", -3*3600))
	s := sqlite.FormatTime(in)
	assert.Equal(t, "2026-03-09T17:05:06.789000Z", s)

	out, err := sqlite.ParseTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	// lexicographic order matches chronological order
	assert.Less(t, sqlite.FormatTime(in), sqlite.FormatTime(in.Add(time.Microsecond)))

	got, err := sqlite.ParseNullTime(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = sqlite.ParseNullTime(sql.NullString{String: s, Valid: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, in.Equal(*got))
}

// mustOpenDB opens a file-backed DB in a temp dir and closes it on cleanup.
func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
