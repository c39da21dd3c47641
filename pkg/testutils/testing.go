// Package testutils contains some common utilities used exclusively
// by the test suite.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/squareup/reconcile/pkg/dbconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SensorsTable is the fixture table most tests reconcile against.
// voltage is TEXT on purpose: it holds values like "220.0" that
// differ from the spreadsheet's numeric 220.
const SensorsTable = `CREATE TABLE sensors (
	sensor_id TEXT NOT NULL PRIMARY KEY,
	name TEXT,
	voltage TEXT,
	height REAL,
	installed TEXT,
	notes TEXT
)`

// NewDB opens a fresh sqlite3 database in a temporary directory.
// It is closed when the test finishes.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reconcile.db")
	db, err := dbconn.New(context.Background(), dbconn.DriverSQLite, path, dbconn.NewDBConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewSensorsDB returns a database with the sensors table created.
func NewSensorsDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := NewDB(t)
	RunSQL(t, db, SensorsTable)
	return db
}

func RunSQL(t *testing.T, db *sqlx.DB, stmt string, args ...interface{}) {
	t.Helper()
	_, err := db.Exec(stmt, args...)
	assert.NoError(t, err)
}
