// Package dbconn contains a series of database-related utility functions.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/squareup/reconcile/pkg/utils"

	// Registered drivers. The driver is chosen by name at runtime.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	maxConnLifetime = time.Minute * 3
)

type DBConfig struct {
	LockWaitTimeout       int
	InnodbLockWaitTimeout int
	MaxOpenConnections    int
	ConnectTimeout        time.Duration
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		LockWaitTimeout:       30,
		InnodbLockWaitTimeout: 3,
		MaxOpenConnections:    1,
		ConnectTimeout:        10 * time.Second,
	}
}

// IsSupportedDriver returns true for the drivers this package registers.
func IsSupportedDriver(driver string) bool {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return true
	}
	return false
}

// New is similar to sqlx.Open except we take the inputDSN and
// append additional options to it to standardize the connection.
// It will also ping the connection to ensure it is valid.
func New(ctx context.Context, driver, inputDSN string, config *DBConfig) (*sqlx.DB, error) {
	if !IsSupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	dsn := inputDSN
	if driver == DriverMySQL {
		var err error
		if dsn, err = newMySQLDSN(inputDSN, config); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx := ctx
	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		utils.ErrInErr(db.Close())
		return nil, err
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	return db, nil
}

// Exec runs a single statement in its own transaction and commits it.
// It returns the number of rows affected. There is no retry: a failed
// statement is rolled back and the error is returned as-is.
func Exec(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (int64, error) {
	trx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := trx.ExecContext(ctx, query, args...)
	if err != nil {
		utils.ErrInErr(trx.Rollback())
		return 0, err
	}
	// Some drivers don't support affected rows, and that's fine.
	// The count is only used for reporting.
	rowsAffected, errC := res.RowsAffected()
	if errC != nil {
		rowsAffected = 0
	}
	if err := trx.Commit(); err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DBExec is like db.Exec but only returns an error.
// This makes it a little bit easier to use in error handling.
func DBExec(ctx context.Context, db *sql.DB, query string) error {
	_, err := db.ExecContext(ctx, query)
	return err
}
