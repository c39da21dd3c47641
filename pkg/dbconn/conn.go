package dbconn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ConnParams are the discrete connection settings, usually read
// from the environment. They are turned into a driver specific DSN.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// BuildDSN returns a DSN for driver from the discrete parameters.
// For sqlite3 the database is the path of the database file.
func BuildDSN(driver string, p ConnParams) (string, error) {
	switch driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = p.User
		cfg.Passwd = p.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
		cfg.DBName = p.Database
		return cfg.FormatDSN(), nil
	case DriverPostgres:
		sslMode := p.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			quotePQValue(p.Host), p.Port, quotePQValue(p.User), quotePQValue(p.Password),
			quotePQValue(p.Database), quotePQValue(sslMode)), nil
	case DriverSQLite:
		if p.Database == "" {
			return "", fmt.Errorf("sqlite3 requires a database file")
		}
		return p.Database, nil
	}
	return "", fmt.Errorf("unsupported driver %q", driver)
}

// quotePQValue quotes a libpq keyword/value connection string value
// when it is empty or contains spaces, quotes or backslashes.
func quotePQValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// newMySQLDSN returns a new DSN to be used to connect to MySQL.
// It accepts a DSN as input and appends session settings so every
// connection in the pool behaves the same.
func newMySQLDSN(dsn string, config *DBConfig) (string, error) {
	var ops []string
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", err
	}
	ops = append(ops, fmt.Sprintf("%s=%s", "time_zone", url.QueryEscape(`"+00:00"`)))
	ops = append(ops, fmt.Sprintf("%s=%s", "innodb_lock_wait_timeout", url.QueryEscape(strconv.Itoa(config.InnodbLockWaitTimeout))))
	ops = append(ops, fmt.Sprintf("%s=%s", "lock_wait_timeout", url.QueryEscape(strconv.Itoa(config.LockWaitTimeout))))
	ops = append(ops, fmt.Sprintf("%s=%s", "charset", "utf8mb4"))
	// So that we recycle the connection if we inadvertently connect to an old primary which is now a read only replica.
	// See also: https://github.com/go-sql-driver/mysql?tab=readme-ov-file#rejectreadonly
	ops = append(ops, fmt.Sprintf("%s=%s", "rejectReadOnly", "true"))
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(ops, "&"), nil
}
