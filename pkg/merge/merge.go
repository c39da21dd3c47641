// Package merge contains the logic for running an interactive
// reconciliation of a table against a spreadsheet.
package merge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/squareup/reconcile/pkg/dbconn"
	"github.com/squareup/reconcile/pkg/utils"
)

var defaultPorts = map[string]int{
	dbconn.DriverMySQL:    3306,
	dbconn.DriverPostgres: 5432,
}

type Merge struct {
	Driver          string   `name:"driver" help:"Database driver: postgres, mysql or sqlite3" optional:"" default:"postgres" env:"DB_DRIVER"`
	Host            string   `name:"host" help:"Hostname, optionally with :port" optional:"" default:"localhost" env:"DB_HOST"`
	Port            int      `name:"port" help:"Port (defaults to the driver's standard port)" optional:"" env:"DB_PORT"`
	Database        string   `name:"database" help:"Database (the database file for sqlite3)" optional:"" env:"DB_NAME"`
	Username        string   `name:"username" help:"User" optional:"" env:"DB_USER"`
	Password        string   `name:"password" help:"Password" optional:"" env:"DB_PASSWORD"`
	SSLMode         string   `name:"sslmode" help:"Postgres sslmode" optional:"" default:"disable" env:"DB_SSLMODE"`
	DSN             string   `name:"dsn" help:"A complete DSN (replaces --host, --port, --database, --username and --password)" optional:"" env:"DB_DSN"`
	Table           string   `name:"table" help:"Table to reconcile" optional:"" env:"BD_TABLE_UPD_NAME"`
	KeyColumn       string   `name:"key-column" help:"Column that identifies an entity in both the table and the spreadsheet" optional:"" default:"sensor_id" env:"DB_KEY_COLUMN"`
	File            string   `name:"file" help:"Spreadsheet to reconcile against (.xlsx or .csv)" optional:"" default:"datos_sensores_eolico-revisar.xlsx" env:"SHEET_FILE"`
	Sheet           string   `name:"sheet" help:"Worksheet name (defaults to the first sheet)" optional:"" env:"SHEET_NAME"`
	Snapshot        string   `name:"snapshot" help:"Where to write the snapshot of the table taken before any update (defaults to <table>_resp.csv)" optional:"" env:"SNAPSHOT_FILE"`
	Start           int      `name:"start" help:"0-based spreadsheet row to start from. Negative asks interactively" optional:"" default:"-1"`
	MetricsTextfile string   `name:"metrics-textfile" help:"Write run metrics to this file in the Prometheus text format" optional:"" env:"METRICS_TEXTFILE"`
	SkipChecks      []string `name:"skip-check" help:"Name of a pre-run check to skip" optional:""`
	Debug           bool     `name:"debug" help:"Enable debug logging" optional:"" default:"false"`
}

func (m *Merge) Run(ctx context.Context) error {
	merge, err := NewRunner(m)
	if err != nil {
		return err
	}
	defer merge.Close()
	return merge.Run(ctx)
}

// normalizeOptions does some validation and sets defaults.
// It also builds the DSN when --dsn is not given.
func (m *Merge) normalizeOptions() (dsn string, err error) {
	m.Driver = strings.ToLower(strings.TrimSpace(m.Driver))
	if m.Driver == "postgresql" {
		m.Driver = dbconn.DriverPostgres
	}
	if !dbconn.IsSupportedDriver(m.Driver) {
		return "", fmt.Errorf("unsupported driver %q", m.Driver)
	}
	if m.Table == "" {
		return "", errors.New("table name is required")
	}
	if m.KeyColumn == "" {
		return "", errors.New("key column is required")
	}
	if m.File == "" {
		return "", errors.New("spreadsheet file is required")
	}
	if m.DSN != "" {
		return m.DSN, nil
	}
	if m.Database == "" {
		return "", errors.New("database name is required")
	}
	if m.Driver != dbconn.DriverSQLite {
		if m.Host == "" {
			return "", errors.New("host is required")
		}
		if strings.Contains(m.Host, ":") {
			port, err := strconv.Atoi(m.Host[strings.LastIndex(m.Host, ":")+1:])
			if err != nil {
				return "", fmt.Errorf("invalid port in host %q", m.Host)
			}
			if m.Port == 0 {
				m.Port = port
			}
			m.Host = utils.StripPort(m.Host)
		}
		if m.Port == 0 {
			m.Port = defaultPorts[m.Driver]
		}
	}
	return dbconn.BuildDSN(m.Driver, dbconn.ConnParams{
		Host:     m.Host,
		Port:     m.Port,
		User:     m.Username,
		Password: m.Password,
		Database: m.Database,
		SSLMode:  m.SSLMode,
	})
}
