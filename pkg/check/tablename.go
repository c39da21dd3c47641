package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/siddontang/loggers"
	"github.com/squareup/reconcile/pkg/dbconn"
)

// Max identifier lengths. Postgres silently truncates longer names.
var maxTableNameLength = map[string]int{
	dbconn.DriverMySQL:    64,
	dbconn.DriverPostgres: 63,
}

func init() {
	registerCheck("tablename", tableNameCheck, ScopePreRun)
}

func tableNameCheck(ctx context.Context, r Resources, logger loggers.Advanced) error {
	tableName := r.Table.TableName
	if len(tableName) < 1 {
		return errors.New("table name must be at least 1 character")
	}
	if strings.IndexFunc(tableName, unicode.IsControl) >= 0 {
		return fmt.Errorf("table name %q contains control characters", tableName)
	}
	for _, part := range strings.Split(tableName, ".") {
		if part == "" {
			return fmt.Errorf("table name %q has an empty part", tableName)
		}
		if limit, ok := maxTableNameLength[r.Table.Driver]; ok && len(part) > limit {
			return fmt.Errorf("table name must be less than %d characters", limit+1)
		}
	}
	return nil
}
