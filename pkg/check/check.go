// Package check provides the sanity checks that run before a
// reconciliation starts to touch the table.
package check

import (
	"context"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/siddontang/loggers"
	"github.com/squareup/reconcile/pkg/table"
)

// ScopeFlag scopes a check
type ScopeFlag uint8

const (
	ScopeNone    ScopeFlag = 0
	ScopePreRun  ScopeFlag = 1 << 0
	ScopeTesting ScopeFlag = 1 << 1
)

// Dataset is the part of the spreadsheet the checks look at.
type Dataset interface {
	Len() int
	Columns() []string
	Value(row int, column string) (interface{}, bool)
}

type Resources struct {
	DB         *sqlx.DB
	Table      *table.TableInfo
	Dataset    Dataset
	KeyColumn  string
	SkipChecks []string
}

type check struct {
	callback func(context.Context, Resources, loggers.Advanced) error
	scope    ScopeFlag
}

var (
	checks map[string]check
	lock   sync.Mutex
)

// registerCheck registers a check (callback func) and a scope (aka time) that it is expected to be run
func registerCheck(name string, callback func(context.Context, Resources, loggers.Advanced) error, scope ScopeFlag) {
	lock.Lock()
	defer lock.Unlock()
	if checks == nil {
		checks = make(map[string]check)
	}
	checks[name] = check{callback: callback, scope: scope}
}

// RunChecks runs all checks that are registered for the given scope,
// in name order, and returns the first error.
func RunChecks(ctx context.Context, r Resources, logger loggers.Advanced, scope ScopeFlag) error {
	lock.Lock()
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	lock.Unlock()
	sort.Strings(names)
	for _, name := range names {
		check := checks[name]
		if check.scope&scope == 0 {
			continue
		}
		if skipped(r.SkipChecks, name) {
			logger.Warnf("Skipping check '%s'", name)
			continue
		}
		if err := check.callback(ctx, r, logger); err != nil {
			return err
		}
	}
	return nil
}

func skipped(skipChecks []string, name string) bool {
	for _, skip := range skipChecks {
		if skip == name {
			return true
		}
	}
	return false
}
