package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/internal/retry"
	"github.com/loykin/apicontract/internal/store/connector"
	"github.com/loykin/apicontract/internal/store/postgresql"
	"github.com/loykin/apicontract/internal/store/sqlite"
)

// DbFileName is the default filename for the run history database.
const DbFileName = "apicontract.db"

type Run = connector.Run

type TableNames = connector.TableNames

// DefaultTableNames returns the table names for prefix; an empty prefix
// gives the built-in names.
func DefaultTableNames(prefix string) TableNames {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return TableNames{Runs: constants.DefaultRunsTable, Extracted: constants.DefaultExtractedTable}
	}
	return TableNames{Runs: prefix + constants.RunsSuffix, Extracted: prefix + constants.ExtractedSuffix}
}

// Store records contract runs through a driver Connector.
type Store struct {
	connector  connector.Connector
	driver     string
	retry      *retry.Config
	TableNames TableNames
}

func newConnector(driver string) (connector.Connector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSqlite, "sqlite3":
		return sqlite.NewStore(), nil
	case DriverPostgresql, "postgres", "pg":
		return postgresql.NewStore(), nil
	}
	return nil, fmt.Errorf("store: unsupported driver %q", driver)
}

// Open connects to the configured database and ensures its schema.
func Open(cfg Config) (*Store, error) {
	c, err := newConnector(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DriverConfig != nil {
		if err := c.Load(cfg.DriverConfig.ToMap()); err != nil {
			return nil, fmt.Errorf("store: load config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	if _, err := retry.Do(ctx, cfg.Retry, c.Connect); err != nil {
		return nil, err
	}

	th := cfg.TableNames
	def := DefaultTableNames("")
	if th.Runs == "" {
		th.Runs = def.Runs
	}
	if th.Extracted == "" {
		th.Extracted = def.Extracted
	}

	st := &Store{connector: c, driver: normalizeDriver(cfg.Driver), retry: cfg.Retry, TableNames: th}
	if _, err := retry.Do(ctx, cfg.Retry, func() (struct{}, error) { return struct{}{}, c.Ensure(th) }); err != nil {
		_ = c.Close()
		return nil, err
	}
	common.GetLogger().WithStore(st.driver).Info("run store ready", "runs_table", th.Runs)
	return st, nil
}

func normalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DriverPostgresql, "postgres", "pg":
		return DriverPostgresql
	}
	return DriverSqlite
}

// Driver reports the normalized driver name.
func (s *Store) Driver() string { return s.driver }

// RecordRun stores run and returns its id.
func (s *Store) RecordRun(run Run) (int64, error) {
	return retry.Do(context.Background(), s.retry, func() (int64, error) {
		return s.connector.RecordRun(s.TableNames, run)
	})
}

// ListRuns returns the newest runs first, optionally filtered by suite.
func (s *Store) ListRuns(suite string, limit int) ([]Run, error) {
	return retry.Do(context.Background(), s.retry, func() ([]Run, error) {
		return s.connector.ListRuns(s.TableNames, suite, limit)
	})
}

func (s *Store) Close() error {
	if s == nil || s.connector == nil {
		return nil
	}
	return s.connector.Close()
}
