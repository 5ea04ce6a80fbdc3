package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/internal/store/connector"
)

// Dialect implements SQL dialect for SQLite
type Dialect struct{}

var _ connector.Dialect = (*Dialect)(nil)

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns SQLite-style placeholders (?); the index is ignored
func (s *Dialect) GetPlaceholder(int) string {
	return "?"
}

// GetReturningClause is empty: SQLite reports ids through LastInsertId
func (s *Dialect) GetReturningClause() string {
	return ""
}

// ConvertBoolToStorage converts bool to SQLite storage format (integer 0/1)
func (s *Dialect) ConvertBoolToStorage(b bool) interface{} {
	if b {
		return 1
	}
	return 0
}

// ConvertTimeToStorage converts time to SQLite storage format (RFC3339Nano string)
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(time.RFC3339Nano)
}

// ConvertBoolFromStorage converts SQLite integer storage to bool
func (s *Dialect) ConvertBoolFromStorage(val interface{}) bool {
	if i, ok := val.(int64); ok {
		return i != 0
	}
	if i, ok := val.(int); ok {
		return i != 0
	}
	return false
}

// ConvertTimeFromStorage parses SQLite RFC3339Nano text storage
func (s *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	var str string
	switch v := val.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	case time.Time:
		return v.UTC()
	default:
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Connect establishes a connection to SQLite with connection pooling
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)

	return db, nil
}

// GetEnsureStatements returns SQLite-specific table creation statements
func (s *Dialect) GetEnsureStatements(th connector.TableNames) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, suite TEXT NOT NULL, case_name TEXT NOT NULL, method TEXT NOT NULL, url TEXT NOT NULL, status_code INTEGER NOT NULL, elapsed_ms INTEGER NOT NULL, passed INTEGER NOT NULL DEFAULT 0, failures_json TEXT NULL, ran_at TEXT NOT NULL)", th.Runs),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_suite ON %s (suite)", th.Runs, th.Runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE, name TEXT NOT NULL, value TEXT NOT NULL, PRIMARY KEY(run_id, name))", th.Extracted, th.Runs),
	}
}

// GetDriverName returns the driver name for logging
func (s *Dialect) GetDriverName() string {
	return "sqlite"
}
