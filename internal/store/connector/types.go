package connector

import (
	"database/sql"
	"time"
)

// Run is one executed contract case as recorded in the runs table.
// Failures holds one line per failed expectation; Extracted holds the
// values the case stored into the suite env.
type Run struct {
	ID         int64
	Suite      string
	Case       string
	Method     string
	URL        string
	StatusCode int
	ElapsedMS  int64
	Passed     bool
	Failures   []string
	Extracted  map[string]string
	RanAt      time.Time
}

// TableNames represents database table names
type TableNames struct {
	Runs      string
	Extracted string
}

type Connector interface {
	Connect() (*sql.DB, error)
	Validate() error
	Load(config map[string]interface{}) error
	Ensure(th TableNames) error
	// RecordRun inserts run and its extracted values, returning the new id.
	RecordRun(th TableNames, run Run) (int64, error)
	// ListRuns returns the newest runs first. An empty suite lists every
	// suite; limit <= 0 means no limit.
	ListRuns(th TableNames, suite string, limit int) ([]Run, error)
	Close() error
}

// Dialect captures what differs between drivers in the shared SQL.
type Dialect interface {
	GetDriverName() string
	GetPlaceholder(index int) string
	// GetReturningClause is appended to the runs INSERT; empty means the
	// driver reports the id through sql.Result.LastInsertId.
	GetReturningClause() string
	ConvertBoolToStorage(b bool) interface{}
	ConvertBoolFromStorage(val interface{}) bool
	ConvertTimeToStorage(t time.Time) interface{}
	ConvertTimeFromStorage(val interface{}) time.Time
	GetEnsureStatements(th TableNames) []string
}
