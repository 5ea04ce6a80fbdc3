package constants

import "time"

// Database Constants
const (
	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// Connection pool settings
	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	// SQLite DSN parameters
	DefaultSQLiteBusyTimeoutMS = 5000
	SQLiteForeignKeysParam     = "_fk=1"

	// Default table names
	DefaultRunsTable      = "contract_runs"
	DefaultExtractedTable = "contract_extracted"

	// Table name suffixes when using prefixes
	RunsSuffix      = "_runs"
	ExtractedSuffix = "_extracted"
)

// Time and Duration Constants
const (
	// Connection pool lifetimes
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute
)

// HTTP client defaults
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRedirects   = 10
)

// Runner defaults
const (
	DefaultSuiteDir       = "./suites"
	DefaultPropertiesFile = "apicontract.properties"
	DefaultHistoryLimit   = 20
	DefaultFixtureAddr    = "127.0.0.1:8080"
)
