package store

import (
	"github.com/loykin/apicontract/internal/retry"
	"github.com/loykin/apicontract/internal/store/postgresql"
	"github.com/loykin/apicontract/internal/store/sqlite"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

type Config struct {
	Driver       string `mapstructure:"driver"`
	TableNames   TableNames
	DriverConfig DriverConfig
	// Retry governs transient connection and lock errors; nil uses retry.DefaultConfig.
	Retry *retry.Config
}

type DriverConfig interface {
	ToMap() map[string]interface{}
}

type SqliteConfig = sqlite.Config

type PostgresConfig = postgresql.Config
