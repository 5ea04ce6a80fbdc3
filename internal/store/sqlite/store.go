package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/internal/store/connector"
	_ "modernc.org/sqlite"
)

// Store is the SQLite run-history connector.
type Store struct {
	connector.SQLStore
	dialect *Dialect
	DSN     string
}

var _ connector.Connector = (*Store)(nil)

// NewStore creates a new SQLite store
func NewStore() *Store {
	d := NewDialect()
	return &Store{SQLStore: connector.SQLStore{Dialect: d}, dialect: d}
}

// Load loads configuration into the SQLite store
func (s *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		s.DSN = dsn
		return nil
	}
	if path, ok := config["path"].(string); ok && path != "" {
		s.DSN = fmt.Sprintf("file:%s?_busy_timeout=%d&%s", path, constants.DefaultSQLiteBusyTimeoutMS, constants.SQLiteForeignKeysParam)
	}
	return nil
}

// Connect establishes a connection to SQLite
func (s *Store) Connect() (*sql.DB, error) {
	if s.DSN == "" {
		// Default to in-memory database for testing
		s.DSN = ":memory:"
	}

	db, err := s.dialect.Connect(s.DSN)
	if err != nil {
		return nil, err
	}
	s.DB = db

	common.GetLogger().WithStore("sqlite").Debug("SQLite database connection established")
	return db, nil
}

// Validate performs basic validation (default implementation)
func (s *Store) Validate() error {
	return nil
}
