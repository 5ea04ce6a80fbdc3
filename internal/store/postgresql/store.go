package postgresql

import (
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/store/connector"
)

// Store is the PostgreSQL run-history connector.
type Store struct {
	connector.SQLStore
	dialect *Dialect
	DSN     string
}

var _ connector.Connector = (*Store)(nil)

// NewStore creates a new PostgreSQL store
func NewStore() *Store {
	d := NewDialect()
	return &Store{SQLStore: connector.SQLStore{Dialect: d}, dialect: d}
}

// Load loads configuration into the PostgreSQL store
func (p *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		p.DSN = dsn
	}
	return nil
}

// Connect establishes a connection to PostgreSQL
func (p *Store) Connect() (*sql.DB, error) {
	db, err := p.dialect.Connect(p.DSN)
	if err != nil {
		return nil, err
	}
	p.DB = db

	common.GetLogger().WithStore("postgresql").Debug("PostgreSQL database connection established")
	return db, nil
}

// Validate requires a DSN, either given directly or built from host settings
func (p *Store) Validate() error {
	if p.DSN == "" {
		return errors.New("postgresql: dsn or host is required")
	}
	return nil
}
