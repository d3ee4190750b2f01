// Package sqlite attaches SQLite database files as external sources with
// full INSERT, UPDATE and DELETE support.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/connector/sqlconn"
)

// Kind is the connector kind tag
const Kind connector.Kind = "sqlite"

func init() {
	connector.Register(Kind, connector.NewCapabilities(
		connector.FamilyInsert,
		connector.FamilyUpdate,
		connector.FamilyDelete,
	), func(opts connector.Options) (connector.Connector, error) {
		return Open(opts)
	})
}

// Open opens the file named by the path option. The handle is limited to a
// single connection so writes from concurrent statements serialize in SQLite.
func Open(opts connector.Options) (*sqlconn.Connector, error) {
	path := opts.Get("path", "")
	if path == "" {
		return nil, fmt.Errorf("sqlite connector requires the path option")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return sqlconn.New(Kind, db, "sqlite3", opts), nil
}
