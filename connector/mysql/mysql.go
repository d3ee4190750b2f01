// Package mysql attaches MySQL-compatible servers as external sources with
// full INSERT, UPDATE and DELETE support.
package mysql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	driver "github.com/go-sql-driver/mysql"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/connector/sqlconn"
)

// Kind is the connector kind tag
const Kind connector.Kind = "mysql"

func init() {
	connector.Register(Kind, connector.NewCapabilities(
		connector.FamilyInsert,
		connector.FamilyUpdate,
		connector.FamilyDelete,
	), func(opts connector.Options) (connector.Connector, error) {
		return Open(opts)
	})
}

// ParseDSN validates the dsn option and applies connector defaults
func ParseDSN(opts connector.Options) (*driver.Config, error) {
	dsn := opts.Get("dsn", "")
	if dsn == "" {
		return nil, fmt.Errorf("mysql connector requires the dsn option")
	}

	config, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	config.ParseTime = true
	return config, nil
}

// Open prepares a connection pool. No connection is made until the first write.
func Open(opts connector.Options) (*sqlconn.Connector, error) {
	config, err := ParseDSN(opts)
	if err != nil {
		return nil, err
	}

	c, err := driver.NewConnector(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(c)
	db.SetConnMaxIdleTime(time.Minute)
	return sqlconn.New(Kind, db, "mysql", opts), nil
}
