// Package sqlconn implements the write paths shared by database/sql backed
// connectors. INSERT rows are rendered with goqu in the backend's dialect,
// positional rows against the remote table's column list; UPDATE and DELETE
// are forwarded as rendered by the statement parser.
package sqlconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/maxpert/airlock/connector"
	"github.com/rs/zerolog/log"
)

// Connector writes to one database/sql handle
type Connector struct {
	kind    connector.Kind
	db      *sql.DB
	dialect goqu.DialectWrapper
	table   string // remote table override, empty to use the statement's table
}

// Ensure Connector implements every write family
var (
	_ connector.Inserter = (*Connector)(nil)
	_ connector.Updater  = (*Connector)(nil)
	_ connector.Deleter  = (*Connector)(nil)
)

// New wraps an open handle. dialect is a registered goqu dialect name.
func New(kind connector.Kind, db *sql.DB, dialect string, opts connector.Options) *Connector {
	return &Connector{
		kind:    kind,
		db:      db,
		dialect: goqu.Dialect(dialect),
		table:   opts.Get("table", ""),
	}
}

func (c *Connector) Kind() connector.Kind {
	return c.kind
}

// DB exposes the underlying handle
func (c *Connector) DB() *sql.DB {
	return c.db
}

// remote maps the statement's table to the backend table
func (c *Connector) remote(table string) string {
	if c.table != "" {
		return c.table
	}
	return table
}

// InsertSQL renders a prepared INSERT for req. goqu drops VALUES without a
// column list, so positional requests must be resolved with Columns first.
func (c *Connector) InsertSQL(req *connector.InsertRequest) (string, []interface{}, error) {
	if len(req.Columns) == 0 {
		return "", nil, errors.New("insert requires a column list")
	}

	cols := make([]interface{}, len(req.Columns))
	for i, col := range req.Columns {
		cols[i] = col
	}
	return c.dialect.Insert(c.remote(req.Table)).Prepared(true).Cols(cols...).Vals(req.Rows...).ToSQL()
}

// Columns returns the remote table's column names in ordinal order
func (c *Connector) Columns(ctx context.Context, table string) ([]string, error) {
	query, _, err := c.dialect.From(c.remote(table)).Where(goqu.L("1 = 0")).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func (c *Connector) Insert(ctx context.Context, req *connector.InsertRequest) (int64, error) {
	if len(req.Rows) == 0 {
		return 0, nil
	}

	if len(req.Columns) == 0 {
		cols, err := c.Columns(ctx, req.Table)
		if err != nil {
			return 0, err
		}
		for i, row := range req.Rows {
			if len(row) != len(cols) {
				return 0, fmt.Errorf("row %d has %d values but %s has %d columns", i+1, len(row), c.remote(req.Table), len(cols))
			}
		}
		req = &connector.InsertRequest{Table: req.Table, Columns: cols, Rows: req.Rows}
	}

	query, args, err := c.InsertSQL(req)
	if err != nil {
		return 0, fmt.Errorf("failed to render insert: %w", err)
	}
	return c.exec(ctx, query, args...)
}

func (c *Connector) Update(ctx context.Context, req *connector.StatementRequest) (int64, error) {
	return c.exec(ctx, req.Render(c.remote(req.Table)))
}

func (c *Connector) Delete(ctx context.Context, req *connector.StatementRequest) (int64, error) {
	return c.exec(ctx, req.Render(c.remote(req.Table)))
}

func (c *Connector) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	log.Debug().Str("kind", string(c.kind)).Str("sql", query).Msg("Executing remote statement")

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Connector) Close() error {
	return c.db.Close()
}
