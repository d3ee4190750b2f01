package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/maxpert/airlock/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, opts connector.Options) connector.Connector {
	if opts == nil {
		opts = connector.Options{}
	}
	opts["path"] = filepath.Join(t.TempDir(), "test.db")

	conn, err := connector.Default.Open(Kind, opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db := conn.(interface{ DB() *sql.DB }).DB()
	_, err = db.Exec("CREATE TABLE orders (id INTEGER PRIMARY KEY, item TEXT, qty INTEGER)")
	require.NoError(t, err)
	return conn
}

func TestCapabilities(t *testing.T) {
	for _, f := range []connector.Family{connector.FamilyInsert, connector.FamilyUpdate, connector.FamilyDelete} {
		assert.True(t, connector.Default.Supports(Kind, f), f.Label())
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := connector.Default.Open(Kind, connector.Options{})
	assert.Error(t, err)
}

func TestWritePaths(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t, connector.Options{"table": "orders"})

	n, err := conn.(connector.Inserter).Insert(ctx, &connector.InsertRequest{
		Table:   "ignored_by_table_option",
		Columns: []string{"id", "item", "qty"},
		Rows:    [][]interface{}{{int64(1), "apple", int64(3)}, {int64(2), "pear", int64(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Positional rows
	n, err = conn.(connector.Inserter).Insert(ctx, &connector.InsertRequest{
		Table: "orders",
		Rows:  [][]interface{}{{int64(3), "plum", nil}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	db := conn.(interface{ DB() *sql.DB }).DB()
	var item string
	require.NoError(t, db.QueryRow("SELECT item FROM orders WHERE id = 3").Scan(&item))
	assert.Equal(t, "plum", item)

	var target string
	n, err = conn.(connector.Updater).Update(ctx, &connector.StatementRequest{
		Table: "orders_alias",
		Render: func(remote string) string {
			target = remote
			return "update " + remote + " set qty = qty + 1 where qty is not null"
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "orders", target)
	assert.Equal(t, int64(2), n)

	n, err = conn.(connector.Deleter).Delete(ctx, &connector.StatementRequest{
		Table:  "orders",
		Render: func(remote string) string { return "delete from " + remote + " where id = 1" },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var total int64
	require.NoError(t, db.QueryRow("SELECT SUM(qty) FROM orders").Scan(&total))
	assert.Equal(t, int64(6), total)
}

func TestInsert_RemoteError(t *testing.T) {
	conn := openTestDB(t, nil)

	_, err := conn.(connector.Inserter).Insert(context.Background(), &connector.InsertRequest{
		Table: "no_such_table",
		Rows:  [][]interface{}{{int64(1)}},
	})
	assert.ErrorContains(t, err, "no such table")
}

func TestInsert_PositionalArity(t *testing.T) {
	conn := openTestDB(t, nil)

	_, err := conn.(connector.Inserter).Insert(context.Background(), &connector.InsertRequest{
		Table: "orders",
		Rows:  [][]interface{}{{int64(1), "apple"}},
	})
	assert.ErrorContains(t, err, "has 2 values but orders has 3 columns")
}
