package mysql

import (
	"testing"
	"time"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/connector/sqlconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	for _, f := range []connector.Family{connector.FamilyInsert, connector.FamilyUpdate, connector.FamilyDelete} {
		assert.True(t, connector.Default.Supports(Kind, f), f.Label())
	}
}

func TestParseDSN(t *testing.T) {
	_, err := ParseDSN(connector.Options{})
	assert.Error(t, err)

	_, err = ParseDSN(connector.Options{"dsn": "not a dsn"})
	assert.Error(t, err)

	config, err := ParseDSN(connector.Options{"dsn": "app:secret@tcp(127.0.0.1:3306)/shop"})
	require.NoError(t, err)
	assert.Equal(t, "shop", config.DBName)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.True(t, config.ParseTime)
}

func TestOpenIsLazy(t *testing.T) {
	// Nothing listens on this port; Open must still succeed
	conn, err := connector.Default.Open(Kind, connector.Options{
		"dsn":   "app:secret@tcp(127.0.0.1:1)/shop",
		"table": "orders",
	})
	require.NoError(t, err)
	defer conn.Close()

	sc, ok := conn.(*sqlconn.Connector)
	require.True(t, ok)

	query, args, err := sc.InsertSQL(&connector.InsertRequest{
		Table:   "ignored",
		Columns: []string{"id", "item"},
		Rows:    [][]interface{}{{int64(1), "apple"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `orders` (`id`, `item`) VALUES (?, ?)", query)
	assert.Equal(t, []interface{}{int64(1), "apple"}, args)

	// goqu cannot render VALUES without columns; Insert resolves them first
	_, _, err = sc.InsertSQL(&connector.InsertRequest{Table: "orders", Rows: [][]interface{}{{int64(1), "apple"}}})
	assert.ErrorContains(t, err, "column list")
}
