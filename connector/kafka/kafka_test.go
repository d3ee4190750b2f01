package kafka

import (
	"testing"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/encoding"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	assert.True(t, connector.Default.Supports(Kind, connector.FamilyInsert))
	assert.False(t, connector.Default.Supports(Kind, connector.FamilyUpdate))
	assert.False(t, connector.Default.Supports(Kind, connector.FamilyDelete))
}

func TestOpen_Options(t *testing.T) {
	_, err := Open(connector.Options{"topic": "events"})
	assert.Error(t, err)

	_, err = Open(connector.Options{"brokers": " , "})
	assert.Error(t, err)

	_, err = Open(connector.Options{"brokers": "localhost:9092"})
	assert.Error(t, err)

	conn, err := Open(connector.Options{"brokers": "localhost:9092, localhost:9093", "topic": "events"})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "events", conn.Topic())

	// The registry verifies declared capabilities against the instance
	opened, err := connector.Default.Open(Kind, connector.Options{"brokers": "localhost:9092", "topic": "events"})
	require.NoError(t, err)
	defer opened.Close()
	_, isUpdater := opened.(connector.Updater)
	assert.False(t, isUpdater)
}

func TestMessages(t *testing.T) {
	conn, err := Open(connector.Options{"brokers": "localhost:9092", "topic": "events", "key_column": "ID"})
	require.NoError(t, err)
	defer conn.Close()

	msgs, err := conn.Messages(&connector.InsertRequest{
		Table:   "events",
		Columns: []string{"id", "name"},
		Rows:    [][]interface{}{{int64(7), "signup"}, {nil, "anonymous"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, []byte("7"), msgs[0].Key)
	assert.Nil(t, msgs[1].Key)

	row, err := encoding.DecodeRow(msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "signup", row["name"])
	assert.EqualValues(t, 7, row["id"])

	_, err = conn.Messages(&connector.InsertRequest{
		Columns: []string{"id"},
		Rows:    [][]interface{}{{int64(1), "extra"}},
	})
	assert.Error(t, err)
}

func TestOpen_Compression(t *testing.T) {
	_, err := Open(connector.Options{"brokers": "localhost:9092", "topic": "events", "compression": "brotli"})
	assert.Error(t, err)

	conn, err := Open(connector.Options{"brokers": "localhost:9092", "topic": "events", "compression": "zstd"})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, kafka.Zstd, conn.writer.Compression)
}
