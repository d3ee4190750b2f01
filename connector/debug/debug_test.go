package debug

import (
	"errors"
	"testing"

	"github.com/maxpert/airlock/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredWithoutWriteFamilies(t *testing.T) {
	caps, ok := connector.Default.Capabilities(Kind)
	require.True(t, ok)
	assert.Empty(t, caps.Families())
	assert.True(t, caps.ListsTables())

	for _, f := range []connector.Family{connector.FamilyInsert, connector.FamilyUpdate, connector.FamilyDelete} {
		assert.False(t, connector.Default.Supports(Kind, f))
	}
}

func TestOpen(t *testing.T) {
	conn, err := connector.Default.Open(Kind, connector.Options{"table_type": TableErrorDuringExecution})
	require.NoError(t, err)
	defer conn.Close()

	dc, ok := conn.(*Connector)
	require.True(t, ok)
	assert.Equal(t, TableErrorDuringExecution, dc.TableType())

	_, isInserter := conn.(connector.Inserter)
	assert.False(t, isInserter)

	lister, ok := conn.(connector.TableLister)
	require.True(t, ok)
	assert.Contains(t, lister.ListTables(), connector.TableInfo{Schema: "public", Name: TableNeverEnding})

	_, err = connector.Default.Open(Kind, connector.Options{"table_type": "bogus"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, connector.ErrUnknownKind))
}
