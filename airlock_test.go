package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := "CREATE EXTERNAL TABLE t FROM debug OPTIONS (note = 'a;b');\n  SHOW EXTERNAL TABLES ;trailing"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(splitStatements)

	var got []string
	for scanner.Scan() {
		got = append(got, strings.TrimSpace(scanner.Text()))
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{
		"CREATE EXTERNAL TABLE t FROM debug OPTIONS (note = 'a;b')",
		"SHOW EXTERNAL TABLES",
		"trailing",
	}, got)
}

func TestRunShell(t *testing.T) {
	pool, err := connector.NewPool(connector.Default, 4)
	require.NoError(t, err)
	eng, err := engine.New(engine.Options{Store: catalog.NewMemoryStore(), Registry: connector.Default, Pool: pool})
	require.NoError(t, err)
	defer eng.Close()

	script := `
CREATE EXTERNAL DATABASE debug_db FROM debug;
INSERT INTO debug_db.never_ending VALUES (1);
ALTER DATABASE debug_db SET ACCESS_MODE TO READ_WRITE;
INSERT INTO debug_db.never_ending VALUES (1);
SHOW EXTERNAL DATABASES;
`
	var out bytes.Buffer
	runShell(context.Background(), eng, strings.NewReader(script), &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "OK", lines[0])
	assert.Contains(t, lines[1], "Not allowed to write")
	assert.Equal(t, "OK", lines[2])
	assert.Contains(t, lines[3], "Insert into not implemented for this table")
	assert.Equal(t, "debug_db\tdebug\tREAD_WRITE", lines[4])
}
