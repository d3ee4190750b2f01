package protocol

import (
	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
)

// StatementType classifies a parsed statement
type StatementType int

const (
	StatementUnknown StatementType = iota
	StatementCreateDatabase
	StatementCreateTable
	StatementAlterDatabase
	StatementAlterTable
	StatementDropDatabase
	StatementDropTable
	StatementShowDatabases
	StatementShowTables
	StatementInsert
	StatementUpdate
	StatementDelete
)

// String returns the metric label of the statement type
func (t StatementType) String() string {
	switch t {
	case StatementCreateDatabase:
		return "create_database"
	case StatementCreateTable:
		return "create_table"
	case StatementAlterDatabase:
		return "alter_database"
	case StatementAlterTable:
		return "alter_table"
	case StatementDropDatabase:
		return "drop_database"
	case StatementDropTable:
		return "drop_table"
	case StatementShowDatabases:
		return "show_databases"
	case StatementShowTables:
		return "show_tables"
	case StatementInsert:
		return "insert"
	case StatementUpdate:
		return "update"
	case StatementDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// IsMutation reports whether the statement writes through a connector
func (t StatementType) IsMutation() bool {
	return t == StatementInsert || t == StatementUpdate || t == StatementDelete
}

// Statement is the parsed form of one SQL statement. Only the fields
// relevant to Type are set.
type Statement struct {
	Type StatementType
	SQL  string

	// Database statements
	Database string

	// Table statements; DROP EXTERNAL TABLE may name several
	Tables []catalog.TableName

	// CREATE EXTERNAL ...
	Kind        connector.Kind
	Options     connector.Options
	IfNotExists bool

	// DROP EXTERNAL ...
	IfExists bool

	// ALTER ... SET ACCESS_MODE
	Mode catalog.AccessMode

	// INSERT, UPDATE, DELETE
	Mutation *Mutation
}
