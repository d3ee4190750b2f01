// Package catalog holds external database and table definitions together with
// their mutable access-mode state.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/maxpert/airlock/connector"
)

// AccessMode is the write policy attached to an external entry.
type AccessMode int32

const (
	ReadOnly AccessMode = iota
	ReadWrite
)

// String returns the statement form of the mode.
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "READ_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return fmt.Sprintf("AccessMode(%d)", int32(m))
	}
}

// ParseAccessMode parses READ_ONLY or READ_WRITE, case insensitive.
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ_ONLY":
		return ReadOnly, nil
	case "READ_WRITE":
		return ReadWrite, nil
	default:
		return ReadOnly, fmt.Errorf("invalid access mode %q: expected READ_ONLY or READ_WRITE", s)
	}
}

// DefaultSchema is assumed for tables referenced inside an external database
// without an explicit schema.
const DefaultSchema = "public"

// TableName qualifies a table. Database is empty for standalone tables
// attached directly to the native catalog.
type TableName struct {
	Database string
	Schema   string
	Table    string
}

// ParseTableName splits a dotted name of one to three parts.
func ParseTableName(s string) (TableName, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for _, p := range parts {
		if p == "" {
			return TableName{}, fmt.Errorf("invalid table name %q", s)
		}
	}

	switch len(parts) {
	case 1:
		return TableName{Table: parts[0]}.Normalize(), nil
	case 2:
		return TableName{Database: parts[0], Table: parts[1]}.Normalize(), nil
	case 3:
		return TableName{Database: parts[0], Schema: parts[1], Table: parts[2]}.Normalize(), nil
	default:
		return TableName{}, fmt.Errorf("invalid table name %q: too many parts", s)
	}
}

// Standalone reports whether the table has no owning external database.
func (n TableName) Standalone() bool {
	return n.Database == ""
}

// Normalize lower-cases identifiers and fills the default schema for tables
// inside an external database.
func (n TableName) Normalize() TableName {
	out := TableName{
		Database: normalizeName(n.Database),
		Schema:   normalizeName(n.Schema),
		Table:    normalizeName(n.Table),
	}
	if out.Database != "" && out.Schema == "" {
		out.Schema = DefaultSchema
	}
	return out
}

func (n TableName) String() string {
	switch {
	case n.Database != "":
		return n.Database + "." + n.Schema + "." + n.Table
	case n.Schema != "":
		return n.Schema + "." + n.Table
	default:
		return n.Table
	}
}

func (n TableName) key() string {
	n = n.Normalize()
	return n.Database + "/" + n.Schema + "/" + n.Table
}

// Normalize folds an identifier the way catalog keys are folded.
func Normalize(s string) string {
	return normalizeName(s)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ExternalDatabase is an attached external data source.
type ExternalDatabase struct {
	Name      string
	Kind      connector.Kind
	Options   connector.Options
	Mode      AccessMode
	CreatedAt time.Time
}

// ExternalTable is an attached external table. Override is nil when the
// table inherits its mode from the owning database.
type ExternalTable struct {
	Name      TableName
	Kind      connector.Kind
	Options   connector.Options
	Override  *AccessMode
	CreatedAt time.Time
}

// AccessModeOverride returns the explicit table mode, if one was set.
func (t ExternalTable) AccessModeOverride() (AccessMode, bool) {
	if t.Override == nil {
		return ReadOnly, false
	}
	return *t.Override, true
}

// Store is the authoritative catalog of external entries. Mode changes are
// atomic with respect to concurrent readers.
type Store interface {
	GetDatabase(name string) (ExternalDatabase, error)
	GetTable(name TableName) (ExternalTable, error)
	SetDatabaseAccessMode(name string, mode AccessMode) error
	SetTableAccessMode(name TableName, mode AccessMode) error

	CreateDatabase(db ExternalDatabase) error
	CreateTable(tbl ExternalTable) error
	DropDatabase(name string) error
	DropTable(name TableName) error
	ListDatabases() []ExternalDatabase
	ListTables() []ExternalTable

	Close() error
}
