package connector

import (
	"context"
	"strings"
)

// Options is the connector-specific configuration of a catalog entry.
// Keys are lower-case; the core never interprets values.
type Options map[string]string

// Get returns the option value or def when unset or empty.
func (o Options) Get(key, def string) string {
	if v, ok := o[strings.ToLower(key)]; ok && v != "" {
		return v
	}
	return def
}

// Connector is an opened instance of a connector kind.
// Instances are shared between statements and MUST be goroutine-safe.
type Connector interface {
	Kind() Kind
	Close() error
}

// InsertRequest carries literal rows destined for one table.
type InsertRequest struct {
	// Table is the table name as referenced by the statement. Connectors map
	// it to a remote object (table, topic, subject) using their options.
	Table   string
	Columns []string // empty means positional
	Rows    [][]interface{}
}

// StatementRequest carries an UPDATE or DELETE for one table.
type StatementRequest struct {
	Table string
	// Render returns the statement text targeting the given remote table name.
	Render func(target string) string
}

// Inserter is implemented by connectors with an INSERT path.
type Inserter interface {
	Insert(ctx context.Context, req *InsertRequest) (int64, error)
}

// Updater is implemented by connectors with an UPDATE path.
type Updater interface {
	Update(ctx context.Context, req *StatementRequest) (int64, error)
}

// Deleter is implemented by connectors with a DELETE path.
type Deleter interface {
	Delete(ctx context.Context, req *StatementRequest) (int64, error)
}

// TableInfo names a table exposed by an external database.
type TableInfo struct {
	Schema string
	Name   string
}

// TableLister is implemented by connectors that can enumerate their tables
// without I/O. The binder uses it to reject unknown tables early.
type TableLister interface {
	ListTables() []TableInfo
}

// implements reports whether conn provides the write interface for family.
func implements(conn Connector, family Family) bool {
	switch family {
	case FamilyInsert:
		_, ok := conn.(Inserter)
		return ok
	case FamilyUpdate:
		_, ok := conn.(Updater)
		return ok
	case FamilyDelete:
		_, ok := conn.(Deleter)
		return ok
	}
	return false
}
