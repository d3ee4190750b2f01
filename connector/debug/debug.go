// Package debug provides a scan-only connector used to exercise the engine
// without an external system. It implements no write path.
package debug

import (
	"fmt"

	"github.com/maxpert/airlock/connector"
)

// Kind is the connector kind tag
const Kind connector.Kind = "debug"

// Table types exposed by every debug database
const (
	TableNeverEnding          = "never_ending"
	TableErrorDuringExecution = "error_during_execution"
)

func init() {
	connector.Register(Kind, connector.ReadOnlyCapabilities|connector.TableListing, func(opts connector.Options) (connector.Connector, error) {
		return Open(opts)
	})
}

// Connector is an opened debug data source
type Connector struct {
	tableType string
}

// Ensure Connector lists its tables
var _ connector.TableLister = (*Connector)(nil)

// Open validates the optional table_type option
func Open(opts connector.Options) (*Connector, error) {
	tableType := opts.Get("table_type", TableNeverEnding)
	switch tableType {
	case TableNeverEnding, TableErrorDuringExecution:
	default:
		return nil, fmt.Errorf("invalid debug table_type %q", tableType)
	}
	return &Connector{tableType: tableType}, nil
}

func (c *Connector) Kind() connector.Kind {
	return Kind
}

// TableType returns the configured table behavior
func (c *Connector) TableType() string {
	return c.tableType
}

func (c *Connector) ListTables() []connector.TableInfo {
	return []connector.TableInfo{
		{Schema: "public", Name: TableNeverEnding},
		{Schema: "public", Name: TableErrorDuringExecution},
	}
}

func (c *Connector) Close() error {
	return nil
}
