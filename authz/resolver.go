// Package authz decides whether a mutating statement may reach a connector.
//
// The effective access mode of a table is its explicit override when one was
// set, otherwise the current mode of its owning external database. Standalone
// tables without an override are read only. Every call reads the catalog
// afresh so an alter statement governs the very next statement.
package authz

import (
	"errors"

	"github.com/maxpert/airlock/catalog"
)

// Source names which catalog entry supplied an effective access mode.
type Source int

const (
	SourceTable    Source = iota // explicit table override
	SourceDatabase               // owning database mode
	SourceDefault                // standalone table without override
)

func (s Source) String() string {
	switch s {
	case SourceTable:
		return "table"
	case SourceDatabase:
		return "database"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Resolver computes effective access modes from a catalog.Store.
type Resolver struct {
	store catalog.Store
}

// NewResolver creates a resolver reading from store.
func NewResolver(store catalog.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the effective mode for ref and where it came from.
// A missing owning database or a missing standalone table yields the store's
// NotFound error unchanged. A table inside an external database without its
// own catalog entry simply has no override.
func (r *Resolver) Resolve(ref catalog.TableName) (catalog.AccessMode, Source, error) {
	ref = ref.Normalize()

	tbl, err := r.store.GetTable(ref)
	switch {
	case err == nil:
		if mode, ok := tbl.AccessModeOverride(); ok {
			return mode, SourceTable, nil
		}
	case !errors.Is(err, catalog.ErrNotFound) || ref.Standalone():
		return catalog.ReadOnly, SourceDefault, err
	}

	if ref.Standalone() {
		return catalog.ReadOnly, SourceDefault, nil
	}

	db, err := r.store.GetDatabase(ref.Database)
	if err != nil {
		return catalog.ReadOnly, SourceDatabase, err
	}
	return db.Mode, SourceDatabase, nil
}
