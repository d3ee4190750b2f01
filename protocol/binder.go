package protocol

import (
	"errors"

	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/rs/zerolog/log"
)

// Target is the catalog entry a mutation resolved to and the connector
// configuration that serves it.
type Target struct {
	Table   catalog.TableName
	Kind    connector.Kind
	Options connector.Options
	// PoolKey identifies the entry owning the connector instance
	PoolKey string
}

// BoundMutation is a mutation whose target exists in the catalog.
type BoundMutation struct {
	*Mutation
	Target Target
}

// DatabasePoolKey is the connector pool key of an external database.
func DatabasePoolKey(name string) string {
	return "database:" + name
}

// TablePoolKey is the connector pool key of an external table entry.
func TablePoolKey(name catalog.TableName) string {
	return "table:" + name.Normalize().String()
}

// Binder resolves mutation targets against the catalog.
type Binder struct {
	store catalog.Store
	pool  *connector.Pool
}

// NewBinder creates a binder. pool may be nil, in which case tables inside
// external databases are never checked against the connector's table list.
func NewBinder(store catalog.Store, pool *connector.Pool) *Binder {
	return &Binder{store: store, pool: pool}
}

// Bind returns a *catalog.NotFoundError when the target names an unknown
// external database, an unknown standalone table, or a table the database's
// connector does not list.
func (b *Binder) Bind(m *Mutation) (*BoundMutation, error) {
	name := m.Table.Normalize()

	if name.Standalone() {
		tbl, err := b.store.GetTable(name)
		if err != nil {
			return nil, err
		}
		return &BoundMutation{Mutation: m, Target: Target{
			Table:   tbl.Name,
			Kind:    tbl.Kind,
			Options: tbl.Options,
			PoolKey: TablePoolKey(tbl.Name),
		}}, nil
	}

	db, err := b.store.GetDatabase(name.Database)
	if err != nil {
		return nil, err
	}

	tbl, err := b.store.GetTable(name)
	switch {
	case err == nil:
		return &BoundMutation{Mutation: m, Target: Target{
			Table:   tbl.Name,
			Kind:    tbl.Kind,
			Options: tbl.Options,
			PoolKey: TablePoolKey(tbl.Name),
		}}, nil
	case !errors.Is(err, catalog.ErrNotFound):
		return nil, err
	}

	target := Target{
		Table:   name,
		Kind:    db.Kind,
		Options: db.Options,
		PoolKey: DatabasePoolKey(db.Name),
	}
	if err := b.checkListed(target); err != nil {
		return nil, err
	}
	return &BoundMutation{Mutation: m, Target: target}, nil
}

// checkListed consults connectors whose kind declares table listing. Other
// kinds are never opened before authorization. Opening failures are not
// binding errors; they surface from the executor after authorization.
func (b *Binder) checkListed(target Target) error {
	if b.pool == nil || !b.pool.Registry().ListsTables(target.Kind) {
		return nil
	}

	conn, release, err := b.pool.Acquire(target.PoolKey, target.Kind, target.Options)
	if err != nil {
		log.Debug().Err(err).Str("table", target.Table.String()).Msg("Skipping table list check")
		return nil
	}
	defer release()

	lister, ok := conn.(connector.TableLister)
	if !ok {
		return nil
	}

	for _, info := range lister.ListTables() {
		if catalog.Normalize(info.Schema) == target.Table.Schema && catalog.Normalize(info.Name) == target.Table.Table {
			return nil
		}
	}
	return &catalog.NotFoundError{Entry: catalog.EntryTable, Name: target.Table.String()}
}
