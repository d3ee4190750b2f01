package catalog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/encoding"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
)

// Key prefixes, sorted so databases load before their tables
const (
	pebblePrefixDatabase = "/db/"  // /db/{name}
	pebblePrefixTable    = "/tbl/" // /tbl/{database}/{schema}/{table}
)

// Sharded lock serializing persist-then-publish per entry key
const entryLockShards = 64

// databaseRecord is the persisted form of an ExternalDatabase
type databaseRecord struct {
	Name      string            `msgpack:"name"`
	Kind      string            `msgpack:"kind"`
	Options   map[string]string `msgpack:"options"`
	Mode      int32             `msgpack:"mode"`
	CreatedAt int64             `msgpack:"created_at"`
}

// tableRecord is the persisted form of an ExternalTable
type tableRecord struct {
	Database  string            `msgpack:"database"`
	Schema    string            `msgpack:"schema"`
	Table     string            `msgpack:"table"`
	Kind      string            `msgpack:"kind"`
	Options   map[string]string `msgpack:"options"`
	Override  int32             `msgpack:"override"` // -1 when inheriting
	CreatedAt int64             `msgpack:"created_at"`
}

// PebbleStore persists catalog entries in Pebble and serves reads from an
// in-memory copy. Every change is written with pebble.Sync before it becomes
// visible, so a failed write leaves the visible catalog unchanged.
type PebbleStore struct {
	db   *pebble.DB
	path string
	mem  *MemoryStore

	entryLocks [entryLockShards]sync.Mutex
	closed     atomic.Bool
}

// Ensure PebbleStore implements Store
var _ Store = (*PebbleStore)(nil)

// pebbleLogger wraps zerolog for Pebble
type pebbleLogger struct{}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debug().Msgf("[pebble] "+format, args...)
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msgf("[pebble] "+format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Fatal().Msgf("[pebble] "+format, args...)
}

// OpenPebbleStore opens or creates the catalog at path and loads every entry.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{Logger: &pebbleLogger{}})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble catalog: %w", err)
	}

	s := &PebbleStore{db: db, path: path, mem: NewMemoryStore()}
	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("databases", s.mem.databases.Size()).
		Int("tables", s.mem.tables.Size()).
		Msg("Catalog loaded")
	return s, nil
}

func (s *PebbleStore) load() error {
	if err := s.scan(pebblePrefixDatabase, func(val []byte) error {
		var rec databaseRecord
		if err := encoding.Unmarshal(val, &rec); err != nil {
			return err
		}
		return s.mem.createDatabaseLocked(rec.toDatabase())
	}); err != nil {
		return err
	}

	return s.scan(pebblePrefixTable, func(val []byte) error {
		var rec tableRecord
		if err := encoding.Unmarshal(val, &rec); err != nil {
			return err
		}
		err := s.mem.createTableLocked(rec.toTable())
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("table", rec.toTable().Name.String()).Msg("Skipping table whose database no longer exists")
			return nil
		}
		return err
	})
}

func (s *PebbleStore) scan(prefix string, fn func(val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val, err := iter.ValueAndErr()
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			return fmt.Errorf("bad record %q: %w", iter.Key(), err)
		}
	}
	return iter.Error()
}

// prefixUpperBound returns the exclusive upper bound of keys starting with prefix
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

func (s *PebbleStore) lockFor(key string) *sync.Mutex {
	return &s.entryLocks[xxhash.Sum64String(key)%entryLockShards]
}

func databaseKey(name string) []byte {
	return []byte(pebblePrefixDatabase + normalizeName(name))
}

func tableKey(name TableName) []byte {
	return []byte(pebblePrefixTable + name.key())
}

func (s *PebbleStore) put(key []byte, v interface{}) error {
	val, err := encoding.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode catalog record: %w", err)
	}
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist catalog record: %w", err)
	}
	return nil
}

func (s *PebbleStore) delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete catalog record: %w", err)
	}
	return nil
}

func (s *PebbleStore) GetDatabase(name string) (ExternalDatabase, error) {
	return s.mem.GetDatabase(name)
}

func (s *PebbleStore) GetTable(name TableName) (ExternalTable, error) {
	return s.mem.GetTable(name)
}

func (s *PebbleStore) SetDatabaseAccessMode(name string, mode AccessMode) error {
	key := databaseKey(name)
	mu := s.lockFor(string(key))
	mu.Lock()
	defer mu.Unlock()

	db, err := s.mem.GetDatabase(name)
	if err != nil {
		return err
	}
	db.Mode = mode
	if err := s.put(key, newDatabaseRecord(db)); err != nil {
		return err
	}
	return s.mem.SetDatabaseAccessMode(name, mode)
}

func (s *PebbleStore) SetTableAccessMode(name TableName, mode AccessMode) error {
	key := tableKey(name)
	mu := s.lockFor(string(key))
	mu.Lock()
	defer mu.Unlock()

	tbl, err := s.mem.GetTable(name)
	if err != nil {
		return err
	}
	tbl.Override = &mode
	if err := s.put(key, newTableRecord(tbl)); err != nil {
		return err
	}
	return s.mem.SetTableAccessMode(name, mode)
}

func (s *PebbleStore) CreateDatabase(db ExternalDatabase) error {
	s.mem.ddlMu.Lock()
	defer s.mem.ddlMu.Unlock()

	if _, ok := s.mem.databases.Load(normalizeName(db.Name)); ok {
		return &AlreadyExistsError{Entry: EntryDatabase, Name: normalizeName(db.Name)}
	}
	if db.CreatedAt.IsZero() {
		db.CreatedAt = time.Now()
	}

	key := databaseKey(db.Name)
	mu := s.lockFor(string(key))
	mu.Lock()
	defer mu.Unlock()

	if err := s.put(key, newDatabaseRecord(db)); err != nil {
		return err
	}
	return s.mem.createDatabaseLocked(db)
}

func (s *PebbleStore) CreateTable(tbl ExternalTable) error {
	s.mem.ddlMu.Lock()
	defer s.mem.ddlMu.Unlock()

	tbl.Name = tbl.Name.Normalize()
	if !tbl.Name.Standalone() {
		if _, ok := s.mem.databases.Load(tbl.Name.Database); !ok {
			return databaseNotFound(tbl.Name.Database)
		}
	}
	if _, ok := s.mem.tables.Load(tbl.Name.key()); ok {
		return &AlreadyExistsError{Entry: EntryTable, Name: tbl.Name.String()}
	}
	if tbl.CreatedAt.IsZero() {
		tbl.CreatedAt = time.Now()
	}

	key := tableKey(tbl.Name)
	mu := s.lockFor(string(key))
	mu.Lock()
	defer mu.Unlock()

	if err := s.put(key, newTableRecord(tbl)); err != nil {
		return err
	}
	return s.mem.createTableLocked(tbl)
}

func (s *PebbleStore) DropDatabase(name string) error {
	s.mem.ddlMu.Lock()
	defer s.mem.ddlMu.Unlock()

	name = normalizeName(name)
	if _, ok := s.mem.databases.Load(name); !ok {
		return databaseNotFound(name)
	}

	for _, k := range s.mem.tableKeysOf(name) {
		if err := s.dropKey(pebblePrefixTable+k, func() { s.mem.tables.Delete(k) }); err != nil {
			return err
		}
	}
	return s.dropKey(string(databaseKey(name)), func() { s.mem.databases.Delete(name) })
}

func (s *PebbleStore) DropTable(name TableName) error {
	s.mem.ddlMu.Lock()
	defer s.mem.ddlMu.Unlock()

	k := name.key()
	if _, ok := s.mem.tables.Load(k); !ok {
		return tableNotFound(name.Normalize())
	}
	return s.dropKey(pebblePrefixTable+k, func() { s.mem.tables.Delete(k) })
}

func (s *PebbleStore) dropKey(key string, publish func()) error {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.delete([]byte(key)); err != nil {
		return err
	}
	publish()
	return nil
}

func (s *PebbleStore) ListDatabases() []ExternalDatabase {
	return s.mem.ListDatabases()
}

func (s *PebbleStore) ListTables() []ExternalTable {
	return s.mem.ListTables()
}

// EntryCounts implements telemetry.CatalogStatsProvider.
func (s *PebbleStore) EntryCounts() []telemetry.EntryCount {
	return s.mem.EntryCounts()
}

// Close flushes and closes the underlying Pebble database. Safe to call twice.
func (s *PebbleStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func newDatabaseRecord(db ExternalDatabase) *databaseRecord {
	return &databaseRecord{
		Name:      normalizeName(db.Name),
		Kind:      string(connector.NormalizeKind(string(db.Kind))),
		Options:   copyOptions(db.Options),
		Mode:      int32(db.Mode),
		CreatedAt: db.CreatedAt.UnixNano(),
	}
}

func (r *databaseRecord) toDatabase() ExternalDatabase {
	return ExternalDatabase{
		Name:      r.Name,
		Kind:      connector.Kind(r.Kind),
		Options:   connector.Options(r.Options),
		Mode:      AccessMode(r.Mode),
		CreatedAt: time.Unix(0, r.CreatedAt),
	}
}

func newTableRecord(tbl ExternalTable) *tableRecord {
	n := tbl.Name.Normalize()
	rec := &tableRecord{
		Database:  n.Database,
		Schema:    n.Schema,
		Table:     n.Table,
		Kind:      string(connector.NormalizeKind(string(tbl.Kind))),
		Options:   copyOptions(tbl.Options),
		Override:  noOverride,
		CreatedAt: tbl.CreatedAt.UnixNano(),
	}
	if mode, ok := tbl.AccessModeOverride(); ok {
		rec.Override = int32(mode)
	}
	return rec
}

func (r *tableRecord) toTable() ExternalTable {
	tbl := ExternalTable{
		Name:      TableName{Database: r.Database, Schema: r.Schema, Table: r.Table},
		Kind:      connector.Kind(r.Kind),
		Options:   connector.Options(r.Options),
		CreatedAt: time.Unix(0, r.CreatedAt),
	}
	if r.Override != noOverride {
		mode := AccessMode(r.Override)
		tbl.Override = &mode
	}
	return tbl
}
