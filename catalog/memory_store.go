package catalog

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
)

// noOverride marks a table entry that inherits its database mode.
const noOverride int32 = -1

// databaseEntry keeps immutable definition fields next to an atomic mode.
type databaseEntry struct {
	def  ExternalDatabase
	mode atomic.Int32
}

func (e *databaseEntry) snapshot() ExternalDatabase {
	db := e.def
	db.Mode = AccessMode(e.mode.Load())
	return db
}

type tableEntry struct {
	def      ExternalTable
	override atomic.Int32
}

func (e *tableEntry) snapshot() ExternalTable {
	tbl := e.def
	tbl.Override = nil
	if v := e.override.Load(); v != noOverride {
		mode := AccessMode(v)
		tbl.Override = &mode
	}
	return tbl
}

// MemoryStore is a process-lifetime Store backed by xsync maps.
type MemoryStore struct {
	databases *xsync.MapOf[string, *databaseEntry]
	tables    *xsync.MapOf[string, *tableEntry]

	// ddlMu serializes create and drop so a table never outlives its database.
	// Mode changes do not take it.
	ddlMu sync.Mutex
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		databases: xsync.NewMapOf[string, *databaseEntry](),
		tables:    xsync.NewMapOf[string, *tableEntry](),
	}
}

func (s *MemoryStore) GetDatabase(name string) (ExternalDatabase, error) {
	e, ok := s.databases.Load(normalizeName(name))
	if !ok {
		return ExternalDatabase{}, databaseNotFound(name)
	}
	return e.snapshot(), nil
}

func (s *MemoryStore) GetTable(name TableName) (ExternalTable, error) {
	e, ok := s.tables.Load(name.key())
	if !ok {
		return ExternalTable{}, tableNotFound(name.Normalize())
	}
	return e.snapshot(), nil
}

func (s *MemoryStore) SetDatabaseAccessMode(name string, mode AccessMode) error {
	e, ok := s.databases.Load(normalizeName(name))
	if !ok {
		return databaseNotFound(name)
	}
	e.mode.Store(int32(mode))
	return nil
}

func (s *MemoryStore) SetTableAccessMode(name TableName, mode AccessMode) error {
	e, ok := s.tables.Load(name.key())
	if !ok {
		return tableNotFound(name.Normalize())
	}
	e.override.Store(int32(mode))
	return nil
}

func (s *MemoryStore) CreateDatabase(db ExternalDatabase) error {
	s.ddlMu.Lock()
	defer s.ddlMu.Unlock()
	return s.createDatabaseLocked(db)
}

func (s *MemoryStore) createDatabaseLocked(db ExternalDatabase) error {
	db.Name = normalizeName(db.Name)
	db.Kind = connector.NormalizeKind(string(db.Kind))
	db.Options = copyOptions(db.Options)
	if db.CreatedAt.IsZero() {
		db.CreatedAt = time.Now()
	}

	e := &databaseEntry{def: db}
	e.mode.Store(int32(db.Mode))
	if _, loaded := s.databases.LoadOrStore(db.Name, e); loaded {
		return &AlreadyExistsError{Entry: EntryDatabase, Name: db.Name}
	}
	return nil
}

func (s *MemoryStore) CreateTable(tbl ExternalTable) error {
	s.ddlMu.Lock()
	defer s.ddlMu.Unlock()
	return s.createTableLocked(tbl)
}

func (s *MemoryStore) createTableLocked(tbl ExternalTable) error {
	tbl.Name = tbl.Name.Normalize()
	tbl.Kind = connector.NormalizeKind(string(tbl.Kind))
	tbl.Options = copyOptions(tbl.Options)
	if tbl.CreatedAt.IsZero() {
		tbl.CreatedAt = time.Now()
	}

	if !tbl.Name.Standalone() {
		if _, ok := s.databases.Load(tbl.Name.Database); !ok {
			return databaseNotFound(tbl.Name.Database)
		}
	}

	e := &tableEntry{def: tbl}
	e.override.Store(noOverride)
	if mode, ok := tbl.AccessModeOverride(); ok {
		e.override.Store(int32(mode))
	}
	e.def.Override = nil

	if _, loaded := s.tables.LoadOrStore(tbl.Name.key(), e); loaded {
		return &AlreadyExistsError{Entry: EntryTable, Name: tbl.Name.String()}
	}
	return nil
}

// DropDatabase removes the database and every table registered under it.
func (s *MemoryStore) DropDatabase(name string) error {
	s.ddlMu.Lock()
	defer s.ddlMu.Unlock()

	name = normalizeName(name)
	if _, ok := s.databases.LoadAndDelete(name); !ok {
		return databaseNotFound(name)
	}
	for _, key := range s.tableKeysOf(name) {
		s.tables.Delete(key)
	}
	return nil
}

func (s *MemoryStore) DropTable(name TableName) error {
	s.ddlMu.Lock()
	defer s.ddlMu.Unlock()

	if _, ok := s.tables.LoadAndDelete(name.key()); !ok {
		return tableNotFound(name.Normalize())
	}
	return nil
}

// tableKeysOf returns the keys of tables registered under database.
func (s *MemoryStore) tableKeysOf(database string) []string {
	var keys []string
	s.tables.Range(func(key string, e *tableEntry) bool {
		if e.def.Name.Database == database {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// ListDatabases returns a snapshot of every database, sorted by name.
func (s *MemoryStore) ListDatabases() []ExternalDatabase {
	out := make([]ExternalDatabase, 0, s.databases.Size())
	s.databases.Range(func(_ string, e *databaseEntry) bool {
		out = append(out, e.snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListTables returns a snapshot of every table, sorted by qualified name.
func (s *MemoryStore) ListTables() []ExternalTable {
	out := make([]ExternalTable, 0, s.tables.Size())
	s.tables.Range(func(_ string, e *tableEntry) bool {
		out = append(out, e.snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name.key() < out[j].Name.key() })
	return out
}

// EntryCounts implements telemetry.CatalogStatsProvider.
func (s *MemoryStore) EntryCounts() []telemetry.EntryCount {
	counts := map[EntryType]map[string]int{
		EntryDatabase: {ReadOnly.String(): 0, ReadWrite.String(): 0},
		EntryTable:    {ReadOnly.String(): 0, ReadWrite.String(): 0, "INHERIT": 0},
	}

	s.databases.Range(func(_ string, e *databaseEntry) bool {
		counts[EntryDatabase][AccessMode(e.mode.Load()).String()]++
		return true
	})
	s.tables.Range(func(_ string, e *tableEntry) bool {
		if v := e.override.Load(); v == noOverride {
			counts[EntryTable]["INHERIT"]++
		} else {
			counts[EntryTable][AccessMode(v).String()]++
		}
		return true
	})

	var out []telemetry.EntryCount
	for entry, modes := range counts {
		for mode, n := range modes {
			out = append(out, telemetry.EntryCount{Entry: string(entry), Mode: mode, Count: n})
		}
	}
	return out
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyOptions(opts connector.Options) connector.Options {
	out := make(connector.Options, len(opts))
	for k, v := range opts {
		out[normalizeName(k)] = v
	}
	return out
}
