// Package engine routes parsed statements: catalog DDL to the entry store,
// mutations through authorization and then to the executor.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/maxpert/airlock/authz"
	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/executor"
	"github.com/maxpert/airlock/protocol"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Result of one statement
type Result struct {
	Type         protocol.StatementType
	RowsAffected int64
	Databases    []catalog.ExternalDatabase // SHOW EXTERNAL DATABASES
	Tables       []catalog.ExternalTable    // SHOW EXTERNAL TABLES
}

// Options configures an Engine
type Options struct {
	Store    catalog.Store
	Registry *connector.Registry
	Pool     *connector.Pool
	Workers  int // bound for ExecuteAll
}

// Engine executes statements against an external catalog. It is safe for
// concurrent use.
type Engine struct {
	store      catalog.Store
	registry   *connector.Registry
	pool       *connector.Pool
	parser     *protocol.Parser
	binder     *protocol.Binder
	authorizer *authz.Authorizer
	executor   *executor.Executor
	workers    int
}

// New wires an engine from its collaborators
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Registry == nil || opts.Pool == nil {
		return nil, fmt.Errorf("engine requires a store, registry and pool")
	}

	parser, err := protocol.NewParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Engine{
		store:      opts.Store,
		registry:   opts.Registry,
		pool:       opts.Pool,
		parser:     parser,
		binder:     protocol.NewBinder(opts.Store, opts.Pool),
		authorizer: authz.NewAuthorizer(authz.NewResolver(opts.Store)),
		executor:   executor.NewExecutor(opts.Registry, opts.Pool),
		workers:    workers,
	}, nil
}

// Execute parses and runs one statement
func (e *Engine) Execute(ctx context.Context, sql string) (*Result, error) {
	stmt, err := e.parser.Parse(sql)
	if err != nil {
		telemetry.StatementsTotal.With(protocol.StatementUnknown.String(), "error").Inc()
		return nil, err
	}

	res, err := e.run(ctx, stmt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.StatementsTotal.With(stmt.Type.String(), result).Inc()

	return res, err
}

// StatementResult pairs a result with its error for ExecuteAll
type StatementResult struct {
	Result *Result
	Err    error
}

// ExecuteAll runs statements concurrently on at most Workers goroutines.
// Results are returned in input order; one statement failing does not stop
// the others.
func (e *Engine) ExecuteAll(ctx context.Context, sqls []string) []StatementResult {
	out := make([]StatementResult, len(sqls))

	// Statement failures are results; the group only bounds concurrency.
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, sql := range sqls {
		g.Go(func() error {
			res, err := e.Execute(ctx, sql)
			out[i] = StatementResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Engine) run(ctx context.Context, stmt *protocol.Statement) (*Result, error) {
	switch stmt.Type {
	case protocol.StatementCreateDatabase:
		return e.createDatabase(stmt)
	case protocol.StatementCreateTable:
		return e.createTable(stmt)
	case protocol.StatementAlterDatabase:
		return e.alterDatabase(stmt)
	case protocol.StatementAlterTable:
		return e.alterTable(stmt)
	case protocol.StatementDropDatabase:
		return e.dropDatabase(stmt)
	case protocol.StatementDropTable:
		return e.dropTables(stmt)
	case protocol.StatementShowDatabases:
		return &Result{Type: stmt.Type, Databases: e.store.ListDatabases()}, nil
	case protocol.StatementShowTables:
		return &Result{Type: stmt.Type, Tables: e.store.ListTables()}, nil
	case protocol.StatementInsert, protocol.StatementUpdate, protocol.StatementDelete:
		return e.mutate(ctx, stmt)
	default:
		return nil, protocol.ErrUnsupportedStatement
	}
}

// mutate binds, authorizes and executes. Policy is always checked before the
// connector's capability.
func (e *Engine) mutate(ctx context.Context, stmt *protocol.Statement) (*Result, error) {
	bound, err := e.binder.Bind(stmt.Mutation)
	if err != nil {
		authz.Observe(err)
		return nil, err
	}

	req := authz.Request{Family: bound.Family, Table: bound.Target.Table}
	if err := e.authorizer.Authorize(req); err != nil {
		authz.Observe(err)
		return nil, err
	}

	res, err := e.executor.Execute(ctx, bound)
	outcome := authz.Observe(err)
	log.Debug().
		Str("table", bound.Target.Table.String()).
		Str("family", bound.Family.Label()).
		Str("outcome", outcome.String()).
		Int64("rows", res.RowsAffected).
		Msg("Mutation finished")
	if err != nil {
		return nil, err
	}

	return &Result{Type: stmt.Type, RowsAffected: res.RowsAffected}, nil
}

func (e *Engine) createDatabase(stmt *protocol.Statement) (*Result, error) {
	if !e.registry.Known(stmt.Kind) {
		return nil, &connector.UnknownKindError{Kind: stmt.Kind}
	}

	err := e.store.CreateDatabase(catalog.ExternalDatabase{
		Name:    stmt.Database,
		Kind:    stmt.Kind,
		Options: stmt.Options,
		Mode:    catalog.ReadOnly,
	})
	if stmt.IfNotExists && errors.Is(err, catalog.ErrAlreadyExists) {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("database", stmt.Database).Str("kind", string(stmt.Kind)).Msg("External database created")
	return &Result{Type: stmt.Type}, nil
}

func (e *Engine) createTable(stmt *protocol.Statement) (*Result, error) {
	if !e.registry.Known(stmt.Kind) {
		return nil, &connector.UnknownKindError{Kind: stmt.Kind}
	}

	name := stmt.Tables[0]
	err := e.store.CreateTable(catalog.ExternalTable{
		Name:    name,
		Kind:    stmt.Kind,
		Options: stmt.Options,
	})
	if stmt.IfNotExists && errors.Is(err, catalog.ErrAlreadyExists) {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("table", name.String()).Str("kind", string(stmt.Kind)).Msg("External table created")
	return &Result{Type: stmt.Type}, nil
}

func (e *Engine) alterDatabase(stmt *protocol.Statement) (*Result, error) {
	if err := e.store.SetDatabaseAccessMode(stmt.Database, stmt.Mode); err != nil {
		return nil, err
	}

	telemetry.AccessModeChangesTotal.With(string(catalog.EntryDatabase), stmt.Mode.String()).Inc()
	log.Info().Str("database", stmt.Database).Str("mode", stmt.Mode.String()).Msg("Database access mode changed")
	return &Result{Type: stmt.Type}, nil
}

func (e *Engine) alterTable(stmt *protocol.Statement) (*Result, error) {
	name := stmt.Tables[0]
	if err := e.store.SetTableAccessMode(name, stmt.Mode); err != nil {
		return nil, err
	}

	telemetry.AccessModeChangesTotal.With(string(catalog.EntryTable), stmt.Mode.String()).Inc()
	log.Info().Str("table", name.String()).Str("mode", stmt.Mode.String()).Msg("Table access mode changed")
	return &Result{Type: stmt.Type}, nil
}

func (e *Engine) dropDatabase(stmt *protocol.Statement) (*Result, error) {
	var tables []catalog.TableName
	for _, tbl := range e.store.ListTables() {
		if tbl.Name.Database == stmt.Database {
			tables = append(tables, tbl.Name)
		}
	}

	err := e.store.DropDatabase(stmt.Database)
	if stmt.IfExists && errors.Is(err, catalog.ErrNotFound) {
		return &Result{Type: stmt.Type}, nil
	}
	if err != nil {
		return nil, err
	}

	e.pool.Remove(protocol.DatabasePoolKey(stmt.Database))
	for _, name := range tables {
		e.pool.Remove(protocol.TablePoolKey(name))
	}

	log.Info().Str("database", stmt.Database).Int("tables", len(tables)).Msg("External database dropped")
	return &Result{Type: stmt.Type}, nil
}

// dropTables checks every name before removing any, so a missing name
// without IF EXISTS leaves the catalog unchanged.
func (e *Engine) dropTables(stmt *protocol.Statement) (*Result, error) {
	var existing []catalog.TableName
	for _, name := range stmt.Tables {
		_, err := e.store.GetTable(name)
		switch {
		case err == nil:
			existing = append(existing, name)
		case errors.Is(err, catalog.ErrNotFound) && stmt.IfExists:
		default:
			return nil, err
		}
	}

	for _, name := range existing {
		err := e.store.DropTable(name)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		e.pool.Remove(protocol.TablePoolKey(name))
		log.Info().Str("table", name.String()).Msg("External table dropped")
	}

	return &Result{Type: stmt.Type}, nil
}

// Store returns the catalog the engine writes to
func (e *Engine) Store() catalog.Store {
	return e.store
}

// Close releases pooled connectors. The store is owned by the caller.
func (e *Engine) Close() {
	e.pool.Close()
}

// SetDatabaseAccessMode applies ALTER DATABASE ... SET ACCESS_MODE
func (e *Engine) SetDatabaseAccessMode(name string, mode catalog.AccessMode) error {
	_, err := e.alterDatabase(&protocol.Statement{
		Type:     protocol.StatementAlterDatabase,
		Database: catalog.Normalize(name),
		Mode:     mode,
	})
	return err
}

// SetTableAccessMode applies ALTER TABLE ... SET ACCESS_MODE
func (e *Engine) SetTableAccessMode(name catalog.TableName, mode catalog.AccessMode) error {
	_, err := e.alterTable(&protocol.Statement{
		Type:   protocol.StatementAlterTable,
		Tables: []catalog.TableName{name.Normalize()},
		Mode:   mode,
	})
	return err
}

// Registry returns the connector kinds the engine accepts
func (e *Engine) Registry() *connector.Registry {
	return e.registry
}

// OpenConnectors reports connector instances currently pooled
func (e *Engine) OpenConnectors() int {
	return e.pool.Len()
}
