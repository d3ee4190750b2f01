// Package executor performs authorized writes against connectors.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/protocol"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
)

// ExecutionError wraps a failure reported by the connector's write path
type ExecutionError struct {
	Kind  connector.Kind
	Table string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s connector failed writing %s: %v", e.Kind, e.Table, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Result of a write
type Result struct {
	RowsAffected int64
}

// Executor dispatches authorized mutations to their connector. It must only
// be handed mutations that passed authorization.
type Executor struct {
	caps connector.CapabilityProvider
	pool *connector.Pool
}

// NewExecutor creates an executor consulting caps before opening connectors from pool
func NewExecutor(caps connector.CapabilityProvider, pool *connector.Pool) *Executor {
	return &Executor{caps: caps, pool: pool}
}

// Execute returns a *connector.CapabilityUnimplementedError when the target's
// connector kind has no write path for the mutation family, and an
// *ExecutionError when the connector fails.
func (e *Executor) Execute(ctx context.Context, m *protocol.BoundMutation) (Result, error) {
	target := m.Target
	if !e.caps.Supports(target.Kind, m.Family) {
		return Result{}, &connector.CapabilityUnimplementedError{
			Family: m.Family,
			Kind:   target.Kind,
			Table:  target.Table.String(),
		}
	}

	conn, release, err := e.pool.Acquire(target.PoolKey, target.Kind, target.Options)
	if err != nil {
		return Result{}, &ExecutionError{Kind: target.Kind, Table: target.Table.String(), Err: err}
	}
	defer release()

	start := time.Now()
	n, err := dispatch(ctx, conn, m)
	telemetry.MutationDurationSeconds.With(m.Family.Label()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Debug().Err(err).Str("table", target.Table.String()).Str("kind", string(target.Kind)).Msg("Connector write failed")
		return Result{}, &ExecutionError{Kind: target.Kind, Table: target.Table.String(), Err: err}
	}

	telemetry.RowsAffectedTotal.With(string(target.Kind)).Add(float64(n))
	return Result{RowsAffected: n}, nil
}

func dispatch(ctx context.Context, conn connector.Connector, m *protocol.BoundMutation) (int64, error) {
	table := m.Target.Table.Table

	switch m.Family {
	case connector.FamilyInsert:
		if w, ok := conn.(connector.Inserter); ok {
			return w.Insert(ctx, &connector.InsertRequest{Table: table, Columns: m.Columns, Rows: m.Rows})
		}
	case connector.FamilyUpdate:
		if w, ok := conn.(connector.Updater); ok {
			return w.Update(ctx, &connector.StatementRequest{Table: table, Render: m.Render})
		}
	case connector.FamilyDelete:
		if w, ok := conn.(connector.Deleter); ok {
			return w.Delete(ctx, &connector.StatementRequest{Table: table, Render: m.Render})
		}
	}

	// Registry.Open verifies declared families, so this only trips on a
	// provider that disagrees with the registry.
	return 0, &connector.CapabilityUnimplementedError{Family: m.Family, Kind: conn.Kind(), Table: m.Target.Table.String()}
}
