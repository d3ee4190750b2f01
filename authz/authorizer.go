package authz

import (
	"errors"
	"fmt"

	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
)

// ErrPolicyDenied is matched by PolicyDeniedError via errors.Is.
var ErrPolicyDenied = errors.New("not allowed to write")

// PolicyDeniedError reports that the effective access mode of the target is
// READ_ONLY. It is raised before any connector capability is considered.
type PolicyDeniedError struct {
	Family connector.Family
	Table  catalog.TableName
	Source Source
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("Not allowed to write into table %s: access mode is %s (set on %s)",
		e.Table, catalog.ReadOnly, e.governedBy())
}

func (e *PolicyDeniedError) Is(target error) bool {
	return target == ErrPolicyDenied
}

func (e *PolicyDeniedError) governedBy() string {
	switch e.Source {
	case SourceTable:
		return "table " + e.Table.String()
	case SourceDatabase:
		return "database " + e.Table.Database
	default:
		return "standalone table default"
	}
}

// Request is a bound mutating statement as seen by the authorizer.
type Request struct {
	Family connector.Family
	Table  catalog.TableName
}

// Authorizer is the gate every mutating statement passes before execution.
// It keeps no state between calls.
type Authorizer struct {
	resolver *Resolver
}

// NewAuthorizer creates an authorizer backed by resolver.
func NewAuthorizer(resolver *Resolver) *Authorizer {
	return &Authorizer{resolver: resolver}
}

// Authorize returns nil when the target is writable, a *PolicyDeniedError when
// its effective mode is READ_ONLY, or the resolver's lookup error unchanged.
func (a *Authorizer) Authorize(req Request) error {
	mode, source, err := a.resolver.Resolve(req.Table)
	if err != nil {
		return err
	}

	if mode != catalog.ReadWrite {
		log.Debug().
			Str("table", req.Table.String()).
			Str("family", req.Family.Label()).
			Str("source", source.String()).
			Msg("Write denied by access mode")
		return &PolicyDeniedError{Family: req.Family, Table: req.Table.Normalize(), Source: source}
	}

	log.Debug().
		Str("table", req.Table.String()).
		Str("family", req.Family.Label()).
		Str("source", source.String()).
		Msg("Write allowed by access mode")
	return nil
}

// Outcome is the closed set of results for a mutating statement.
type Outcome int

const (
	OutcomeAllowed Outcome = iota
	OutcomePolicyDenied
	OutcomeCapabilityUnimplemented
	OutcomeNotFound
	OutcomeExecutionFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomePolicyDenied:
		return "policy_denied"
	case OutcomeCapabilityUnimplemented:
		return "capability_unimplemented"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "execution_failed"
	}
}

// OutcomeOf classifies the error returned for a mutating statement.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAllowed
	case errors.Is(err, ErrPolicyDenied):
		return OutcomePolicyDenied
	case errors.Is(err, connector.ErrCapabilityUnimplemented):
		return OutcomeCapabilityUnimplemented
	case errors.Is(err, catalog.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeExecutionFailed
	}
}

// Observe counts the final outcome of a mutating statement and returns it.
func Observe(err error) Outcome {
	o := OutcomeOf(err)
	telemetry.AuthorizationDecisionsTotal.With(o.String()).Inc()
	return o
}
