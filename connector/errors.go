package connector

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnimplemented is matched by CapabilityUnimplementedError via errors.Is.
	ErrCapabilityUnimplemented = errors.New("mutation not implemented for this table")
	// ErrUnknownKind is returned when opening or declaring an unregistered connector kind.
	ErrUnknownKind = errors.New("unknown connector kind")
)

// CapabilityUnimplementedError reports that a connector kind has no write path
// for a mutation family. It carries no implication about access policy.
type CapabilityUnimplementedError struct {
	Family Family
	Kind   Kind
	Table  string
}

func (e *CapabilityUnimplementedError) Error() string {
	return fmt.Sprintf("%s not implemented for this table: %s (connector %s)", e.Family, e.Table, e.Kind)
}

func (e *CapabilityUnimplementedError) Is(target error) bool {
	return target == ErrCapabilityUnimplemented
}

// UnknownKindError names the kind that was not registered.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown connector kind: %s", e.Kind)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}
