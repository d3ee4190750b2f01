package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by NotFoundError via errors.Is.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrAlreadyExists is matched by AlreadyExistsError via errors.Is.
	ErrAlreadyExists = errors.New("catalog entry already exists")
)

// EntryType names the kind of catalog entry in errors and metrics.
type EntryType string

const (
	EntryDatabase EntryType = "database"
	EntryTable    EntryType = "table"
)

// NotFoundError is returned when a lookup names an entry that does not exist.
type NotFoundError struct {
	Entry EntryType
	Name  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("external %s not found: %s", e.Entry, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError is returned when creating an entry under a taken name.
type AlreadyExistsError struct {
	Entry EntryType
	Name  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("external %s already exists: %s", e.Entry, e.Name)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

func databaseNotFound(name string) error {
	return &NotFoundError{Entry: EntryDatabase, Name: name}
}

func tableNotFound(name TableName) error {
	return &NotFoundError{Entry: EntryTable, Name: name.String()}
}
