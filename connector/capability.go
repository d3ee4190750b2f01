// Package connector describes external data source implementations: which
// mutation families a connector kind implements, how instances are opened,
// and the optional write interfaces an instance exposes.
//
// Capabilities are declared statically when a kind registers. Looking one up
// never opens a connection or contacts the external system.
package connector

import "strings"

// Kind tags a connector implementation family, e.g. "debug" or "sqlite".
type Kind string

// NormalizeKind lower-cases and trims a kind tag as written in a statement.
func NormalizeKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Family is a mutating operation family.
type Family int

const (
	FamilyInsert Family = iota
	FamilyUpdate
	FamilyDelete
)

// String returns the operation name used in capability error messages.
func (f Family) String() string {
	switch f {
	case FamilyInsert:
		return "Insert into"
	case FamilyUpdate:
		return "Update"
	case FamilyDelete:
		return "Delete"
	default:
		return "Unknown mutation"
	}
}

// Label returns the lower-case metric label for the family.
func (f Family) Label() string {
	switch f {
	case FamilyInsert:
		return "insert"
	case FamilyUpdate:
		return "update"
	case FamilyDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Capabilities is a set of implemented mutation families, one bit per family.
type Capabilities uint8

// ReadOnlyCapabilities is the empty set: the kind implements scans only.
const ReadOnlyCapabilities Capabilities = 0

// TableListing marks kinds whose instances implement TableLister. It is not
// a mutation family and is never reported by Families.
const TableListing Capabilities = 1 << 7

// NewCapabilities builds a capability set from families.
func NewCapabilities(families ...Family) Capabilities {
	var c Capabilities
	for _, f := range families {
		c |= 1 << uint(f)
	}
	return c
}

// Supports reports whether the set contains the family.
func (c Capabilities) Supports(f Family) bool {
	return c&(1<<uint(f)) != 0
}

// Families lists the families in the set in declaration order.
func (c Capabilities) Families() []Family {
	var out []Family
	for _, f := range []Family{FamilyInsert, FamilyUpdate, FamilyDelete} {
		if c.Supports(f) {
			out = append(out, f)
		}
	}
	return out
}

// ListsTables reports whether instances enumerate their tables.
func (c Capabilities) ListsTables() bool {
	return c&TableListing != 0
}

// CapabilityProvider answers whether a connector kind implements a mutation family.
type CapabilityProvider interface {
	Supports(kind Kind, family Family) bool
}
