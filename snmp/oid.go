package snmp

import (
	"strconv"
	"strings"
)

// OID represents an SNMP Object Identifier as a sequence of unsigned
// sub-identifiers. A valid OID always begins with the iso.org prefix,
// sub-identifiers 1 and 3.
type OID []uint32

// maxSubIdentifier is the largest value a single sub-identifier may hold
// (31-bit non-negative, per the wire encoding rules).
const maxSubIdentifier = 0x7FFFFFFF

// ParseOID parses a dotted-decimal OID string. A leading dot is optional
// on input; the canonical String() form always includes it. The first
// two components must be 1 and 3 (the iso.org prefix) and every
// component must fit in 31 bits.
func ParseOID(s string) (OID, error) {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, ErrInvalidOID
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, ErrInvalidOID
	}

	oid := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, ErrInvalidOID
		}
		if n > maxSubIdentifier {
			return nil, ErrInvalidOID
		}
		oid[i] = uint32(n)
	}

	if oid[0] != 1 || oid[1] != 3 {
		return nil, ErrInvalidOID
	}

	return oid, nil
}

// MustParseOID parses an OID string and panics on error. Intended for
// package-level OID constants, not for handling agent input.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String returns the canonical dotted-decimal form, with a leading dot.
func (o OID) String() string {
	if len(o) == 0 {
		return ""
	}
	parts := make([]string, len(o))
	for i, n := range o {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return "." + strings.Join(parts, ".")
}

// Equal reports whether two OIDs name the same node.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i, n := range o {
		if n != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether o begins with prefix. An OID counts as a
// prefix of itself.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}
	for i, n := range prefix {
		if n != o[i] {
			return false
		}
	}
	return true
}

// HasStrictPrefix reports whether o lies strictly under prefix, i.e. o
// begins with prefix followed by at least one more sub-identifier. This
// is the "address begins with base_oid + '.'" test the sub-tree walk
// relies on.
func (o OID) HasStrictPrefix(prefix OID) bool {
	return len(o) > len(prefix) && o.HasPrefix(prefix)
}

// Copy returns an independent copy of the OID.
func (o OID) Copy() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}

// IsValid reports whether the OID carries the mandatory iso.org prefix
// and has at least two components.
func (o OID) IsValid() bool {
	return len(o) >= 2 && o[0] == 1 && o[1] == 3
}
