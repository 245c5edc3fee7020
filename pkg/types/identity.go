package types

import "strings"

// Identity is the caller identity attributed to an operation by the execution
// environment. It is opaque to the registries; the only normalization applied
// is whitespace trimming.
type Identity string

// NoIdentity is the zero identity ("none").
const NoIdentity Identity = ""

const maxIdentityLen = 128

// ParseIdentity trims the raw value and reports whether it is a usable identity.
func ParseIdentity(raw string) (Identity, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxIdentityLen {
		return NoIdentity, false
	}
	return Identity(trimmed), true
}

func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether the identity is "none".
func (i Identity) IsZero() bool {
	return i == NoIdentity
}

// Ptr returns nil for the zero identity, which maps to a NULL column.
func (i Identity) Ptr() *string {
	if i.IsZero() {
		return nil
	}
	s := string(i)
	return &s
}

// IdentityFromPtr is the inverse of Ptr.
func IdentityFromPtr(value *string) Identity {
	if value == nil {
		return NoIdentity
	}
	return Identity(*value)
}
