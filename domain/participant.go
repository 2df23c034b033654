// Package domain contains core concepts of the chat relay.
// This file defines connection identities and session states.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ConnectionID is the opaque token a transport assigns to a live connection.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (c ConnectionID) String() string {
	return string(c)
}

// Username is the authenticated identity. Comparison is case-sensitive.
type Username string

func (u Username) String() string {
	return string(u)
}

// IsValid reports whether the username can be used as an identity:
// non-empty and free of whitespace or control characters.
func (u Username) IsValid() bool {
	if strings.TrimSpace(string(u)) == "" {
		return false
	}
	for _, r := range string(u) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// SessionState follows Anonymous -> Authenticated -> Closed, never backwards.
type SessionState int

const (
	Anonymous SessionState = iota
	Authenticated
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Anonymous:
		return "ANONYMOUS"
	case Authenticated:
		return "AUTHENTICATED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
