package store

import "errors"

// ErrNotFound is returned when a referenced assignment or mistake record
// does not exist. Identifiers are validated before any write so a dangling
// reference can never be persisted.
var ErrNotFound = errors.New("not found")
