// Package store defines the persistence interfaces for users and tasks,
// the transaction helpers shared by their implementations, and the store
// errors those implementations return. Store errors wrap the matching
// domain errors, so callers can test them either way with errors.Is.
package store
