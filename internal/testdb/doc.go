// Package testdb provides database helpers for integration tests: a migrated
// connection taken from DATABASE_URL, per-test transactions that always roll
// back, and fixture constructors for users and tasks.
package testdb
