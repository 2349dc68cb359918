// Package postgres provides the PostgreSQL implementations of the store
// interfaces: users, tasks with their performers, and the notification job
// table used by the background runner. It also embeds the goose migrations
// that create that schema.
//
// Stores accept a store.DBTX so the same code runs against a *sql.DB or
// inside a transaction obtained through WithTx or store.InTx.
package postgres
