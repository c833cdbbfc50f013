// Package stores provides the persistence layer for the generation ledger.
// It includes SQLite-based storage with WAL mode, embedded schema migrations,
// and CRUD operations for generations, activations, and events.
package stores
