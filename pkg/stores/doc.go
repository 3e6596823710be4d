// Package stores provides persistence for Plugmatrix resolution results.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and embedded schema migrations for recording runs and the ordered
// plugin configurations each run produced.
package stores
