// Package postgres contains the PostgreSQL implementations of the store
// interfaces defined in internal/store. All implementations work over
// store.DBTX so they run equally against a connection pool or a transaction.
package postgres
