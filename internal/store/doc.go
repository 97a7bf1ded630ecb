// Package store provides abstractions for data persistence. It defines the
// store interfaces consumed by the service layer, the shared sentinel
// errors, and the transaction helper. Concrete implementations live in
// internal/platform/postgres.
package store
