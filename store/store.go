// Package store defines the aggregate persistence interface. Each subsystem
// (role, assignment, modlog) defines its own store interface and the
// composite Store composes them. Backends: Postgres, SQLite, MongoDB and
// Memory.
package store

import (
	"context"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
)

// Store is the aggregate persistence interface.
// A single backend implements all of the subsystem stores.
type Store interface {
	role.Store
	assignment.Store
	modlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
