// Package db wires the database connection, the goose migrations and the
// per-entity repositories behind a single manager.
package db

import (
	"context"
	"database/sql"

	"github.com/bloxpvp/robloxlink/internal/server/accounts"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Accounts() accounts.Repository
}
