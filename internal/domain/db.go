package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation owns its own migration files and strategy.
type Database interface {
	Migrate(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
