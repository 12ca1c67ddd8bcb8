// Package sqldb implements the domain repositories on top of database/sql.
// SQLite (modernc.org/sqlite) is the default store; a postgres:// URL selects
// Postgres through the pgx stdlib driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/repository/sqldb/migrations"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var _ domain.Database = (*DB)(nil)

// DB owns the connection pool and hands out repositories bound to it.
type DB struct {
	conn    *sqlx.DB
	dialect string
}

// Options tune the connection pool.
type Options struct {
	MaxOpenConns int
}

// New opens the database identified by databaseURL. URLs starting with
// postgres:// or postgresql:// use Postgres; anything else is a SQLite path.
func New(databaseURL string, opts Options) (*DB, error) {
	dialect, driver, dsn := resolve(databaseURL)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns(dialect)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{conn: db, dialect: dialect}, nil
}

// NewFromDB wraps an already opened handle. dialect must be DialectSQLite or
// DialectPostgres.
func NewFromDB(db *sql.DB, dialect string) *DB {
	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}
	return &DB{conn: sqlx.NewDb(db, driver), dialect: dialect}
}

func resolve(databaseURL string) (dialect, driver, dsn string) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DialectPostgres, "pgx", databaseURL
	}

	path := strings.TrimPrefix(databaseURL, "sqlite://")
	// Pragmas go in the DSN so that every pooled connection gets them.
	pragmas := "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if strings.Contains(path, "?") {
		return DialectSQLite, "sqlite", path + "&" + pragmas
	}
	return DialectSQLite, "sqlite", path + "?" + pragmas
}

func defaultMaxOpenConns(dialect string) int {
	if dialect == DialectSQLite {
		return 1
	}
	return 10
}

// Dialect reports which SQL dialect the pool speaks.
func (db *DB) Dialect() string {
	return db.dialect
}

func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.conn.DB, db.dialect)
}

// MigrationVersion returns the highest applied schema version.
func (db *DB) MigrationVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, db.conn.DB, db.dialect)
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() domain.UserRepository {
	return &userRepo{db: db.conn}
}

func (db *DB) Articles() domain.ArticleRepository {
	return &articleRepo{db: db.conn, placeholder: db.placeholder()}
}

func (db *DB) Comments() domain.CommentRepository {
	return &commentRepo{db: db.conn}
}

func (db *DB) Relationships() domain.RelationshipRepository {
	return &relationshipRepo{db: db.conn}
}

func (db *DB) placeholder() sq.PlaceholderFormat {
	if db.dialect == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}
