package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/msomdec/conduit/internal/domain"
)

const pgUniqueViolation = "23505"

// wrapErr annotates err with op. Pool exhaustion and cancelled contexts are
// reported as domain.ErrUnavailable; missing rows as domain.ErrNotFound.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// uniqueViolation reports whether err is a unique constraint failure and, if
// so, returns the constraint or column description the driver gave.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.Code == pgUniqueViolation
	}

	const sqliteMarker = "UNIQUE constraint failed: "
	msg := err.Error()
	if i := strings.Index(msg, sqliteMarker); i >= 0 {
		return msg[i+len(sqliteMarker):], true
	}
	return "", false
}
