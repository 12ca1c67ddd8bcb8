package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/msomdec/conduit/internal/domain"
)

const userColumns = `id, username, email, password_hash, bio, image, created_at, updated_at`

type userRow struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Bio          sql.NullString `db:"bio"`
	Image        sql.NullString `db:"image"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Bio:          nullableString(r.Bio),
		Image:        nullableString(r.Image),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// userRepo implements domain.UserRepository.
type userRepo struct {
	db *sqlx.DB
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO users (username, email, password_hash, bio, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		user.Username, user.Email, user.PasswordHash, user.Bio, user.Image, now, now,
	).Scan(&user.ID)
	if err != nil {
		if dup := duplicateUserError(err); dup != nil {
			return dup
		}
		return wrapErr("insert user", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE users SET username = ?, email = ?, password_hash = ?, bio = ?, image = ?, updated_at = ?
		 WHERE id = ?`),
		user.Username, user.Email, user.PasswordHash, user.Bio, user.Image, now, user.ID,
	)
	if err != nil {
		if dup := duplicateUserError(err); dup != nil {
			return dup
		}
		return wrapErr("update user", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	user.UpdatedAt = now
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "query user by id", `WHERE id = ?`, id)
}

func (r *userRepo) GetByIDAndEmail(ctx context.Context, id int64, email string) (*domain.User, error) {
	return r.getOne(ctx, "query user by id and email", `WHERE id = ? AND email = ?`, id, email)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "query user by username", `WHERE username = ?`, username)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "query user by email", `WHERE email = ?`, email)
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "count users by username", `username = ?`, username, excludeID)
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "count users by email", `email = ?`, email, excludeID)
}

func (r *userRepo) getOne(ctx context.Context, op, where string, args ...any) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+userColumns+` FROM users `+where), args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return row.toDomain(), nil
}

func (r *userRepo) exists(ctx context.Context, op, cond string, value string, excludeID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind(`SELECT COUNT(*) FROM users WHERE `+cond+` AND id <> ?`), value, excludeID)
	if err != nil {
		return false, wrapErr(op, err)
	}
	return count > 0, nil
}

func duplicateUserError(err error) error {
	target, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(target, "email"):
		return domain.ErrDuplicateEmail
	case strings.Contains(target, "username"):
		return domain.ErrDuplicateUsername
	default:
		return domain.ErrConflict
	}
}
