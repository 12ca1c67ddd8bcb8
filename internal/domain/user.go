package domain

import (
	"context"
	"time"
)

// User represents a registered author or reader.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Bio          *string
	Image        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a user relative to some viewer.
type Profile struct {
	Username  string
	Bio       *string
	Image     *string
	Following bool
}

// Profile builds the public view of u with the given follow state.
func (u *User) Profile(following bool) Profile {
	return Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Bio      *string
	Image    *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDAndEmail(ctx context.Context, id int64, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
}
