package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a user account with its public profile.
// Username is unique and immutable after registration.
type User struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FirstName    sql.NullString `db:"first_name" json:"first_name"`
	LastName     sql.NullString `db:"last_name" json:"last_name"`
	Bio          sql.NullString `db:"bio" json:"bio"`
	AvatarURL    sql.NullString `db:"avatar_url" json:"avatar_url"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// DisplayName returns "First Last" falling back to the username
func (u *User) DisplayName() string {
	if u.FirstName.Valid && u.FirstName.String != "" {
		if u.LastName.Valid && u.LastName.String != "" {
			return u.FirstName.String + " " + u.LastName.String
		}
		return u.FirstName.String
	}
	return u.Username
}
