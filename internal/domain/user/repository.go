package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/buddyspace/buddyspace-api/internal/pkg/errorhandler"
)

// Repository provides sqlx-backed access to the users table
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates user repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, bio, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash,
		u.FirstName, u.LastName, u.Bio, u.AvatarURL,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "username") {
				return ErrUsernameExists
			}
			return ErrEmailExists
		}
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

// GetByID returns a user by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	query := `SELECT * FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByUsername returns a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	query := `SELECT * FROM users WHERE username = $1`
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	query := `SELECT * FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update updates mutable profile fields. Username never changes.
func (r *Repository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, bio = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.FirstName, u.LastName, u.Bio)
	if err != nil {
		errorhandler.LogDatabaseError(ctx, "user.Update", err)
		return fmt.Errorf("user repository update: %w", err)
	}
	return nil
}

// UpdateAvatar sets the avatar URL
func (r *Repository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	query := `UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, avatarURL)
	if err != nil {
		errorhandler.LogDatabaseError(ctx, "user.UpdateAvatar", err)
	}
	return err
}

// Search returns users whose username or name matches the query, paginated
func (r *Repository) Search(ctx context.Context, q string, limit, offset int) ([]*User, error) {
	var users []*User
	query := `
		SELECT * FROM users
		WHERE username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY username ASC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &users, query, "%"+q+"%", limit, offset)
	return users, err
}
