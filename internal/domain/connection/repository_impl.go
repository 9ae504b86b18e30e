package connection

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/buddyspace/buddyspace-api/internal/pkg/errorhandler"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new connection repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByPair(ctx context.Context, userID, connectionID uuid.UUID) (*Connection, error) {
	query := `SELECT * FROM user_connections WHERE user_id = $1 AND connection_id = $2`
	var conn Connection
	err := r.db.GetContext(ctx, &conn, query, userID, connectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *repository) FindAllByUserAndStatus(ctx context.Context, userID uuid.UUID, status Status) ([]*Connection, error) {
	query := `SELECT * FROM user_connections WHERE user_id = $1 AND status = $2 ORDER BY updated_at DESC`
	var conns []*Connection
	err := r.db.SelectContext(ctx, &conns, query, userID, status)
	return conns, err
}

func (r *repository) FindAllByConnectionAndStatus(ctx context.Context, connectionID uuid.UUID, status Status) ([]*Connection, error) {
	query := `SELECT * FROM user_connections WHERE connection_id = $1 AND status = $2 ORDER BY updated_at DESC`
	var conns []*Connection
	err := r.db.SelectContext(ctx, &conns, query, connectionID, status)
	return conns, err
}

func (r *repository) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*Connection, error) {
	query := `SELECT * FROM user_connections WHERE user_id = $1 ORDER BY updated_at DESC`
	var conns []*Connection
	err := r.db.SelectContext(ctx, &conns, query, userID)
	return conns, err
}

func (r *repository) FindAllByConnection(ctx context.Context, connectionID uuid.UUID) ([]*Connection, error) {
	query := `SELECT * FROM user_connections WHERE connection_id = $1 ORDER BY updated_at DESC`
	var conns []*Connection
	err := r.db.SelectContext(ctx, &conns, query, connectionID)
	return conns, err
}

// Save writes the full row. The composite primary key makes this an
// upsert, so reviving a terminal pair can never produce a duplicate.
func (r *repository) Save(ctx context.Context, conn *Connection) error {
	query := `
		INSERT INTO user_connections (user_id, connection_id, status, requested_by, blocked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, connection_id)
		DO UPDATE SET status = EXCLUDED.status,
		              requested_by = EXCLUDED.requested_by,
		              blocked_by = EXCLUDED.blocked_by,
		              updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		conn.UserID, conn.ConnectionID, conn.Status,
		conn.RequestedBy, conn.BlockedBy, conn.CreatedAt,
	)
	if err != nil {
		errorhandler.LogDatabaseError(ctx, "connection.Save", err)
	}
	return err
}
