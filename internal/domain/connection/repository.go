package connection

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines connection data access. FindByPair checks one
// exact orientation; callers needing the unordered pair must probe both.
// Absent rows are reported as (nil, nil), not an error.
type Repository interface {
	FindByPair(ctx context.Context, userID, connectionID uuid.UUID) (*Connection, error)
	FindAllByUserAndStatus(ctx context.Context, userID uuid.UUID, status Status) ([]*Connection, error)
	FindAllByConnectionAndStatus(ctx context.Context, connectionID uuid.UUID, status Status) ([]*Connection, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*Connection, error)
	FindAllByConnection(ctx context.Context, connectionID uuid.UUID) ([]*Connection, error)
	Save(ctx context.Context, conn *Connection) error
}
