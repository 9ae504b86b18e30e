package connection

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents the state of a connection between two users
// (matches the connection_status enum).
type Status string

const (
	// StatusNew is the implicit state of a pair with no stored row.
	// It is never persisted.
	StatusNew       Status = "NEW"
	StatusRequested Status = "REQUESTED"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusBlocked   Status = "BLOCKED"
	StatusUnblocked Status = "UNBLOCKED"
)

// SuggestionStatuses are the states in which the other party is a
// candidate for a (re-)connection.
func SuggestionStatuses() []Status {
	return []Status{StatusUnblocked, StatusNew, StatusRejected}
}

// Connection is the single stored relationship for an unordered pair of
// users. UserID holds the party that issued the first request and
// ConnectionID the other side; the order is positional storage only and
// carries no meaning for queries, which must check both orientations.
type Connection struct {
	UserID       uuid.UUID      `db:"user_id" json:"user_id"`
	ConnectionID uuid.UUID      `db:"connection_id" json:"connection_id"`
	Status       Status         `db:"status" json:"status"`
	RequestedBy  sql.NullString `db:"requested_by" json:"requested_by"`
	BlockedBy    sql.NullString `db:"blocked_by" json:"blocked_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// OtherSide returns the participant opposite to the given user id.
func (c *Connection) OtherSide(id uuid.UUID) uuid.UUID {
	if c.UserID == id {
		return c.ConnectionID
	}
	return c.UserID
}

// MarkRequested moves the pair (back) into REQUESTED with the given
// actor recorded as requester. Repeating a pending request is a plain
// overwrite, and terminal states (REJECTED, UNBLOCKED) are revived.
func (c *Connection) MarkRequested(actor string) {
	c.Status = StatusRequested
	c.RequestedBy = sql.NullString{String: actor, Valid: true}
	c.BlockedBy = sql.NullString{}
}

// MarkAccepted moves the pair into ACCEPTED. requested_by and
// blocked_by are cleared on every transition away from their state.
func (c *Connection) MarkAccepted() {
	c.Status = StatusAccepted
	c.RequestedBy = sql.NullString{}
	c.BlockedBy = sql.NullString{}
}

// MarkRejected moves the pair into REJECTED.
func (c *Connection) MarkRejected() {
	c.Status = StatusRejected
	c.RequestedBy = sql.NullString{}
	c.BlockedBy = sql.NullString{}
}

// MarkBlocked moves the pair into BLOCKED, recording the actor that
// issued the block.
func (c *Connection) MarkBlocked(actor string) {
	c.Status = StatusBlocked
	c.RequestedBy = sql.NullString{}
	c.BlockedBy = sql.NullString{String: actor, Valid: true}
}

// MarkUnblocked moves the pair into UNBLOCKED.
func (c *Connection) MarkUnblocked() {
	c.Status = StatusUnblocked
	c.RequestedBy = sql.NullString{}
	c.BlockedBy = sql.NullString{}
}
