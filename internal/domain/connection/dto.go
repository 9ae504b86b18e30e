package connection

import (
	"github.com/buddyspace/buddyspace-api/internal/domain/user"
)

// InfoResponse is a role-projected view of a connection: User is always
// the calling party and Connection the other side, regardless of which
// storage slot either occupies.
type InfoResponse struct {
	User        *user.InfoResponse `json:"user"`
	Connection  *user.InfoResponse `json:"connection"`
	Status      Status             `json:"status"`
	RequestedBy string             `json:"requested_by,omitempty"`
	BlockedBy   string             `json:"blocked_by,omitempty"`
}
