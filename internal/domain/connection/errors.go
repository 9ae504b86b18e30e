package connection

import "errors"

var (
	ErrConnectionNotFound = errors.New("no connection found for this pair")
	ErrSelfConnection     = errors.New("cannot create a connection with yourself")
	ErrNotParticipant     = errors.New("user is not a participant of this connection")
)
