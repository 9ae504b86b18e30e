package user

import (
	"github.com/google/uuid"
)

// InfoResponse is the public profile view of a user
type InfoResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// UpdateProfileRequest for PATCH /users/me
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
}

// InfoFromEntity converts entity to public profile response
func InfoFromEntity(u *User) *InfoResponse {
	if u == nil {
		return nil
	}
	return &InfoResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName.String,
		LastName:  u.LastName.String,
		Bio:       u.Bio.String,
		AvatarURL: u.AvatarURL.String,
	}
}
