package user

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{
			name: "full name",
			user: User{
				Username:  "alice",
				FirstName: sql.NullString{String: "Alice", Valid: true},
				LastName:  sql.NullString{String: "Smith", Valid: true},
			},
			expected: "Alice Smith",
		},
		{
			name: "first name only",
			user: User{
				Username:  "alice",
				FirstName: sql.NullString{String: "Alice", Valid: true},
			},
			expected: "Alice",
		},
		{
			name:     "username fallback",
			user:     User{Username: "alice"},
			expected: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInfoFromEntity(t *testing.T) {
	if InfoFromEntity(nil) != nil {
		t.Error("Expected nil for nil entity")
	}

	u := &User{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: sql.NullString{String: "Alice", Valid: true},
		AvatarURL: sql.NullString{String: "/uploads/avatars/a.jpg", Valid: true},
	}
	info := InfoFromEntity(u)
	if info.ID != u.ID || info.Username != "alice" {
		t.Error("Expected identity fields to carry over")
	}
	if info.FirstName != "Alice" || info.AvatarURL != "/uploads/avatars/a.jpg" {
		t.Error("Expected optional fields to carry over")
	}
	if info.LastName != "" || info.Bio != "" {
		t.Error("Expected unset optional fields to stay empty")
	}
}
