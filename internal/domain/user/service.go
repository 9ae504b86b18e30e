package user

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/buddyspace/buddyspace-api/internal/pkg/imaging"
	"github.com/buddyspace/buddyspace-api/internal/pkg/storage"
)

// Service handles user profile business logic
type Service struct {
	repo      *Repository
	cache     *CachedRepository
	storage   storage.Storage
	processor *imaging.Processor
}

// NewService creates user service
func NewService(repo *Repository, cache *CachedRepository, store storage.Storage, processor *imaging.Processor) *Service {
	return &Service{repo: repo, cache: cache, storage: store, processor: processor}
}

// GetByUsername returns a user through the profile cache
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.cache.GetByUsername(ctx, username)
}

// GetByID returns a user through the profile cache
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.cache.GetByID(ctx, id)
}

// UpdateProfile applies a partial profile update
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		u.FirstName.String = *req.FirstName
		u.FirstName.Valid = *req.FirstName != ""
	}
	if req.LastName != nil {
		u.LastName.String = *req.LastName
		u.LastName.Valid = *req.LastName != ""
	}
	if req.Bio != nil {
		u.Bio.String = *req.Bio
		u.Bio.Valid = *req.Bio != ""
	}

	if err := s.cache.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UploadAvatar processes and stores a new avatar, returning its public URL
func (s *Service) UploadAvatar(ctx context.Context, id uuid.UUID, filename string, reader io.Reader) (string, error) {
	if !imaging.ValidateType(filename) {
		return "", fmt.Errorf("unsupported image type: %s", filename)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	processed, err := s.processor.Process(reader)
	if err != nil {
		return "", err
	}

	// Timestamped name so stale CDN copies never shadow a new upload
	name := fmt.Sprintf("%d%s", time.Now().Unix(), extFor(processed.ContentType))
	originalKey, thumbKey := imaging.GeneratePaths(id.String(), name)

	if err := s.storage.Put(ctx, originalKey, bytes.NewReader(processed.Original), processed.ContentType); err != nil {
		return "", err
	}
	if err := s.storage.Put(ctx, thumbKey, bytes.NewReader(processed.Thumbnail), processed.ContentType); err != nil {
		return "", err
	}

	url := s.storage.GetURL(originalKey)
	if err := s.cache.UpdateAvatar(ctx, u, url); err != nil {
		return "", err
	}

	return url, nil
}

// Search returns matching public profiles, paginated
func (s *Service) Search(ctx context.Context, query string, page, size int) ([]*InfoResponse, error) {
	users, err := s.repo.Search(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, err
	}

	out := make([]*InfoResponse, 0, len(users))
	for _, u := range users {
		out = append(out, InfoFromEntity(u))
	}
	return out, nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
