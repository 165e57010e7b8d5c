package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/storage"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

const topScholarshipsLimit = 6

// ErrStorageDisabled is returned when an upload is attempted without object storage.
var ErrStorageDisabled = errors.New("object storage is not configured")

// ScholarshipRepository defines persistence operations for scholarships.
type ScholarshipRepository interface {
	List(ctx context.Context, search string, offset, limit int) ([]types.Scholarship, int, error)
	Top(ctx context.Context, limit int) ([]types.Scholarship, error)
	Get(ctx context.Context, id uuid.UUID) (types.Scholarship, error)
	Create(ctx context.Context, s types.Scholarship) (types.Scholarship, error)
	Update(ctx context.Context, s types.Scholarship) (types.Scholarship, error)
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) (types.Scholarship, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScholarshipService encapsulates scholarship use-cases.
type ScholarshipService struct {
	repo    ScholarshipRepository
	storage *storage.Storage
	logger  *zap.Logger
}

// NewScholarshipService constructs the service. objects may be nil, in which
// case image uploads are rejected.
func NewScholarshipService(repo ScholarshipRepository, objects *storage.Storage, logger *zap.Logger) *ScholarshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScholarshipService{repo: repo, storage: objects, logger: logger}
}

func (s *ScholarshipService) List(ctx context.Context, search string, offset, limit int) ([]types.Scholarship, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, strings.TrimSpace(search), offset, limit)
}

func (s *ScholarshipService) Top(ctx context.Context) ([]types.Scholarship, error) {
	return s.repo.Top(ctx, topScholarshipsLimit)
}

func (s *ScholarshipService) Get(ctx context.Context, id uuid.UUID) (types.Scholarship, error) {
	return s.repo.Get(ctx, id)
}

func (s *ScholarshipService) Create(ctx context.Context, scholarship types.Scholarship, postedBy string) (types.Scholarship, error) {
	if err := validateScholarship(&scholarship); err != nil {
		return types.Scholarship{}, err
	}
	scholarship.PostedBy = postedBy
	return s.repo.Create(ctx, scholarship)
}

func (s *ScholarshipService) Update(ctx context.Context, scholarship types.Scholarship) (types.Scholarship, error) {
	if err := validateScholarship(&scholarship); err != nil {
		return types.Scholarship{}, err
	}
	return s.repo.Update(ctx, scholarship)
}

func (s *ScholarshipService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, existing.UniversityImage)
	return nil
}

// UploadImage stores a new university image and points the scholarship at
// it. The previous image is removed when it lives in the same bucket.
func (s *ScholarshipService) UploadImage(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader, size int64) (types.Scholarship, error) {
	if s.storage == nil {
		return types.Scholarship{}, ErrStorageDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return types.Scholarship{}, invalidInput("file must be an image")
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Scholarship{}, err
	}

	key := storage.ImageKey(id, filename)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.Scholarship{}, fmt.Errorf("upload image: %w", err)
	}
	updated, err := s.repo.UpdateImage(ctx, id, s.storage.URL(key))
	if err != nil {
		s.removeImage(ctx, s.storage.URL(key))
		return types.Scholarship{}, err
	}
	s.removeImage(ctx, existing.UniversityImage)
	return updated, nil
}

func (s *ScholarshipService) removeImage(ctx context.Context, url string) {
	if s.storage == nil {
		return
	}
	key := s.storage.KeyFromURL(url)
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("delete scholarship image", zap.String("key", key), zap.Error(err))
	}
}

func validateScholarship(s *types.Scholarship) error {
	s.ScholarshipName = strings.TrimSpace(s.ScholarshipName)
	s.UniversityName = strings.TrimSpace(s.UniversityName)
	if s.ScholarshipName == "" || s.UniversityName == "" {
		return invalidInput("scholarshipName and universityName are required")
	}
	if s.TuitionFees < 0 || s.ApplicationFees < 0 || s.ServiceCharge < 0 {
		return invalidInput("fees must not be negative")
	}
	if !s.ApplicationDeadline.IsZero() {
		s.ApplicationDeadline = s.ApplicationDeadline.UTC()
	}
	return nil
}
