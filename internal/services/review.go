package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	List(ctx context.Context, filter store.ReviewFilter) ([]types.Review, error)
	Ratings(ctx context.Context, scholarshipID uuid.UUID) ([]int, error)
	Get(ctx context.Context, id uuid.UUID) (types.Review, error)
	Create(ctx context.Context, review types.Review) (types.Review, error)
	Update(ctx context.Context, review types.Review) (types.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewService encapsulates review use-cases.
type ReviewService struct {
	repo ReviewRepository
}

func NewReviewService(repo ReviewRepository) *ReviewService {
	return &ReviewService{repo: repo}
}

func (s *ReviewService) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if review.ScholarshipID == uuid.Nil {
		return types.Review{}, invalidInput("scholarshipId is required")
	}
	review.ReviewerEmail = types.NormalizeEmail(review.ReviewerEmail)
	if review.ReviewerEmail == "" {
		return types.Review{}, invalidInput("reviewerEmail is required")
	}
	if review.Rating < minRating || review.Rating > maxRating {
		return types.Review{}, invalidInput("rating must be between 1 and 5")
	}
	review.Comment = strings.TrimSpace(review.Comment)
	return s.repo.Create(ctx, review)
}

func (s *ReviewService) List(ctx context.Context, filter store.ReviewFilter) ([]types.Review, error) {
	return s.repo.List(ctx, filter)
}

// AverageRating returns the mean rating of a scholarship. With no reviews the
// result is NaN rather than an error.
func (s *ReviewService) AverageRating(ctx context.Context, scholarshipID uuid.UUID) (float64, error) {
	ratings, err := s.repo.Ratings(ctx, scholarshipID)
	if err != nil {
		return 0, err
	}
	if len(ratings) == 0 {
		return math.NaN(), nil
	}
	var sum int
	for _, rating := range ratings {
		sum += rating
	}
	return float64(sum) / float64(len(ratings)), nil
}

// Update changes the rating and comment of the caller's own review.
func (s *ReviewService) Update(ctx context.Context, id uuid.UUID, callerEmail string, rating int, comment string) (types.Review, error) {
	if rating < minRating || rating > maxRating {
		return types.Review{}, invalidInput("rating must be between 1 and 5")
	}
	review, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Review{}, err
	}
	if review.ReviewerEmail != types.NormalizeEmail(callerEmail) {
		return types.Review{}, ErrNotOwner
	}
	review.Rating = rating
	review.Comment = strings.TrimSpace(comment)
	return s.repo.Update(ctx, review)
}

// Delete removes a review. Staff may delete any review, others only their own.
func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID, callerEmail string, isStaff bool) error {
	if !isStaff {
		review, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if review.ReviewerEmail != types.NormalizeEmail(callerEmail) {
			return ErrNotOwner
		}
	}
	return s.repo.Delete(ctx, id)
}
