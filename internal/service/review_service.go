package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrRatingRequired   = fmt.Errorf("%w: rating is required", domain.ErrInvalidInput)
	ErrRatingOutOfRange = fmt.Errorf("%w: rating does not fit in a 32-bit integer", domain.ErrInvalidInput)
)

// ReviewService defines the interface for review business logic
type ReviewService interface {
	ListReviews(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	AddReview(ctx context.Context, userID, productID uuid.UUID, rating *int, comment string) (*domain.Review, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviewRepo repository.ReviewRepository, userRepo repository.UserRepository) ReviewService {
	return &reviewService{reviewRepo: reviewRepo, userRepo: userRepo}
}

// ListReviews returns a product's reviews newest first
func (s *reviewService) ListReviews(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	return s.reviewRepo.ListByProduct(ctx, productID)
}

// AddReview appends a review. The rating range is not checked and a user may
// review the same product more than once.
func (s *reviewService) AddReview(ctx context.Context, userID, productID uuid.UUID, rating *int, comment string) (*domain.Review, error) {
	if rating == nil {
		return nil, ErrRatingRequired
	}
	if *rating > math.MaxInt32 || *rating < math.MinInt32 {
		return nil, ErrRatingOutOfRange
	}

	review := &domain.Review{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Rating:    *rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		review.UserName = user.Name
	}

	return review, nil
}
