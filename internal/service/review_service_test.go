package service

import (
	"context"
	"math"
	"testing"

	"steel-store/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReview(t *testing.T) {
	products := newMockProductRepository()
	users := newMockUserRepository()
	reviews := &mockReviewRepository{products: products}
	service := NewReviewService(reviews, users)
	ctx := context.Background()

	user := users.add("reviewer", false)
	beam := seedProduct(products, "Beam", "1.00")

	_, err := service.AddReview(ctx, user.ID, beam.ID, nil, "no rating")
	assert.ErrorIs(t, err, ErrRatingRequired)

	// out of range ratings and repeat reviews are accepted
	for _, rating := range []int{9, -1} {
		review, err := service.AddReview(ctx, user.ID, beam.ID, intPtr(rating), "ok")
		require.NoError(t, err)
		assert.Equal(t, "reviewer", review.UserName)
	}

	list, err := service.ListReviews(ctx, beam.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, -1, list[0].Rating)

	for _, rating := range []int{math.MaxInt32 + 1, math.MinInt32 - 1} {
		_, err = service.AddReview(ctx, user.ID, beam.ID, intPtr(rating), "")
		assert.ErrorIs(t, err, ErrRatingOutOfRange)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	_, err = service.AddReview(ctx, user.ID, uuid.New(), intPtr(5), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.ListReviews(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
