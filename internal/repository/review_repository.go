package repository

import (
	"context"
	"database/sql"
	"fmt"

	"steel-store/internal/domain"

	"github.com/google/uuid"
)

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create appends a review. Repeated reviews by the same user are allowed.
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, product_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.UserID,
		review.ProductID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		switch {
		case isForeignKeyViolation(err, "fk_reviews_product"):
			return ErrProductNotFound
		case isForeignKeyViolation(err, "fk_reviews_user"):
			return ErrUserNotFound
		case isOutOfRange(err):
			return ErrValueOutOfRange
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// ListByProduct returns a product's reviews newest first with reviewer names
func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	query := `
		SELECT r.id, r.user_id, u.name, r.product_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review := &domain.Review{}
		err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.UserName,
			&review.ProductID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}
