package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"steel-store/internal/domain"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindOrCreate(ctx context.Context, name string) (*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, category.ID, category.Name, category.Slug, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// List retrieves all categories
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM categories
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM categories
		WHERE id = $1
	`

	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindOrCreate resolves a category by name, inserting it when absent
func (r *categoryRepository) FindOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	return findOrCreateCategory(ctx, r.db, name)
}

// findOrCreateCategory looks the category up by name and inserts it when
// missing. A concurrent insert of the same name is absorbed by ON CONFLICT and
// the second lookup returns the winner's row.
func findOrCreateCategory(ctx context.Context, q DBTX, name string) (*domain.Category, error) {
	lookup := `SELECT id, name, slug, created_at FROM categories WHERE name = $1`

	category := &domain.Category{}
	err := q.QueryRowContext(ctx, lookup, name).Scan(&category.ID, &category.Name, &category.Slug, &category.CreatedAt)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`,
		uuid.New(), name, domain.Slugify(name), time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err, "categories_slug_key") {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	err = q.QueryRowContext(ctx, lookup, name).Scan(&category.ID, &category.Name, &category.Slug, &category.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve created category: %w", err)
	}

	return category, nil
}
