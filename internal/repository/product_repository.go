package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"steel-store/internal/database"
	"steel-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows and pages a product listing
type ProductFilter struct {
	Search       string
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product, categoryName string) error
	Update(ctx context.Context, id uuid.UUID, patch *domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	Images(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.slug, p.description, p.price, p.category_id, COALESCE(c.name, ''),
	p.stock, p.specs, p.image_url, p.created_at, p.updated_at
`

// Create inserts a product, resolving its category by name and recording its
// primary image, all in one transaction
func (r *productRepository) Create(ctx context.Context, product *domain.Product, categoryName string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if categoryName != "" {
			category, err := findOrCreateCategory(ctx, tx, categoryName)
			if err != nil {
				return err
			}
			product.CategoryID = &category.ID
			product.CategoryName = category.Name
		}

		specs, err := encodeSpecs(product.Specs)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO products (id, name, slug, description, price, category_id, stock, specs, image_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		_, err = tx.ExecContext(
			ctx,
			query,
			product.ID,
			product.Name,
			product.Slug,
			product.Description,
			product.Price,
			nullableUUID(product.CategoryID),
			product.Stock,
			specs,
			product.ImageURL,
			product.CreatedAt,
			product.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "products_slug_key") {
				return ErrProductSlugTaken
			}
			if isOutOfRange(err) {
				return ErrValueOutOfRange
			}
			return fmt.Errorf("failed to create product: %w", err)
		}

		if product.ImageURL != "" {
			return insertPrimaryImage(ctx, tx, product.ID, product.ImageURL)
		}
		return nil
	})
}

// Update applies a partial update under a row lock so concurrent updates do
// not interleave their read-modify-write cycles
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, patch *domain.ProductPatch) (*domain.Product, error) {
	var product *domain.Product

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		product, err = scanProduct(tx.QueryRowContext(ctx,
			`SELECT `+productColumns+` FROM products p LEFT JOIN categories c ON c.id = p.category_id WHERE p.id = $1 FOR UPDATE OF p`,
			id,
		))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to load product for update: %w", err)
		}

		previousImage := product.ImageURL
		patch.Apply(product)
		product.UpdatedAt = time.Now()

		if patch.CategoryName != nil {
			if *patch.CategoryName == "" {
				product.CategoryID = nil
				product.CategoryName = ""
			} else {
				category, err := findOrCreateCategory(ctx, tx, *patch.CategoryName)
				if err != nil {
					return err
				}
				product.CategoryID = &category.ID
				product.CategoryName = category.Name
			}
		}

		specs, err := encodeSpecs(product.Specs)
		if err != nil {
			return err
		}

		query := `
			UPDATE products
			SET name = $2, slug = $3, description = $4, price = $5, category_id = $6,
			    stock = $7, specs = $8, image_url = $9, updated_at = $10
			WHERE id = $1
		`

		_, err = tx.ExecContext(
			ctx,
			query,
			product.ID,
			product.Name,
			product.Slug,
			product.Description,
			product.Price,
			nullableUUID(product.CategoryID),
			product.Stock,
			specs,
			product.ImageURL,
			product.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "products_slug_key") {
				return ErrProductSlugTaken
			}
			if isOutOfRange(err) {
				return ErrValueOutOfRange
			}
			return fmt.Errorf("failed to update product: %w", err)
		}

		if product.ImageURL != previousImage && product.ImageURL != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE product_images SET is_primary = FALSE WHERE product_id = $1`, product.ID); err != nil {
				return fmt.Errorf("failed to demote previous images: %w", err)
			}
			return insertPrimaryImage(ctx, tx, product.ID, product.ImageURL)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// Delete removes a product together with everything it owns. Children are
// deleted before the parent inside the same transaction; order lines keep
// their snapshot and lose only the product reference.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, child := range []string{
			`DELETE FROM cart_items WHERE product_id = $1`,
			`DELETE FROM reviews WHERE product_id = $1`,
			`DELETE FROM product_images WHERE product_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, child, id); err != nil {
				return fmt.Errorf("failed to delete product children: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return ErrProductNotFound
		}

		return nil
	})
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// Exists reports whether a product with the given ID is stored
func (r *productRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

// List retrieves products matching the filter with pagination and sorting.
// The id tiebreaker keeps pages stable when sort values repeat.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]string{
		"name":       "p.name",
		"price":      "p.price",
		"created_at": "p.created_at",
		"stock":      "p.stock",
	}

	sortColumn, ok := validSortFields[filter.SortBy]
	if !ok {
		sortColumn = "p.created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	// Build the WHERE clause
	conditions := []string{}
	args := []any{}
	argIndex := 1

	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", argIndex))
		args = append(args, "%"+escapeLike(search)+"%")
		argIndex++
	}
	if filter.CategorySlug != "" {
		conditions = append(conditions, fmt.Sprintf("c.slug = $%d", argIndex))
		args = append(args, filter.CategorySlug)
		argIndex++
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total products
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset, ok := pageOffset(filter.Page, filter.PageSize, total)
	if !ok {
		return []*domain.Product{}, total, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY %s %s, p.id %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortColumn, sortOrder, sortOrder, argIndex, argIndex+1)

	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// Images lists a product's images, primary first
func (r *productRepository) Images(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, is_primary, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	defer rows.Close()

	images := []*domain.ProductImage{}
	for rows.Next() {
		image := &domain.ProductImage{}
		if err := rows.Scan(&image.ID, &image.ProductID, &image.URL, &image.IsPrimary, &image.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, image)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}

	return images, nil
}

func insertPrimaryImage(ctx context.Context, q DBTX, productID uuid.UUID, url string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO product_images (id, product_id, image_url, is_primary, created_at) VALUES ($1, $2, $3, TRUE, $4)`,
		uuid.New(), productID, url, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record product image: %w", err)
	}
	return nil
}

// pageOffset returns the row offset of page. It reports false when the page
// starts at or past total, including pages whose offset would overflow int.
func pageOffset(page, pageSize, total int) (int, bool) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	offset := (page - 1) * pageSize
	if offset >= total {
		return 0, false
	}
	return offset, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryID uuid.NullUUID
	var specs []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&categoryID,
		&product.CategoryName,
		&product.Stock,
		&specs,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		product.CategoryID = &categoryID.UUID
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &product.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode product specs: %w", err)
		}
	}

	return product, nil
}

func encodeSpecs(specs map[string]any) (any, error) {
	if specs == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product specs: %w", err)
	}
	return string(encoded), nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// escapeLike escapes the ILIKE wildcards so search terms match literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
