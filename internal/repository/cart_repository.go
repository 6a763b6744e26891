package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"steel-store/internal/database"
	"steel-store/internal/domain"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart data access. Every item
// operation is scoped to the owning user so one user can never touch
// another user's lines.
type CartRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const cartLinesQuery = `
	SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, p.image_url, ci.quantity
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.created_at ASC, ci.id ASC
`

// GetByUser returns the user's cart priced at current product prices. A user
// without a cart row gets an empty cart rather than an error.
func (r *cartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cartID uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewCart(uuid.Nil, userID, nil), nil
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	items, err := queryCartLines(ctx, r.db, cartLinesQuery, cartID)
	if err != nil {
		return nil, err
	}

	return domain.NewCart(cartID, userID, items), nil
}

// AddItem creates the cart on first use and adds quantity to the product's
// line, inserting the line when it does not exist yet
func (r *cartRepository) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	item := &domain.CartItem{ProductID: productID}

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id, cart_id, quantity
		`

		err = tx.QueryRowContext(ctx, query, uuid.New(), cartID, productID, quantity, time.Now()).
			Scan(&item.ID, &item.CartID, &item.Quantity)
		if err != nil {
			if isForeignKeyViolation(err, "fk_cart_items_product") {
				return ErrProductNotFound
			}
			if isOutOfRange(err) {
				return ErrValueOutOfRange
			}
			return fmt.Errorf("failed to add cart item: %w", err)
		}

		return tx.QueryRowContext(ctx, `SELECT name, price, image_url FROM products WHERE id = $1`, productID).
			Scan(&item.ProductName, &item.Price, &item.ImageURL)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItemQuantity sets a line's quantity; zero or less removes the line
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, userID, itemID)
	}

	query := `
		UPDATE cart_items ci
		SET quantity = $3
		FROM carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, itemID, userID, quantity)
	if err != nil {
		if isOutOfRange(err) {
			return ErrValueOutOfRange
		}
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return expectOneRow(result, ErrCartItemNotFound)
}

// RemoveItem deletes a line from the user's cart
func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return expectOneRow(result, ErrCartItemNotFound)
}

// ensureCart returns the user's cart id, creating the cart row when absent.
// The no-op update makes RETURNING yield the existing row on conflict.
func ensureCart(ctx context.Context, q DBTX, userID uuid.UUID) (uuid.UUID, error) {
	query := `
		INSERT INTO carts (id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id
	`

	var cartID uuid.UUID
	if err := q.QueryRowContext(ctx, query, uuid.New(), userID, time.Now()).Scan(&cartID); err != nil {
		if isForeignKeyViolation(err, "fk_carts_user") {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to ensure cart: %w", err)
	}
	return cartID, nil
}

func queryCartLines(ctx context.Context, q DBTX, query string, cartID uuid.UUID) ([]*domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.ProductName,
			&item.Price,
			&item.ImageURL,
			&item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
