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

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	PlaceFromCart(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db, now: time.Now}
}

// PlaceFromCart converts the user's cart into an order in a single
// transaction. The cart row and its lines are locked first, so a concurrent
// call for the same user waits here and then finds the cart already emptied.
func (r *orderRepository) PlaceFromCart(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error) {
	var order *domain.Order

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var cartID uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCartEmpty
			}
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		lines, err := queryCartLines(ctx, tx, cartLinesQuery+` FOR UPDATE OF ci`, cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrCartEmpty
		}

		order = domain.NewOrderFromCart(userID, shipping, lines, r.now())

		orderQuery := `
			INSERT INTO orders (id, user_id, total_amount, shipping_name, shipping_phone, shipping_address, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(
			ctx,
			orderQuery,
			order.ID,
			order.UserID,
			order.TotalAmount,
			order.Shipping.Name,
			order.Shipping.Phone,
			order.Shipping.Address,
			string(order.Status),
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isOutOfRange(err) {
				return ErrValueOutOfRange
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, item := range order.Items {
			_, err = tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, nullableUUID(item.ProductID), item.ProductName, item.Quantity, item.UnitPrice)
			if err != nil {
				if isOutOfRange(err) {
					return ErrValueOutOfRange
				}
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

const orderSummaryQuery = `
	SELECT o.id, o.user_id, o.total_amount, o.shipping_name, o.shipping_phone, o.shipping_address,
	       o.status, o.created_at, o.updated_at,
	       (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
	FROM orders o
`

// ListByUser returns the user's orders newest first, with item counts only
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, orderSummaryQuery+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`, userID)
}

// ListAll returns every order newest first, optionally narrowed to one status
func (r *orderRepository) ListAll(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	if status == "" {
		return r.listOrders(ctx, orderSummaryQuery+` ORDER BY o.created_at DESC, o.id DESC`)
	}
	return r.listOrders(ctx, orderSummaryQuery+` WHERE o.status = $1 ORDER BY o.created_at DESC, o.id DESC`, string(status))
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// FindByID retrieves an order with its line items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSummaryQuery+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.product_name, COALESCE(p.image_url, ''), oi.quantity, oi.unit_price
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_name ASC, oi.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.Items = []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		var productID uuid.NullUUID
		err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.ProductName, &item.ImageURL, &item.Quantity, &item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if productID.Valid {
			item.ProductID = &productID.UUID
		}
		order.Items = append(order.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

// UpdateStatus overwrites the order status. Any status may follow any other.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	query := `
		UPDATE orders o
		SET status = $2, updated_at = $3
		WHERE o.id = $1
		RETURNING o.id, o.user_id, o.total_amount, o.shipping_name, o.shipping_phone, o.shipping_address,
		          o.status, o.created_at, o.updated_at,
		          (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, string(status), r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return order, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Shipping.Name,
		&order.Shipping.Phone,
		&order.Shipping.Address,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ItemCount,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
