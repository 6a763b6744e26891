package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's mutable collection of cart lines
type Cart struct {
	ID     uuid.UUID       `json:"id,omitempty"`
	UserID uuid.UUID       `json:"user_id"`
	Items  []*CartItem     `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

// CartItem is one cart line. Price is the product's current price, not a snapshot.
type CartItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CartID      uuid.UUID       `json:"cart_id" db:"cart_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"-"`
	Price       decimal.Decimal `json:"price" db:"-"`
	ImageURL    string          `json:"image_url" db:"-"`
	Quantity    int             `json:"quantity" db:"quantity"`
}

// LineTotal returns price × quantity
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCart builds a cart view and computes its total from current prices
func NewCart(id, userID uuid.UUID, items []*CartItem) *Cart {
	if items == nil {
		items = []*CartItem{}
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return &Cart{ID: id, UserID: userID, Items: items, Total: total}
}
