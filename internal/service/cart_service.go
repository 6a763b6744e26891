package service

import (
	"context"
	"fmt"
	"math"

	"steel-store/internal/domain"
	"steel-store/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	ErrQuantityTooLarge = fmt.Errorf("%w: quantity must not exceed %d", domain.ErrInvalidInput, MaxQuantity)
)

// MaxQuantity is the largest quantity a cart line can hold
const MaxQuantity = math.MaxInt32

// CartService defines the interface for cart business logic. Every operation
// acts on the caller's own cart only; admins get no bypass.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity *int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type cartService struct {
	cartRepo repository.CartRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository) CartService {
	return &cartService{cartRepo: cartRepo}
}

// GetCart returns the caller's cart priced at current product prices
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.cartRepo.GetByUser(ctx, userID)
}

// AddItem adds quantity (default 1) of a product to the caller's cart. Stock
// is not checked.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity *int) (*domain.CartItem, error) {
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if qty > MaxQuantity {
		return nil, ErrQuantityTooLarge
	}

	return s.cartRepo.AddItem(ctx, userID, productID, qty)
}

// UpdateItem sets a line's quantity; zero or less removes the line
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	return s.cartRepo.UpdateItemQuantity(ctx, userID, itemID, quantity)
}

// RemoveItem deletes a line from the caller's cart
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cartRepo.RemoveItem(ctx, userID, itemID)
}
