package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Slug         string          `json:"slug" db:"slug"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty" db:"category_id"`
	CategoryName string          `json:"category,omitempty" db:"-"`
	Stock        int             `json:"stock" db:"stock"`
	Specs        map[string]any  `json:"specs,omitempty" db:"specs"`
	ImageURL     string          `json:"image_url" db:"image_url"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductDetail is a product with its images and reviews
type ProductDetail struct {
	Product
	Images  []*ProductImage `json:"images"`
	Reviews []*Review       `json:"reviews"`
}

// ProductImage is an uploaded picture belonging to one product
type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	URL       string    `json:"url" db:"image_url"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Slugify lower-cases name and replaces spaces with hyphens
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	Stock        *int
	Specs        map[string]any
	CategoryName *string
	ImageURL     *string
}

// Apply overwrites the product fields present in the patch. Renaming a product
// regenerates its slug. CategoryName is resolved by the store, not here.
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
		product.Slug = Slugify(*p.Name)
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Specs != nil {
		product.Specs = p.Specs
	}
	if p.ImageURL != nil {
		product.ImageURL = *p.ImageURL
	}
}
