// Package seed loads the starter catalog used by local and staging setups.
package seed

import (
	"context"
	"fmt"

	"steel-store/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	starterCategory = "Construction"
	starterProduct  = "Test Steel Beam"
)

// Catalog creates the starter category and product unless the product is
// already present. It reports whether anything was inserted.
func Catalog(ctx context.Context, catalog service.CatalogService, logger *zap.Logger) (bool, error) {
	page, err := catalog.ListProducts(ctx, service.ProductQuery{Search: starterProduct, PageSize: 100})
	if err != nil {
		return false, fmt.Errorf("failed to look up starter product: %w", err)
	}
	for _, product := range page.Items {
		if product.Name == starterProduct {
			logger.Info("Starter catalog already present", zap.String("product_id", product.ID.String()))
			return false, nil
		}
	}

	price := decimal.RequireFromString("1000.00")
	product, err := catalog.CreateProduct(ctx, service.CreateProductInput{
		Name:        starterProduct,
		Description: "Hot rolled structural I-beam for testing",
		Price:       &price,
		Stock:       100,
		Specs: map[string]any{
			"grade":  "S275",
			"length": "6m",
		},
		Category: starterCategory,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create starter product: %w", err)
	}

	logger.Info("Seeded starter catalog",
		zap.String("category", starterCategory),
		zap.String("product_id", product.ID.String()),
	)
	return true, nil
}
