package repository

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"steel-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Feature: steel-store, Property 6: Pagination determinism
func TestProductListPaginationIsDeterministic(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	category := uniqueName("Beams")
	prefix := uniqueName("Beam")
	for i := 1; i <= 25; i++ {
		createTestProduct(t, fmt.Sprintf("%s %02d", prefix, i), category, "100.00")
	}
	slug := domain.Slugify(category)

	page := func(n int) []*domain.Product {
		products, total, err := repo.List(ctx, ProductFilter{
			CategorySlug: slug,
			Page:         n,
			PageSize:     10,
			SortBy:       "name",
			SortOrder:    SortOrderAsc,
		})
		require.NoError(t, err)
		assert.Equal(t, 25, total)
		return products
	}

	second := page(2)
	require.Len(t, second, 10)
	for i, p := range second {
		assert.Equal(t, fmt.Sprintf("%s %02d", prefix, i+11), p.Name)
	}

	third := page(3)
	require.Len(t, third, 5)
	assert.Equal(t, fmt.Sprintf("%s %02d", prefix, 21), third[0].Name)
	assert.Equal(t, fmt.Sprintf("%s %02d", prefix, 25), third[4].Name)

	assert.Empty(t, page(4))
	assert.Empty(t, page(100000000000000000))
	assert.Equal(t, second, page(2))
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		name           string
		page, pageSize int
		total          int
		wantOffset     int
		wantOK         bool
	}{
		{"first page", 1, 10, 25, 0, true},
		{"last partial page", 3, 10, 25, 20, true},
		{"past the end", 4, 10, 25, 0, false},
		{"empty catalog", 1, 10, 0, 0, false},
		{"page below one", 0, 10, 25, 0, true},
		{"zero page size", 1, 0, 25, 0, false},
		{"offset overflows", 100000000000000000, 100, 25, 0, false},
		{"largest page", math.MaxInt, 1, 25, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, ok := pageOffset(tt.page, tt.pageSize, tt.total)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestProductListFilters(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	category := uniqueName("Pipes")
	marker := uuid.NewString()[:8]
	createTestProduct(t, "Steel Pipe "+marker, category, "50.00")
	createTestProduct(t, "Steel Rod "+marker, category, "150.00")
	createTestProduct(t, "Copper Pipe "+marker, category, "250.00")

	minPrice := decimal.RequireFromString("50.00")
	maxPrice := decimal.RequireFromString("150.00")
	products, total, err := repo.List(ctx, ProductFilter{
		Search:       "steel",
		CategorySlug: domain.Slugify(category),
		MinPrice:     &minPrice,
		MaxPrice:     &maxPrice,
		Page:         1,
		PageSize:     20,
		SortBy:       "price",
		SortOrder:    SortOrderAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Steel Pipe "+marker, products[0].Name)
	assert.Equal(t, category, products[0].CategoryName)

	products, total, err = repo.List(ctx, ProductFilter{Search: "pipe " + marker, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 2)
}

func TestProductCreateFindsOrCreatesCategory(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	category := uniqueName("Sheets")
	first := createTestProduct(t, uniqueName("Sheet"), category, "10.00")
	second := createTestProduct(t, uniqueName("Sheet"), category, "20.00")

	require.NotNil(t, first.CategoryID)
	require.NotNil(t, second.CategoryID)
	assert.Equal(t, *first.CategoryID, *second.CategoryID)

	var count int
	require.NoError(t, testDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = $1`, category).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestProductSlugConflict(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)

	name := uniqueName("Girder")
	createTestProduct(t, name, "", "10.00")

	duplicate := &domain.Product{ID: uuid.New(), Name: name, Slug: domain.Slugify(name), Price: decimal.NewFromInt(5)}
	err := repo.Create(context.Background(), duplicate, "")
	assert.ErrorIs(t, err, ErrProductSlugTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestProductUpdateAppliesOnlyPresentFields(t *testing.T) {
	requireDB(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := createTestProduct(t, uniqueName("Plate"), uniqueName("Plates"), "30.00")

	newName := uniqueName("Heavy Plate")
	newImage := "http://localhost:8080/uploads/new.png"
	updated, err := repo.Update(ctx, product.ID, &domain.ProductPatch{Name: &newName, ImageURL: &newImage})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, domain.Slugify(newName), updated.Slug)
	assert.True(t, product.Price.Equal(updated.Price))
	assert.Equal(t, product.CategoryName, updated.CategoryName)

	images, err := repo.Images(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, newImage, images[0].URL)
	assert.True(t, images[0].IsPrimary)

	_, err = repo.Update(ctx, uuid.New(), &domain.ProductPatch{Name: &newName})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductDeleteRemovesChildrenAndKeepsOrderSnapshot(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	products := NewProductRepository(testDB)
	carts := NewCartRepository(testDB)
	orders := NewOrderRepository(testDB)
	reviews := NewReviewRepository(testDB)

	buyer := createTestUser(t, false)
	other := createTestUser(t, false)
	product := createTestProduct(t, uniqueName("Doomed Beam"), "", "75.00")

	_, err := carts.AddItem(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)
	order, err := orders.PlaceFromCart(ctx, buyer.ID, domain.ShippingInfo{Name: "B"})
	require.NoError(t, err)

	_, err = carts.AddItem(ctx, other.ID, product.ID, 1)
	require.NoError(t, err)
	require.NoError(t, reviews.Create(ctx, &domain.Review{ID: uuid.New(), UserID: other.ID, ProductID: product.ID, Rating: 4, CreatedAt: time.Now()}))

	require.NoError(t, products.Delete(ctx, product.ID))

	_, err = products.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	cart, err := carts.GetByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	stored, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Nil(t, stored.Items[0].ProductID)
	assert.Equal(t, product.Name, stored.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("150.00").Equal(stored.TotalAmount))

	assert.ErrorIs(t, products.Delete(ctx, product.ID), ErrProductNotFound)
}
