package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	ErrProductNameRequired  = fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	ErrProductPriceRequired = fmt.Errorf("%w: product price is required", domain.ErrInvalidInput)
	ErrNegativePrice        = fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	ErrNegativeStock        = fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidInput)
	ErrPriceOutOfRange      = fmt.Errorf("%w: price must be below %s with at most two decimal places", domain.ErrInvalidInput, priceCeiling)
	ErrStockTooLarge        = fmt.Errorf("%w: stock must not exceed %d", domain.ErrInvalidInput, math.MaxInt32)
)

// ImageSaver stores an uploaded image and returns its public URL
type ImageSaver interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// ImageUpload is an image file submitted with a product write
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ProductQuery holds the listing parameters accepted from clients
type ProductQuery struct {
	Page         int
	PageSize     int
	Search       string
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	SortBy       string
	SortOrder    string
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Items      []*domain.Product `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// CreateProductInput carries the fields of a new product
type CreateProductInput struct {
	Name        string
	Description string
	Price       *decimal.Decimal
	Stock       int
	Specs       map[string]any
	Category    string
	Image       *ImageUpload
}

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch, image *ImageUpload) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	reviewRepo   repository.ReviewRepository
	images       ImageSaver
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	reviewRepo repository.ReviewRepository,
	images ImageSaver,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
		images:       images,
	}
}

// priceCeiling is the first value a DECIMAL(10, 2) price column cannot hold
var priceCeiling = decimal.New(1, 8)

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	if price.GreaterThanOrEqual(priceCeiling) || !price.Equal(price.Round(2)) {
		return ErrPriceOutOfRange
	}
	return nil
}

func checkStock(stock int) error {
	if stock < 0 {
		return ErrNegativeStock
	}
	if stock > math.MaxInt32 {
		return ErrStockTooLarge
	}
	return nil
}

// NormalizePage applies the default and maximum page size and clamps the page
// number to at least 1
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// TotalPages is the number of pages needed to show total items
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ListProducts retrieves a filtered, paginated product listing. A page past the
// end yields an empty list.
func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	page, pageSize := NormalizePage(query.Page, query.PageSize)

	sortOrder := repository.SortOrderDesc
	if strings.EqualFold(query.SortOrder, "asc") {
		sortOrder = repository.SortOrderAsc
	}

	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		Search:       query.Search,
		CategorySlug: query.CategorySlug,
		MinPrice:     query.MinPrice,
		MaxPrice:     query.MaxPrice,
		Page:         page,
		PageSize:     pageSize,
		SortBy:       query.SortBy,
		SortOrder:    sortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}, nil
}

// GetProduct retrieves a product together with its images and reviews
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.productRepo.Images(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.ProductDetail{Product: *product, Images: images, Reviews: reviews}, nil
}

// CreateProduct validates and stores a new product, uploading its image first
func (s *catalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	if input.Price == nil {
		return nil, ErrProductPriceRequired
	}
	if err := checkPrice(*input.Price); err != nil {
		return nil, err
	}
	if err := checkStock(input.Stock); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        domain.Slugify(name),
		Description: input.Description,
		Price:       *input.Price,
		Stock:       input.Stock,
		Specs:       input.Specs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if input.Image != nil {
		url, err := s.images.Save(ctx, input.Image.Filename, input.Image.Content)
		if err != nil {
			return nil, err
		}
		product.ImageURL = url
	}

	if err := s.productRepo.Create(ctx, product, strings.TrimSpace(input.Category)); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct applies the fields present in patch. A new image replaces the
// primary image URL; the old file stays on disk.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch, image *ImageUpload) (*domain.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrProductNameRequired
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Stock != nil {
		if err := checkStock(*patch.Stock); err != nil {
			return nil, err
		}
	}
	if patch.CategoryName != nil {
		category := strings.TrimSpace(*patch.CategoryName)
		patch.CategoryName = &category
	}

	if image != nil {
		exists, err := s.productRepo.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, repository.ErrProductNotFound
		}

		url, err := s.images.Save(ctx, image.Filename, image.Content)
		if err != nil {
			return nil, err
		}
		patch.ImageURL = &url
	}

	return s.productRepo.Update(ctx, id, &patch)
}

// DeleteProduct removes a product and everything it owns
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// ListCategories returns all categories by name
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}
