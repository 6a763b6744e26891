package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"steel-store/internal/domain"
	"steel-store/internal/middleware"
	"steel-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

// ProductRequest is the JSON form of a product write. On update, absent
// fields are left untouched.
type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Category    *string          `json:"category"`
	Specs       map[string]any   `json:"specs"`
}

// productWrite is a decoded product write from either JSON or a multipart form
type productWrite struct {
	ProductRequest
	image *service.ImageUpload
	file  multipart.File
}

func (p *productWrite) close() {
	if p.file != nil {
		p.file.Close()
	}
}

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	catalog        service.CatalogService
	uploadMaxBytes int64
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler. Request bodies for product
// writes are capped at uploadMaxBytes.
func NewProductHandler(catalog service.CatalogService, uploadMaxBytes int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:        catalog,
		uploadMaxBytes: uploadMaxBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers product routes on a router mounted at /products
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/", h.ListProducts)
	r.Get("/{productID}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, requireAdmin)
		r.Post("/", h.CreateProduct)
		r.Put("/{productID}", h.UpdateProduct)
		r.Delete("/{productID}", h.DeleteProduct)
	})
}

// ListProducts handles the filtered, paginated product listing
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query, err := parseProductQuery(r)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), query)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func parseProductQuery(r *http.Request) (service.ProductQuery, error) {
	q := r.URL.Query()
	query := service.ProductQuery{
		Search:       strings.TrimSpace(q.Get("search")),
		CategorySlug: strings.TrimSpace(q.Get("category")),
		SortBy:       q.Get("sort"),
		SortOrder:    q.Get("order"),
	}

	var err error
	if query.Page, err = queryInt(r, "page"); err != nil {
		return query, err
	}
	sizeKey := "page_size"
	if q.Get(sizeKey) == "" {
		sizeKey = "limit"
	}
	if query.PageSize, err = queryInt(r, sizeKey); err != nil {
		return query, err
	}
	if query.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		return query, err
	}
	if query.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		return query, err
	}

	return query, nil
}

// GetProduct returns a product with its images and reviews
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct handles product creation from JSON or multipart form data
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProductWrite(w, r)
	if !ok {
		return
	}
	defer req.close()

	input := service.CreateProductInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Price:       req.Price,
		Specs:       req.Specs,
		Category:    deref(req.Category),
		Image:       req.image,
	}
	if req.Stock != nil {
		input.Stock = *req.Stock
	}

	product, err := h.catalog.CreateProduct(r.Context(), input)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct applies a partial product update
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	req, ok := h.decodeProductWrite(w, r)
	if !ok {
		return
	}
	defer req.close()

	patch := domain.ProductPatch{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Stock:        req.Stock,
		Specs:        req.Specs,
		CategoryName: req.Category,
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, patch, req.image)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product with its images, reviews and cart lines
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted"})
}

// ListCategories returns every category
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) decodeProductWrite(w http.ResponseWriter, r *http.Request) (*productWrite, bool) {
	if h.uploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req := &productWrite{}
		if !decodeBody(w, r, h.logger, &req.ProductRequest) {
			return nil, false
		}
		return req, true
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	req, err := productFromForm(r.MultipartForm)
	if err != nil {
		middleware.RespondWithServiceError(w, r, h.logger, err)
		return nil, false
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		req.file = file
		req.image = &service.ImageUpload{Filename: header.Filename, Content: file}
	case !errors.Is(err, http.ErrMissingFile):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image upload")
		return nil, false
	}

	return req, true
}

// productFromForm reads product fields from a multipart form. Only fields
// present in the form are set.
func productFromForm(form *multipart.Form) (*productWrite, error) {
	req := &productWrite{}
	field := func(key string) (string, bool) {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return "", false
		}
		return values[0], true
	}

	if v, ok := field("name"); ok {
		req.Name = &v
	}
	if v, ok := field("description"); ok {
		req.Description = &v
	}
	if v, ok := field("category"); ok {
		req.Category = &v
	}
	if v, ok := field("price"); ok && strings.TrimSpace(v) != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: price must be a number", domain.ErrInvalidInput)
		}
		req.Price = &price
	}
	if v, ok := field("stock"); ok && strings.TrimSpace(v) != "" {
		stock, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: stock must be an integer", domain.ErrInvalidInput)
		}
		req.Stock = &stock
	}
	if v, ok := field("specs"); ok && strings.TrimSpace(v) != "" {
		if err := json.Unmarshal([]byte(v), &req.Specs); err != nil {
			return nil, fmt.Errorf("%w: specs must be a JSON object", domain.ErrInvalidInput)
		}
	}

	return req, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
