package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"steel-store/internal/domain"
	"steel-store/internal/middleware"
	"steel-store/internal/repository"
	"steel-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memoryUsers is an in-memory UserRepository
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) UpdateCredentials(ctx context.Context, id uuid.UUID, passwordHash string, isAdmin bool) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash, user.IsAdmin = passwordHash, isAdmin
	return nil
}

// stubCatalog records the arguments it receives
type stubCatalog struct {
	query    service.ProductQuery
	created  *service.CreateProductInput
	image    string
	patch    *domain.ProductPatch
	products map[uuid.UUID]*domain.Product
}

func (s *stubCatalog) ListProducts(ctx context.Context, query service.ProductQuery) (*service.ProductPage, error) {
	s.query = query
	page, size := service.NormalizePage(query.Page, query.PageSize)
	return &service.ProductPage{Items: []*domain.Product{}, Page: page, PageSize: size}, nil
}

func (s *stubCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &domain.ProductDetail{Product: *product, Images: []*domain.ProductImage{}, Reviews: []*domain.Review{}}, nil
}

func (s *stubCatalog) CreateProduct(ctx context.Context, input service.CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, service.ErrProductNameRequired
	}
	if input.Price == nil {
		return nil, service.ErrProductPriceRequired
	}
	if input.Image != nil {
		content, _ := io.ReadAll(input.Image.Content)
		s.image = input.Image.Filename + ":" + string(content)
	}
	s.created = &input
	product := &domain.Product{ID: uuid.New(), Name: input.Name, Slug: domain.Slugify(input.Name), Price: *input.Price, Stock: input.Stock}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubCatalog) UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch, image *service.ImageUpload) (*domain.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	s.patch = &patch
	patch.Apply(product)
	return product, nil
}

func (s *stubCatalog) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubCatalog) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return []*domain.Category{{ID: uuid.New(), Name: "Construction", Slug: "construction"}}, nil
}

// stubCart keeps one line list per user
type stubCart struct {
	lines map[uuid.UUID][]*domain.CartItem
}

func (s *stubCart) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return domain.NewCart(uuid.Nil, userID, s.lines[userID]), nil
}

func (s *stubCart) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity *int) (*domain.CartItem, error) {
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty < 1 {
		return nil, service.ErrInvalidQuantity
	}
	item := &domain.CartItem{ID: uuid.New(), ProductID: productID, Quantity: qty, Price: decimal.NewFromInt(10)}
	s.lines[userID] = append(s.lines[userID], item)
	return item, nil
}

func (s *stubCart) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	for _, item := range s.lines[userID] {
		if item.ID == itemID {
			item.Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (s *stubCart) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.UpdateItem(ctx, userID, itemID, 0)
}

// stubOrders serves one pre-seeded order per user and honors the owner-or-admin rule
type stubOrders struct {
	auth   service.AuthService
	orders map[uuid.UUID]*domain.Order
	status string
}

func (s *stubOrders) PlaceOrder(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error) {
	return nil, repository.ErrCartEmpty
}

func (s *stubOrders) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrders) ListAllOrders(ctx context.Context, status string) ([]*domain.Order, error) {
	s.status = status
	out := []*domain.Order{}
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOrders) GetOrder(ctx context.Context, callerID, orderID uuid.UUID) (*domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.UserID != callerID {
		isAdmin, err := s.auth.IsAdmin(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, service.ErrOrderForbidden
		}
	}
	return order, nil
}

func (s *stubOrders) SetStatus(ctx context.Context, callerID, orderID uuid.UUID, status string) (*domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if !domain.OrderStatus(status).Valid() {
		return nil, service.ErrInvalidStatus
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

type stubReviews struct {
	catalog *stubCatalog
}

func (s *stubReviews) ListReviews(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	if _, ok := s.catalog.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	return []*domain.Review{}, nil
}

func (s *stubReviews) AddReview(ctx context.Context, userID, productID uuid.UUID, rating *int, comment string) (*domain.Review, error) {
	if rating == nil {
		return nil, service.ErrRatingRequired
	}
	if _, ok := s.catalog.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	return &domain.Review{ID: uuid.New(), UserID: userID, ProductID: productID, Rating: *rating, Comment: comment}, nil
}

type testAPI struct {
	router  http.Handler
	users   *memoryUsers
	auth    service.AuthService
	catalog *stubCatalog
	cart    *stubCart
	orders  *stubOrders
}

const testUploadLimit = 1 << 16

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	users := &memoryUsers{users: map[string]*domain.User{}}
	auth := service.NewAuthService(users, "transport-secret", 0)
	catalog := &stubCatalog{products: map[uuid.UUID]*domain.Product{}}
	api := &testAPI{
		users:   users,
		auth:    auth,
		catalog: catalog,
		cart:    &stubCart{lines: map[uuid.UUID][]*domain.CartItem{}},
		orders:  &stubOrders{auth: auth, orders: map[uuid.UUID]*domain.Order{}},
	}

	authMiddleware := middleware.AuthMiddleware(auth, logger)
	requireAdmin := middleware.RequireAdmin(auth, logger)
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		products := NewProductHandler(catalog, testUploadLimit, logger)
		reviews := NewReviewHandler(&stubReviews{catalog: catalog}, logger)

		NewAuthHandler(auth, logger).RegisterRoutes(r, authMiddleware, passthrough)
		r.Get("/categories", products.ListCategories)
		r.Route("/products", func(r chi.Router) {
			products.RegisterRoutes(r, authMiddleware, requireAdmin)
			reviews.RegisterRoutes(r, authMiddleware)
		})
		NewCartHandler(api.cart, logger).RegisterRoutes(r, authMiddleware)
		NewOrderHandler(api.orders, logger).RegisterRoutes(r, authMiddleware, requireAdmin)
	})
	api.router = r

	return api
}

// signUp registers an account through the API and returns its token
func (a *testAPI) signUp(t *testing.T, name string, admin bool) (string, *domain.User) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    name + "@steel.test",
		Password: "Password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", name, w.Code, w.Body.String())
	}

	var resp AuthResponse
	decode(t, w, &resp)
	if admin {
		if _, err := a.auth.CreateAdmin(context.Background(), name, name+"@steel.test", "Password123"); err != nil {
			t.Fatalf("promote %s: %v", name, err)
		}
	}
	return resp.Token, resp.User
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, token)
}

func (a *testAPI) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v: %s", err, w.Body.String())
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	decode(t, w, &resp)
	return resp.Error.Message
}
