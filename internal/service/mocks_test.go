package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, passwordHash string, isAdmin bool) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	user.IsAdmin = isAdmin
	return nil
}

func (m *mockUserRepository) add(name string, isAdmin bool) *domain.User {
	user := &domain.User{ID: uuid.New(), Name: name, Email: name + "@example.com", IsAdmin: isAdmin}
	m.users[user.Email] = user
	return user
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	images   map[uuid.UUID][]*domain.ProductImage
	created  []string // category names passed to Create
	listArgs repository.ProductFilter
	listErr  error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		images:   make(map[uuid.UUID][]*domain.ProductImage),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product, categoryName string) error {
	for _, p := range m.products {
		if p.Slug == product.Slug {
			return repository.ErrProductSlugTaken
		}
	}
	m.created = append(m.created, categoryName)
	product.CategoryName = categoryName
	m.products[product.ID] = product
	if product.ImageURL != "" {
		m.images[product.ID] = append(m.images[product.ID], &domain.ProductImage{ID: uuid.New(), ProductID: product.ID, URL: product.ImageURL, IsPrimary: true})
	}
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id uuid.UUID, patch *domain.ProductPatch) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	patch.Apply(product)
	if patch.CategoryName != nil {
		product.CategoryName = *patch.CategoryName
	}
	return product, nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	delete(m.images, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.products[id]
	return ok, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.listArgs = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	products := []*domain.Product{}
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, len(products), nil
}

func (m *mockProductRepository) Images(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	images := m.images[productID]
	if images == nil {
		images = []*domain.ProductImage{}
	}
	return images, nil
}

type mockCategoryRepository struct {
	categories []*domain.Category
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.categories = append(m.categories, category)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) FindOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	c := &domain.Category{ID: uuid.New(), Name: name, Slug: domain.Slugify(name)}
	m.categories = append(m.categories, c)
	return c, nil
}

type mockReviewRepository struct {
	products *mockProductRepository
	reviews  []*domain.Review
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if _, ok := m.products.products[review.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	if _, ok := m.products.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	out := []*domain.Review{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].ProductID == productID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

// mockCartRepository keeps carts in memory and mirrors the store's ownership
// and upsert rules
type mockCartRepository struct {
	products *mockProductRepository
	lines    map[uuid.UUID][]*domain.CartItem // by user
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{products: products, lines: make(map[uuid.UUID][]*domain.CartItem)}
}

func (m *mockCartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	items := []*domain.CartItem{}
	for _, line := range m.lines[userID] {
		product := m.products.products[line.ProductID]
		copied := *line
		copied.Price = product.Price
		copied.ProductName = product.Name
		items = append(items, &copied)
	}
	return domain.NewCart(uuid.Nil, userID, items), nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if _, ok := m.products.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	for _, line := range m.lines[userID] {
		if line.ProductID == productID {
			line.Quantity += quantity
			return line, nil
		}
	}
	line := &domain.CartItem{ID: uuid.New(), ProductID: productID, Quantity: quantity}
	m.lines[userID] = append(m.lines[userID], line)
	return line, nil
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, userID, itemID)
	}
	for _, line := range m.lines[userID] {
		if line.ID == itemID {
			line.Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	lines := m.lines[userID]
	for i, line := range lines {
		if line.ID == itemID {
			m.lines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

// mockOrderRepository places orders from a mockCartRepository under a mutex,
// standing in for the store transaction
type mockOrderRepository struct {
	mu     sync.Mutex
	carts  *mockCartRepository
	orders map[uuid.UUID]*domain.Order
	err    error
}

func newMockOrderRepository(carts *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{carts: carts, orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) PlaceFromCart(ctx context.Context, userID uuid.UUID, shipping domain.ShippingInfo) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	cart, _ := m.carts.GetByUser(ctx, userID)
	if len(cart.Items) == 0 {
		return nil, repository.ErrCartEmpty
	}
	order := domain.NewOrderFromCart(userID, shipping, cart.Items, time.Now())
	m.orders[order.ID] = order
	m.carts.lines[userID] = nil
	return order, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListAll(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	order.Status = status
	return order, nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{topic: topic, key: key, event: event})
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

type mockRecorder struct {
	placed   int
	value    decimal.Decimal
	statuses []domain.OrderStatus
}

func (m *mockRecorder) OrderPlaced(total decimal.Decimal) {
	m.placed++
	m.value = m.value.Add(total)
}

func (m *mockRecorder) OrderStatusChanged(status domain.OrderStatus) {
	m.statuses = append(m.statuses, status)
}

type mockImageSaver struct {
	saved []string
	err   error
}

func (m *mockImageSaver) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", errors.New("unreadable upload")
	}
	m.saved = append(m.saved, originalName)
	return "http://localhost:8080/uploads/" + originalName, nil
}
