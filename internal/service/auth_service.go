package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"steel-store/internal/domain"
	"steel-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// DefaultTokenTTL is how long an issued bearer token stays valid
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", domain.ErrUnauthorized)
	ErrMissingCredentials = fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidInput)
)

// AuthService defines the interface for identity and session logic
type AuthService interface {
	Register(ctx context.Context, name, email, password, phone string) (token string, user *domain.User, err error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	ValidateToken(tokenString string) (uuid.UUID, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new user account with hashed password and issues a token
func (s *authService) Register(ctx context.Context, name, email, password, phone string) (string, *domain.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return "", nil, ErrMissingCredentials
	}

	// Check if user already exists
	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return "", nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return "", nil, repository.ErrUserAlreadyExists
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Phone:        strings.TrimSpace(phone),
		CreatedAt:    time.Now(),
	}

	// The unique index still guards against a concurrent registration
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, user, nil
}

// Login authenticates a user and returns a signed token
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, user, nil
}

// ValidateToken verifies the signature and expiry of a token and returns the
// user id carried in its subject
func (s *authService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}

// GetUserByID retrieves a user by ID
func (s *authService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// IsAdmin reports whether the user currently holds the admin flag. The flag
// is read from the store on every call so revocations apply immediately.
func (s *authService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// CreateAdmin creates an admin account, or promotes an existing account with
// the same email and resets its password
func (s *authService) CreateAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.userRepo.UpdateCredentials(ctx, existing.ID, hashedPassword, true); err != nil {
			return nil, err
		}
		existing.PasswordHash = hashedPassword
		existing.IsAdmin = true
		return existing, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		IsAdmin:      true,
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// hashPassword hashes a password using bcrypt with cost factor 10
func (s *authService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *authService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateToken signs an HS256 token whose subject is the user id
func (s *authService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
