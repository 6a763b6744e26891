package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"steel-store/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrUserAlreadyExists     = fmt.Errorf("%w: user with this email already exists", domain.ErrConflict)
	ErrCategoryNotFound      = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrCategoryAlreadyExists = fmt.Errorf("%w: category with this name already exists", domain.ErrConflict)
	ErrProductNotFound       = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrProductSlugTaken      = fmt.Errorf("%w: a product with this slug already exists", domain.ErrConflict)
	ErrCartItemNotFound      = fmt.Errorf("cart item %w", domain.ErrNotFound)
	ErrCartEmpty             = fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	ErrOrderNotFound         = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrValueOutOfRange       = fmt.Errorf("%w: value is out of range", domain.ErrInvalidInput)
)

// Postgres SQLSTATE codes the repositories react to
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so query helpers can run
// inside or outside a transaction
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// constraintViolation returns the violated constraint name when err is a
// postgres error with the given SQLSTATE code
func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isUniqueViolation(err error, constraint string) bool {
	name, ok := constraintViolation(err, pgUniqueViolation)
	return ok && (constraint == "" || name == constraint)
}

// isOutOfRange reports a numeric value too large for its column, such as a
// summed cart quantity past INTEGER or an order total past DECIMAL(12, 2)
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange
}

func isForeignKeyViolation(err error, constraint string) bool {
	name, ok := constraintViolation(err, pgForeignKeyViolation)
	return ok && (constraint == "" || name == constraint)
}
