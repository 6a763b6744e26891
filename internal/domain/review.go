package domain

import (
	"time"

	"github.com/google/uuid"
)

// Review is a single rating submission. A user may review a product repeatedly.
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UserName  string    `json:"user" db:"-"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
