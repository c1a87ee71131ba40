package expense

import (
	"errors"
	"strings"
	"time"
)

// Category classifies an expense. Stored upper-case.
type Category string

const (
	CategoryFood          Category = "FOOD"
	CategoryRent          Category = "RENT"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryOther         Category = "OTHER"
)

// ParseCategory normalizes user input ("food", "Food", " FOOD ") to the
// canonical enum value.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))

	switch c {
	case CategoryFood, CategoryRent, CategoryEntertainment, CategoryOther:
		return c, nil
	default:
		return "", ErrInvalidCategory
	}
}

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"` // owner, never exposed
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    Category  `json:"categoryType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound covers both a missing row and a row owned by someone
	// else. The store predicate cannot tell them apart and the API must
	// not leak which one it was.
	ErrNotFound        = errors.New("expense not found")
	ErrInvalidCategory = errors.New("invalid category")
)

type CreateExpenseRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,min=1,max=500"`
	Category    string  `json:"categoryType" binding:"required"`
}

// a full update payload; owner and id are taken from the route, never the body.
type UpdateExpenseRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,min=1,max=500"`
	Category    string  `json:"categoryType" binding:"required"`
}

// ListFilter narrows a user's expenses; nil Category means all categories.
type ListFilter struct {
	Category *Category
}
