package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mybudgetpal/budgetpal/internal/domain/expense"
)

// ExpensesRepo mirrors the postgres repo contract in memory, including the
// owner predicate: lookups by id alone do not exist.
type ExpensesRepo struct {
	mu    sync.RWMutex
	items map[string]expense.Expense
}

func NewExpensesRepo() *ExpensesRepo {
	return &ExpensesRepo{
		items: make(map[string]expense.Expense),
	}
}

func (r *ExpensesRepo) Create(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error) {
	now := time.Now().UTC()
	e := expense.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *ExpensesRepo) ListByOwner(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error) {
	r.mu.RLock()
	out := make([]expense.Expense, 0)

	for _, e := range r.items {
		if e.UserID != userID {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *ExpensesRepo) GetOwned(ctx context.Context, userID, expenseID string) (expense.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[expenseID]

	if !ok || e.UserID != userID {
		return expense.Expense{}, expense.ErrNotFound
	}

	return e, nil
}

func (r *ExpensesRepo) UpdateOwned(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[expenseID]

	if !ok || e.UserID != userID {
		return expense.Expense{}, expense.ErrNotFound
	}

	e.Amount = req.Amount
	e.Description = req.Description
	e.Category = category
	e.UpdatedAt = time.Now().UTC()

	r.items[expenseID] = e

	return e, nil
}

func (r *ExpensesRepo) DeleteOwned(ctx context.Context, userID, expenseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[expenseID]

	if !ok || e.UserID != userID {
		return expense.ErrNotFound
	}

	delete(r.items, expenseID)

	return nil
}
