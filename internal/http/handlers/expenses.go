package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mybudgetpal/budgetpal/internal/cache"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/domain/expense"
	"github.com/mybudgetpal/budgetpal/internal/http/middlewares"
	"github.com/mybudgetpal/budgetpal/internal/notifications"
)

type ExpenseStore interface {
	Create(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error)
	ListByOwner(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error)
	GetOwned(ctx context.Context, userID, expenseID string) (expense.Expense, error)
	UpdateOwned(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error)
	DeleteOwned(ctx context.Context, userID, expenseID string) error
}

type ExpensesHandler struct {
	repo     ExpenseStore
	summary  *cache.UserCache
	notifier notifications.Notifier
}

func NewExpensesHandler(repo ExpenseStore, summary *cache.UserCache, notifier notifications.Notifier) *ExpensesHandler {
	return &ExpensesHandler{
		repo:     repo,
		summary:  summary,
		notifier: notifier,
	}
}

func (h *ExpensesHandler) CreateExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req expense.CreateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	category, err := expense.ParseCategory(req.Category)

	if err != nil {
		RespondBadRequest(ctx, "", "Invalid request body", gin.H{"fields": []FieldError{
			{Field: "categoryType", Rule: "oneof", Message: "must be one of FOOD, RENT, ENTERTAINMENT, OTHER"},
		}})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, userID, req, category)

	if err != nil {
		RespondInternal(ctx, "Could not create expense")
		return
	}

	h.signalRefresh(ctx, userID, e.ID, "add")

	ctx.JSON(http.StatusCreated, e)
}

func (h *ExpensesHandler) ListExpenses(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := categoryFilterFromQuery(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByOwner(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list expenses")

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ExpensesHandler) UpdateExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	expenseID := ctx.Param("id")

	if _, err := uuid.Parse(expenseID); err != nil {
		RespondBadRequest(ctx, "invalid_id", "expense id must be a valid UUID", nil)
		return
	}

	var req expense.UpdateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	category, err := expense.ParseCategory(req.Category)

	if err != nil {
		RespondBadRequest(ctx, "", "Invalid request body", gin.H{"fields": []FieldError{
			{Field: "categoryType", Rule: "oneof", Message: "must be one of FOOD, RENT, ENTERTAINMENT, OTHER"},
		}})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// owner predicate inside the repo: someone else's expense scans zero
	// rows, indistinguishable from a missing one
	e, err := h.repo.UpdateOwned(cctx, userID, expenseID, req, category)

	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		RespondInternal(ctx, "Could not update expense")
		return
	}

	h.signalRefresh(ctx, userID, e.ID, "edit")

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) DeleteExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	expenseID := ctx.Param("id")

	if _, err := uuid.Parse(expenseID); err != nil {
		RespondBadRequest(ctx, "invalid_id", "expense id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.DeleteOwned(cctx, userID, expenseID)

	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		RespondInternal(ctx, "Could not delete expense")
		return
	}

	h.signalRefresh(ctx, userID, expenseID, "delete")

	ctx.Status(http.StatusNoContent)
}

// signalRefresh is the post-mutation side effect: drop the owner's cached
// summaries and tell other processes to re-read. Best effort; the mutation
// itself has already committed.
func (h *ExpensesHandler) signalRefresh(ctx *gin.Context, userID, expenseID, op string) {
	if h.summary != nil {
		h.summary.Invalidate(userID)
	}

	if h.notifier == nil {
		return
	}

	err := h.notifier.ExpensesChanged(ctx.Request.Context(), notifications.ExpensesChangedInput{
		UserID:    userID,
		ExpenseID: expenseID,
		Op:        op,
	})

	if err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "refresh_signal_failed", "err", err, "op", op)
	}
}

// categoryFilterFromQuery reads ?category=FOOD. Absent means all; an unknown
// value is a 400 (it already failed, no point returning an empty list).
func categoryFilterFromQuery(ctx *gin.Context) (expense.ListFilter, bool) {
	raw, exists := ctx.GetQuery("category")

	if !exists || raw == "" {
		return expense.ListFilter{}, true
	}

	category, err := expense.ParseCategory(raw)

	if err != nil {
		RespondBadRequest(ctx, "invalid_category", "category must be one of FOOD, RENT, ENTERTAINMENT, OTHER", nil)
		return expense.ListFilter{}, false
	}

	return expense.ListFilter{Category: &category}, true
}
