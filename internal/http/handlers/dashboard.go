package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mybudgetpal/budgetpal/internal/cache"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/domain/expense"
	"github.com/mybudgetpal/budgetpal/internal/http/middlewares"
)

// DashboardPayload is what the expense list page renders: the entries plus
// the aggregates for the balance header and the category chart.
type DashboardPayload struct {
	Items      []expense.Expense            `json:"items"`
	Count      int                          `json:"count"`
	Total      float64                      `json:"total"`
	ByCategory map[expense.Category]float64 `json:"byCategory"`
}

type DashboardHandler struct {
	repo    ExpenseStore
	summary *cache.UserCache
}

func NewDashboardHandler(repo ExpenseStore, summary *cache.UserCache) *DashboardHandler {
	return &DashboardHandler{
		repo:    repo,
		summary: summary,
	}
}

func (h *DashboardHandler) Dashboard(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := categoryFilterFromQuery(ctx)

	if !ok {
		return
	}

	cacheKey := "dashboard:all"

	if filter.Category != nil {
		cacheKey = "dashboard:" + string(*filter.Category)
	}

	if h.summary != nil {
		if v, hit := h.summary.Get(userID, cacheKey); hit {
			if payload, ok := v.(DashboardPayload); ok {
				RespondJSONWithETag(ctx, http.StatusOK, payload)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByOwner(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	// an empty map here means "no data" downstream, never an error
	payload := DashboardPayload{
		Items:      items,
		Count:      len(items),
		Total:      expense.TotalBalance(items),
		ByCategory: expense.GroupByCategory(items),
	}

	if h.summary != nil {
		h.summary.Set(userID, cacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}
