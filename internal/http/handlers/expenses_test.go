package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mybudgetpal/budgetpal/internal/cache"
	"github.com/mybudgetpal/budgetpal/internal/domain/expense"
	"github.com/mybudgetpal/budgetpal/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeExpensesRepo struct {
	CreateFn      func(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error)
	ListByOwnerFn func(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error)
	GetOwnedFn    func(ctx context.Context, userID, expenseID string) (expense.Expense, error)
	UpdateOwnedFn func(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error)
	DeleteOwnedFn func(ctx context.Context, userID, expenseID string) error
}

func (f *fakeExpensesRepo) Create(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error) {
	return f.CreateFn(ctx, userID, req, category)
}

func (f *fakeExpensesRepo) ListByOwner(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error) {
	return f.ListByOwnerFn(ctx, userID, filter)
}

func (f *fakeExpensesRepo) GetOwned(ctx context.Context, userID, expenseID string) (expense.Expense, error) {
	return f.GetOwnedFn(ctx, userID, expenseID)
}

func (f *fakeExpensesRepo) UpdateOwned(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error) {
	return f.UpdateOwnedFn(ctx, userID, expenseID, req, category)
}

func (f *fakeExpensesRepo) DeleteOwned(ctx context.Context, userID, expenseID string) error {
	return f.DeleteOwnedFn(ctx, userID, expenseID)
}

// asUser stamps a fixed identity the way the auth middleware would.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middlewares.CtxUserID, userID)
		}
		c.Next()
	}
}

func newExpensesRouter(repo ExpenseStore, summary *cache.UserCache, userID string) *gin.Engine {
	r := gin.New()
	h := NewExpensesHandler(repo, summary, nil)

	g := r.Group("/", asUser(userID))
	g.POST("/expenses", h.CreateExpense)
	g.GET("/expenses", h.ListExpenses)
	g.PUT("/expenses/:id", h.UpdateExpense)
	g.DELETE("/expenses/:id", h.DeleteExpense)

	return r
}

type errEnvelope struct {
	Error APIError `json:"error"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()

	var env errEnvelope

	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (body: %s)", err, w.Body.String())
	}

	return env.Error
}

func TestCreateExpense(t *testing.T) {
	t.Run("creates and returns 201", func(t *testing.T) {
		var gotUserID string
		var gotCategory expense.Category

		repo := &fakeExpensesRepo{
			CreateFn: func(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error) {
				gotUserID = userID
				gotCategory = category
				return expense.Expense{
					ID:          uuid.NewString(),
					UserID:      userID,
					Amount:      req.Amount,
					Description: req.Description,
					Category:    category,
					CreatedAt:   time.Now().UTC(),
					UpdatedAt:   time.Now().UTC(),
				}, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		body := `{"amount": 12.5, "description": "lunch", "categoryType": "food"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if gotUserID != "user-1" {
			t.Fatalf("userID passed to repo: %q", gotUserID)
		}

		// lower-case input is normalized before it hits the store
		if gotCategory != expense.CategoryFood {
			t.Fatalf("category passed to repo: %q", gotCategory)
		}

		var out expense.Expense
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if out.Amount != 12.5 || out.Description != "lunch" {
			t.Fatalf("unexpected body: %+v", out)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			CreateFn: func(context.Context, string, expense.CreateExpenseRequest, expense.Category) (expense.Expense, error) {
				t.Fatal("repo must not be called")
				return expense.Expense{}, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		body := `{"amount": 0, "description": "lunch", "categoryType": "FOOD"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if e := decodeErr(t, w); e.Code != "invalid_request" {
			t.Fatalf("code: got %q", e.Code)
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			CreateFn: func(context.Context, string, expense.CreateExpenseRequest, expense.Category) (expense.Expense, error) {
				t.Fatal("repo must not be called")
				return expense.Expense{}, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		body := `{"amount": 5, "description": "x", "categoryType": "GROCERIES"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("missing identity is a 401", func(t *testing.T) {
		repo := &fakeExpensesRepo{}

		r := newExpensesRouter(repo, nil, "")

		body := `{"amount": 5, "description": "x", "categoryType": "FOOD"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got %d", w.Code)
		}
	})

	t.Run("invalidates the owner's summary cache", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			CreateFn: func(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error) {
				return expense.Expense{ID: uuid.NewString(), UserID: userID}, nil
			},
		}

		summary := cache.New(time.Minute)
		summary.Set("user-1", "dashboard:all", "stale")

		r := newExpensesRouter(repo, summary, "user-1")

		body := `{"amount": 5, "description": "x", "categoryType": "FOOD"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if _, ok := summary.Get("user-1", "dashboard:all"); ok {
			t.Fatal("expected stale summary to be dropped after a mutation")
		}
	})
}

func TestListExpenses(t *testing.T) {
	t.Run("returns items and count", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			ListByOwnerFn: func(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error) {
				return []expense.Expense{
					{ID: "e1", Amount: 10, Category: expense.CategoryFood},
					{ID: "e2", Amount: 800, Category: expense.CategoryRent},
				}, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		var out struct {
			Items []expense.Expense `json:"items"`
			Count int               `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Count != 2 || len(out.Items) != 2 {
			t.Fatalf("unexpected payload: %+v", out)
		}
	})

	t.Run("passes the category filter through", func(t *testing.T) {
		var gotFilter expense.ListFilter

		repo := &fakeExpensesRepo{
			ListByOwnerFn: func(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, error) {
				gotFilter = filter
				return nil, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/expenses?category=rent", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if gotFilter.Category == nil || *gotFilter.Category != expense.CategoryRent {
			t.Fatalf("filter: %+v", gotFilter)
		}
	})

	t.Run("unknown category query is a 400", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			ListByOwnerFn: func(context.Context, string, expense.ListFilter) ([]expense.Expense, error) {
				t.Fatal("repo must not be called")
				return nil, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/expenses?category=BOGUS", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d", w.Code)
		}

		if e := decodeErr(t, w); e.Code != "invalid_category" {
			t.Fatalf("code: got %q", e.Code)
		}
	})
}

func TestUpdateExpense(t *testing.T) {
	validID := uuid.NewString()

	t.Run("updates and returns 200", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			UpdateOwnedFn: func(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error) {
				return expense.Expense{
					ID:          expenseID,
					UserID:      userID,
					Amount:      req.Amount,
					Description: req.Description,
					Category:    category,
				}, nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		body := `{"amount": 99, "description": "updated", "categoryType": "OTHER"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/expenses/"+validID, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		repo := &fakeExpensesRepo{}

		r := newExpensesRouter(repo, nil, "user-1")

		body := `{"amount": 99, "description": "updated", "categoryType": "OTHER"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/expenses/not-a-uuid", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status: got %d", w.Code)
		}

		if e := decodeErr(t, w); e.Code != "invalid_id" {
			t.Fatalf("code: got %q", e.Code)
		}
	})

	t.Run("someone else's expense looks missing", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			UpdateOwnedFn: func(context.Context, string, string, expense.UpdateExpenseRequest, expense.Category) (expense.Expense, error) {
				return expense.Expense{}, expense.ErrNotFound
			},
		}

		r := newExpensesRouter(repo, nil, "user-2")

		body := `{"amount": 1, "description": "hijack", "categoryType": "OTHER"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/expenses/"+validID, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if e := decodeErr(t, w); e.Code != "not_found" {
			t.Fatalf("code: got %q", e.Code)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	validID := uuid.NewString()

	t.Run("deletes and returns 204", func(t *testing.T) {
		var gotExpenseID string

		repo := &fakeExpensesRepo{
			DeleteOwnedFn: func(ctx context.Context, userID, expenseID string) error {
				gotExpenseID = expenseID
				return nil
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/expenses/"+validID, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}

		if gotExpenseID != validID {
			t.Fatalf("expenseID passed to repo: %q", gotExpenseID)
		}
	})

	t.Run("missing row is a 404", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			DeleteOwnedFn: func(context.Context, string, string) error {
				return expense.ErrNotFound
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/expenses/"+validID, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("status: got %d", w.Code)
		}
	})

	t.Run("repo failure is a 500", func(t *testing.T) {
		repo := &fakeExpensesRepo{
			DeleteOwnedFn: func(context.Context, string, string) error {
				return errors.New("connection reset")
			},
		}

		r := newExpensesRouter(repo, nil, "user-1")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/expenses/"+validID, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status: got %d", w.Code)
		}
	})
}
