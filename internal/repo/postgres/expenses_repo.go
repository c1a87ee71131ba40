package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mybudgetpal/budgetpal/internal/domain/expense"
	"github.com/mybudgetpal/budgetpal/internal/observability"
)

type ExpensesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExpensesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExpensesRepo {
	return &ExpensesRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *ExpensesRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {

		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *ExpensesRepo) Create(ctx context.Context, userID string, req expense.CreateExpenseRequest, category expense.Category) (expense.Expense, error) {
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

	err := repo.observe("expenses.create", func() error {
		_, execErr := repo.pool.Exec(ctx,
			`INSERT INTO expenses (id, user_id, amount, description, category, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, e.UserID, e.Amount, e.Description, e.Category, e.CreatedAt, e.UpdatedAt,
		)
		return execErr
	})

	if err != nil {
		var pgErr *pgconn.PgError
		// owner row vanished between auth and insert
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return expense.Expense{}, expense.ErrNotFound
		}
		return expense.Expense{}, err
	}

	return e, nil
}

// ListByOwner returns the user's expenses, newest first, optionally limited
// to one category.
func (repo *ExpensesRepo) ListByOwner(ctx context.Context, userID string, filter expense.ListFilter) (items []expense.Expense, err error) {
	query := `
		SELECT id, user_id, amount, description, category, created_at, updated_at
		FROM expenses
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if filter.Category != nil {
		query += ` AND category = $2`
		args = append(args, *filter.Category)
	}

	// stable ordering: newest first, id breaks ties
	query += ` ORDER BY created_at DESC, id DESC`

	var rows pgx.Rows

	err = repo.observe("expenses.list_by_owner", func() error {
		rows, err = repo.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	items = make([]expense.Expense, 0)

	for rows.Next() {
		var e expense.Expense

		scanErr := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Description, &e.Category, &e.CreatedAt, &e.UpdatedAt)

		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, e)
	}

	if rows.Err() != nil {
		if repo.prom != nil {
			repo.prom.DbErrorsTotal.WithLabelValues("expenses.list_by_owner", "rows_err").Inc()
		}
		return nil, rows.Err()
	}

	return items, nil
}

func (repo *ExpensesRepo) GetOwned(ctx context.Context, userID, expenseID string) (expense.Expense, error) {
	var e expense.Expense

	err := repo.observe("expenses.get_owned", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, user_id, amount, description, category, created_at, updated_at
			 FROM expenses
			 WHERE id = $1 AND user_id = $2`,
			expenseID, userID,
		).Scan(&e.ID, &e.UserID, &e.Amount, &e.Description, &e.Category, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	return e, nil
}

// UpdateOwned applies the compound owner predicate: a mismatched owner and a
// missing id both scan zero rows and come back as expense.ErrNotFound.
func (repo *ExpensesRepo) UpdateOwned(ctx context.Context, userID, expenseID string, req expense.UpdateExpenseRequest, category expense.Category) (expense.Expense, error) {
	var e expense.Expense

	err := repo.observe("expenses.update_owned", func() error {
		return repo.pool.QueryRow(ctx,
			`UPDATE expenses
				SET amount = $3,
						description = $4,
						category = $5,
						updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING id, user_id, amount, description, category, created_at, updated_at`,
			expenseID,
			userID,
			req.Amount,
			req.Description,
			category,
		).Scan(
			&e.ID,
			&e.UserID,
			&e.Amount,
			&e.Description,
			&e.Category,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	return e, nil
}

func (repo *ExpensesRepo) DeleteOwned(ctx context.Context, userID, expenseID string) error {
	var tag pgconn.CommandTag

	err := repo.observe("expenses.delete_owned", func() error {
		var execErr error
		tag, execErr = repo.pool.Exec(ctx,
			`DELETE FROM expenses WHERE id = $1 AND user_id = $2`,
			expenseID, userID,
		)
		return execErr
	})

	if err != nil {
		return err
	}

	// zero rows deleted: missing id or someone else's expense
	if tag.RowsAffected() == 0 {
		return expense.ErrNotFound
	}

	return nil
}
