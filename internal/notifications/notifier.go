package notifications

import "context"

// ExpensesChangedInput describes a ledger mutation so dependent views
// (dashboards, charts) know to re-read.
type ExpensesChangedInput struct {
	UserID    string
	ExpenseID string
	Op        string // "add" | "edit" | "delete"
}

type Notifier interface {
	ExpensesChanged(ctx context.Context, input ExpensesChangedInput) error
}
