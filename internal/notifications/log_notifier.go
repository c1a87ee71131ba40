package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier is the single-process fallback when redis is not configured:
// the in-process cache invalidation already refreshed local views, so the
// signal is only recorded.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) ExpensesChanged(ctx context.Context, in ExpensesChangedInput) error {
	slog.Default().InfoContext(ctx, "views.refresh",
		"user_id", in.UserID,
		"expense_id", in.ExpenseID,
		"op", in.Op,
	)
	return nil
}
