package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/security"
)

// EnsureDemoUser creates the configured demo account if it does not exist
// yet. With no demo credentials configured this is a no-op.
func EnsureDemoUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.DemoEmail == "" || cfg.DemoPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.DemoEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash(cfg.DemoPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), cfg.DemoEmail, hash, cfg.DemoName, now, now,
	)

	return err
}
