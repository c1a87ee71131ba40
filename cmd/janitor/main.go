package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/db"
	"github.com/mybudgetpal/budgetpal/internal/janitor"
	"github.com/mybudgetpal/budgetpal/internal/observability"
	"github.com/mybudgetpal/budgetpal/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	sessionsRepo := postgres.NewSessionsRepo(pool)

	j := janitor.New(janitor.Config{
		Interval:     time.Hour,
		RevokedGrace: 24 * time.Hour,
	}, sessionsRepo, log)

	log.Info("janitor has started")

	if err := j.Run(ctx); err != nil {
		log.Error("janitor stopped with error", "err", err)
	}

	log.Info("janitor shutdown complete")
}
