package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/db"
	httpx "github.com/mybudgetpal/budgetpal/internal/http"
	"github.com/mybudgetpal/budgetpal/internal/notifications"
	"github.com/mybudgetpal/budgetpal/internal/observability"
	"github.com/mybudgetpal/budgetpal/internal/redisclient"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing (optional)
	if cfg.TracingOn {
		shutdownTracer, err := observability.InitTracer(context.Background(), "budgetpal", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	// store client: constructed once here, injected everywhere, closed on
	// the way out
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	startupCtx, cancelStartup := config.WithTimeout(10 * time.Second)

	if err := db.Migrate(startupCtx, pool); err != nil {
		cancelStartup()
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureDemoUser(startupCtx, pool, cfg); err != nil {
		log.Error("demo user seed failed", "err", err)
	}

	cancelStartup()

	// refresh-signal fanout: redis when configured, log-only otherwise
	var notifier notifications.Notifier = notifications.NewLogNotifier()

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		defer rdb.Close()

		pingCtx, cancelPing := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(pingCtx)
		cancelPing()

		if err != nil {
			log.Warn("redis unreachable, falling back to log notifier", "err", err)
		} else {
			notifier = notifications.NewProtectedNotifier(
				notifications.NewRedisNotifier(rdb.Raw()),
				notifications.ProtectedNotifierConfig{},
			)
		}
	}

	router := httpx.NewRouter(log, pool, cfg, notifier)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
