package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mybudgetpal/budgetpal/internal/auth"
	"github.com/mybudgetpal/budgetpal/internal/cache"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/http/handlers"
	"github.com/mybudgetpal/budgetpal/internal/http/middlewares"
	"github.com/mybudgetpal/budgetpal/internal/notifications"
	"github.com/mybudgetpal/budgetpal/internal/observability"
	"github.com/mybudgetpal/budgetpal/internal/repo/postgres"
	"github.com/mybudgetpal/budgetpal/internal/security"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, notifier notifications.Notifier) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	slog.SetDefault(log)

	// dedicated registry so building a second router (tests) never
	// collides with previously registered collectors
	promRegistry := prometheus.NewRegistry()
	prom := observability.NewProm(promRegistry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("budgetpal"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB is plenty for form-sized payloads
	r.Use(prom.GinHandleMiddleware())

	// health + metrics
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool)
	sessionsRepo := postgres.NewSessionsRepo(pool)
	expensesRepo := postgres.NewExpensesRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	if notifier == nil {
		notifier = notifications.NewLogNotifier()
	}

	summaryCache := cache.New(30 * time.Second)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, sessionsRepo, hasher, cfg)
	expensesHandler := handlers.NewExpensesHandler(expensesRepo, summaryCache, notifier)
	dashboardHandler := handlers.NewDashboardHandler(expensesRepo, summaryCache)

	// credential endpoints get a tighter per-IP window
	loginLimiter := middlewares.NewRateLimiter(cfg.RateLimitBurst, cfg.RateLimitWindow)

	authGroup := r.Group("/auth")
	authGroup.Use(loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	authMw := middlewares.NewAuthMiddleware(jwtManager)

	protected := r.Group("/")
	protected.Use(authMw.RequireAuth())
	{
		protected.GET("/dashboard", dashboardHandler.Dashboard)

		protected.POST("/expenses", expensesHandler.CreateExpense)
		protected.GET("/expenses", expensesHandler.ListExpenses)
		protected.PUT("/expenses/:id", expensesHandler.UpdateExpense)
		protected.DELETE("/expenses/:id", expensesHandler.DeleteExpense)
	}

	return r
}
