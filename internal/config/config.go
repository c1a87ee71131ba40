package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// Auth
	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int
	BcryptCost          int

	// Optional demo account seeded at startup.
	DemoEmail    string
	DemoPassword string
	DemoName     string

	// Redis (refresh-signal fanout); empty addr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP
	CORSOrigins     []string
	RateLimitBurst  int
	RateLimitWindow time.Duration

	// Tracing
	OTLPEndpoint string
	TracingOn    bool
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		JWTSecret:           getEnv("JWT_SECRET", "dev-only-secret"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),
		BcryptCost:          getEnvInt("BCRYPT_COST", 10),

		DemoEmail:    getEnv("DEMO_EMAIL", ""),
		DemoPassword: getEnv("DEMO_PASSWORD", ""),
		DemoName:     getEnv("DEMO_NAME", "Demo User"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CORSOrigins:     splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingOn:    getEnv("OTEL_TRACES_ENABLED", "") == "1",
	}
}

func buildDBURL() string {
	// a fully formed DATABASE_URL wins over the individual parts
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "budgetpal")
	pass := getEnv("DB_PASSWORD", "budgetpal")
	name := getEnv("DB_NAME", "budgetpal")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
