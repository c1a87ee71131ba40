package janitor

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger is implemented by the postgres sessions repo.
type SessionPurger interface {
	DeleteDead(ctx context.Context, revokedGrace time.Duration) (int64, error)
}

type Config struct {
	Interval     time.Duration // how often to sweep
	RevokedGrace time.Duration // keep revoked rows around this long for auditing
	OpTimeout    time.Duration
}

// Janitor sweeps dead session rows on a ticker. Expired rows are already
// unusable (the JWT exp claim rejects them first); this just keeps the
// table from growing forever.
type Janitor struct {
	cfg      Config
	sessions SessionPurger
	log      *slog.Logger
}

func New(cfg Config, sessions SessionPurger, log *slog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RevokedGrace <= 0 {
		cfg.RevokedGrace = 24 * time.Hour
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Second
	}

	return &Janitor{
		cfg:      cfg,
		sessions: sessions,
		log:      log,
	}
}

func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	// sweep once at startup rather than waiting a full interval
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor received shutdown signal")
			return nil

		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, j.cfg.OpTimeout)
	defer cancel()

	deleted, err := j.sessions.DeleteDead(opCtx, j.cfg.RevokedGrace)

	if err != nil {
		j.log.Error("session sweep failed", "err", err)
		return
	}

	if deleted > 0 {
		j.log.Info("session sweep", "deleted", deleted)
	}
}
