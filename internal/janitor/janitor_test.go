package janitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakePurger struct {
	mu    sync.Mutex
	calls int
	grace time.Duration
}

func (f *fakePurger) DeleteDead(ctx context.Context, revokedGrace time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.grace = revokedGrace
	return 2, nil
}

func (f *fakePurger) snapshot() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.grace
}

func TestRunSweepsOnStartupAndOnTick(t *testing.T) {
	purger := &fakePurger{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	j := New(Config{
		Interval:     20 * time.Millisecond,
		RevokedGrace: 24 * time.Hour,
	}, purger, log)

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	calls, grace := purger.snapshot()

	// startup sweep plus at least two ticks
	if calls < 3 {
		t.Fatalf("sweeps: got %d, want at least 3", calls)
	}
	if grace != 24*time.Hour {
		t.Fatalf("grace: got %v", grace)
	}
}

func TestZeroConfigGetsDefaults(t *testing.T) {
	j := New(Config{}, &fakePurger{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if j.cfg.Interval != time.Hour {
		t.Fatalf("interval: got %v", j.cfg.Interval)
	}
	if j.cfg.RevokedGrace != 24*time.Hour {
		t.Fatalf("grace: got %v", j.cfg.RevokedGrace)
	}
	if j.cfg.OpTimeout != 10*time.Second {
		t.Fatalf("op timeout: got %v", j.cfg.OpTimeout)
	}
}
