package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// revoked, hash mismatch, or otherwise unusable
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

// SessionRow is one issued refresh token. The access token is a stateless
// JWT; this row is what logout revokes and expiry kills.
type SessionRow struct {
	ID         string // refresh token jti
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

type SessionsRepo struct {
	pool *pgxpool.Pool
}

func NewSessionsRepo(pool *pgxpool.Pool) *SessionsRepo {
	return &SessionsRepo{pool: pool}
}

// Issue stores a freshly minted session.
func (r *SessionsRepo) Issue(ctx context.Context, row SessionRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

// Rotate atomically retires the session identified by oldJTI and records its
// replacement. The row lock serializes concurrent refresh attempts with the
// same token: the loser sees a revoked row and gets ErrSessionInvalid.
func (r *SessionsRepo) Rotate(ctx context.Context, oldJTI, presentedHash string, next SessionRow) (old SessionRow, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return SessionRow{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM sessions
		WHERE id = $1
		FOR UPDATE
	`, oldJTI).Scan(
		&old.ID,
		&old.UserID,
		&old.TokenHash,
		&old.ExpiresAt,
		&old.RevokedAt,
		&old.ReplacedBy,
		&old.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRow{}, ErrSessionNotFound
		}

		return SessionRow{}, err
	}

	if old.RevokedAt != nil {
		return SessionRow{}, ErrSessionInvalid
	}

	if time.Now().UTC().After(old.ExpiresAt) {
		return SessionRow{}, ErrSessionExpired
	}

	// the presented token must be the one this row was minted for
	// (prevents token substitution)
	if old.TokenHash != presentedHash {
		return SessionRow{}, ErrSessionInvalid
	}

	_, err = tx.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1
	`, old.ID, next.ID)

	if err != nil {
		return SessionRow{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.RevokedAt, next.ReplacedBy, next.CreatedAt,
	)

	if err != nil {
		return SessionRow{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return SessionRow{}, err
	}

	return old, nil
}

// Revoke marks a session dead. Revoking an already-revoked or unknown
// session is a no-op, which keeps logout idempotent.
func (r *SessionsRepo) Revoke(ctx context.Context, jti string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = COALESCE(revoked_at, NOW())
		WHERE id = $1
	`, jti)

	return err
}

func (r *SessionsRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = COALESCE(revoked_at, NOW())
		WHERE user_id = $1
	`, userID)

	return err
}

// DeleteDead removes rows no client can present any more: expired, or
// revoked longer than the grace window ago. Used by the janitor.
func (r *SessionsRepo) DeleteDead(ctx context.Context, revokedGrace time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE expires_at < NOW()
		   OR revoked_at < NOW() - make_interval(secs => $1)
	`, revokedGrace.Seconds())

	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
