package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mybudgetpal/budgetpal/internal/auth"
	"github.com/mybudgetpal/budgetpal/internal/config"
	"github.com/mybudgetpal/budgetpal/internal/domain/user"
	"github.com/mybudgetpal/budgetpal/internal/repo/postgres"
	"github.com/mybudgetpal/budgetpal/internal/security"
)

// Deliberately the same message for "no such account" and "wrong password"
// so responses do not reveal whether an email is registered.
const invalidCredentialsMsg = "Email or password is incorrect."

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
}

type SessionStore interface {
	Issue(ctx context.Context, row postgres.SessionRow) error
	Rotate(ctx context.Context, oldJTI, presentedHash string, next postgres.SessionRow) (postgres.SessionRow, error)
	Revoke(ctx context.Context, jti string) error
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        *auth.Manager
	sessions   SessionStore
	hasher     *security.Hasher
	cfg        config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, sessions SessionStore, hasher *security.Hasher, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwtManager,
		sessions:   sessions,
		hasher:     hasher,
		cfg:        cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.Name)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "email_taken", "Email is already in use.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	accessToken, err := h.issueSession(cctx, ctx, u)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"accessToken": accessToken,
		"user": gin.H{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
		},
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentialsMsg)
		return
	}

	// external-auth-only accounts have no password to check
	if foundUser.PasswordHash == nil {
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentialsMsg)
		return
	}

	err = h.hasher.Compare(*foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentialsMsg)
		return
	}

	accessToken, err := h.issueSession(cctx, ctx, foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(claims.UserID, claims.Email)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	next := postgres.SessionRow{
		ID:        newJTI,
		UserID:    claims.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	old, err := h.sessions.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), next)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrSessionExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, postgres.ErrSessionNotFound), errors.Is(err, postgres.ErrSessionInvalid):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		default:
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(old.UserID, claims.Email)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

// Logout invalidates the presented session; with no or garbage cookie it
// still clears and returns 204.

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// revoke that one session (idempotent)
	_ = h.sessions.Revoke(cctx, claims.JTI)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Helper functions

func (h *AuthHandler) issueSession(cctx context.Context, ctx *gin.Context, u user.User) (accessToken string, err error) {
	accessToken, err = h.jwt.GenerateAccessToken(u.ID, u.Email)

	if err != nil {
		return "", err
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Email)

	if err != nil {
		return "", err
	}

	row := postgres.SessionRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err = h.sessions.Issue(cctx, row); err != nil {
		return "", err
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	return accessToken, nil
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",

		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
