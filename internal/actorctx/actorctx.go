// Package actorctx carries the authenticated user id on a request scoped
// context.Context, so code below the HTTP layer (loggers, notifiers) can
// attribute work without depending on gin.
package actorctx

import "context"

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)

	return v, ok && v != ""
}
