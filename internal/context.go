package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/muamalati/internal/core/user"
)

type ctxKey string

const ContextUserKey ctxKey = "actor"

// ActorFromContext returns the authenticated caller placed by the auth middleware.
func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	if ctx == nil {
		return user.Actor{}, false
	}
	actor, ok := ctx.Value(ContextUserKey).(user.Actor)
	return actor, ok
}

func ContextWithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, ContextUserKey, actor)
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID
	}
	return ""
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
