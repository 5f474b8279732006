package actorctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey string

const actorKey contextKey = "cielo.actor"

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	UserID    snowflake.ID
	Role      string
	CountryID string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
