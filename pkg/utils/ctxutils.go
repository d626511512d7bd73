package utils

import (
	"context"

	"site-entry/internal/entities"
	"site-entry/pkg/contextkeys"
	apperrors "site-entry/pkg/errors"
)

func WithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}

func GetActorFromContext(ctx context.Context) (entities.Actor, error) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(entities.Actor)
	if !ok {
		return entities.Actor{}, apperrors.ErrActorNotFoundInContext
	}
	return actor, nil
}

func GetRequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return id
}
