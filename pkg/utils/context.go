package utils

import (
	"context"

	"field-crm/pkg/contextkeys"
	apperrors "field-crm/pkg/errors"
)

func GetActorIDFromCtx(ctx context.Context) (string, error) {
	actorID, ok := ctx.Value(contextkeys.ActorIDKey).(string)
	if !ok || actorID == "" {
		return "", apperrors.ErrActorNotFoundInContext
	}
	return actorID, nil
}

// ResolveActor prefers the authenticated actor and falls back to the one named in the payload.
func ResolveActor(ctx context.Context, fromPayload string) (string, error) {
	if actorID, err := GetActorIDFromCtx(ctx); err == nil {
		return actorID, nil
	}
	if fromPayload != "" {
		return fromPayload, nil
	}
	return "", apperrors.ErrActorNotFoundInContext
}
