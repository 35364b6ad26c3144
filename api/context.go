package api

import (
	"context"

	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
)

type keyType string

const (
	actorKey keyType = "actor"
	userKey  keyType = "user"
)

// ctxWithUser stores the authenticated user and the lifecycle actor derived from it.
func ctxWithUser(ctx context.Context, u models.User) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, actorKey, lifecycle.Actor{ID: u.ID, Role: u.Role, Name: u.Name})
}

// ctxGetActor returns the caller; ok is false on unauthenticated routes.
func ctxGetActor(ctx context.Context) (lifecycle.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(lifecycle.Actor)
	return actor, ok
}

func ctxGetUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}
