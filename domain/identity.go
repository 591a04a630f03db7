package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is what a verified bearer token proves about the caller.
type Identity struct {
	UserID primitive.ObjectID
}

type KeyIdentity struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, KeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(KeyIdentity{}).(Identity)
	return identity, ok
}
