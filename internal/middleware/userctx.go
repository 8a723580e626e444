package middleware

import (
	"context"
	"strconv"

	"github.com/sevatrust/seva-donations/internal/auth"
)

type userKey struct{}

type UserCtx struct {
	UserID int64
	Role   string
}

func userFromClaims(c *auth.Claims) (UserCtx, error) {
	id, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil {
		return UserCtx{}, err
	}
	return UserCtx{UserID: id, Role: c.Role}, nil
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromCtx returns the authenticated caller, if any.
func FromCtx(ctx context.Context) (UserCtx, bool) {
	u, ok := ctx.Value(userKey{}).(UserCtx)
	return u, ok
}
