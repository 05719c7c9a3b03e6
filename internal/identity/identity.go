// Package identity carries the browser profile and the signed-in user through
// request contexts.
package identity

import "context"

type ctxKey int

const (
	profileKey ctxKey = iota
	userKey
)

// User is the authenticated shopper. Token is forwarded to the payment service.
type User struct {
	ID    string
	Email string
	Token string
}

func WithProfile(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileKey, profileID)
}

func ProfileFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(profileKey).(string)
	return id, ok && id != ""
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}
