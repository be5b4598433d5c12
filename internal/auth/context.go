package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	merchantIDKey contextKey = "merchant_id"
	userIDKey     contextKey = "user_id"
	roleKey       contextKey = "role"
)

type UserContext struct {
	MerchantID string
	UserID     string
	Role       string
}

// privilegedRoles may change a variant's verification state.
var privilegedRoles = map[string]struct{}{
	"admin": {},
	"owner": {},
	"qa":    {},
}

func IsPrivileged(role string) bool {
	_, ok := privilegedRoles[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// WithUser stores u on ctx, for callers that are not behind the gRPC
// metadata headers (CLI, listeners, tests).
func WithUser(ctx context.Context, u UserContext) context.Context {
	ctx = context.WithValue(ctx, merchantIDKey, u.MerchantID)
	ctx = context.WithValue(ctx, userIDKey, u.UserID)
	return context.WithValue(ctx, roleKey, u.Role)
}

func GetMerchantID(ctx context.Context) string {
	return lookup(ctx, merchantIDKey, "x-merchant-id")
}

func GetUserID(ctx context.Context) string {
	return lookup(ctx, userIDKey, "x-user-id")
}

func GetRole(ctx context.Context) string {
	return lookup(ctx, roleKey, "x-user-role")
}

func GetUser(ctx context.Context) UserContext {
	return UserContext{
		MerchantID: GetMerchantID(ctx),
		UserID:     GetUserID(ctx),
		Role:       GetRole(ctx),
	}
}

// lookup prefers a value set on the context, then falls back to incoming
// gRPC metadata.
func lookup(ctx context.Context, key contextKey, header string) string {
	if val, ok := ctx.Value(key).(string); ok && val != "" {
		return val
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(header); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
