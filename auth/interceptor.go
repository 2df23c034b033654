package auth

import (
	"chat-relay/domain"
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const UsernameKey contextKey = "username"

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// IdentityFromContext returns the identity injected by AuthInterceptor.
func IdentityFromContext(ctx context.Context) (domain.Username, bool) {
	u, ok := ctx.Value(UsernameKey).(domain.Username)
	return u, ok
}

// AuthInterceptor validates the session token of unary calls.
// Methods listed in public skip the check.
func AuthInterceptor(tokens *TokenIssuer, public ...string) grpc.UnaryServerInterceptor {
	publicMethods := make(map[string]struct{}, len(public))
	for _, m := range public {
		publicMethods[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is missing")
		}
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
		}
		token, ok := BearerToken(values[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
		}

		identity, err := tokens.Validate(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(context.WithValue(ctx, UsernameKey, identity), req)
	}
}
