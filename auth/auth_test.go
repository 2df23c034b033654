package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct horse battery"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)

	// Same password, different salt
	other, err := HashPassword(password)
	req.NoError(err)
	req.NotEqual(hash, other)
}

func TestComparePassword_Invalid_Hash(t *testing.T) {
	req := require.New(t)
	for _, encoded := range []string{
		"",
		"5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=1$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=3,p=2$c2FsdA$aGFzaA",
	} {
		_, err := ComparePassword("password", encoded)
		req.ErrorIs(err, errors.ErrInvalidCredentials, encoded)
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		req     CredentialsRequest
		wantErr error
	}{
		{"Valid request", CredentialsRequest{"alice", "password123"}, nil},
		{"Missing username", CredentialsRequest{"", "password123"}, errors.ErrInvalidArgument},
		{"Username with space", CredentialsRequest{"al ice", "password123"}, errors.ErrInvalidUsername},
		{"Username too long", CredentialsRequest{strings.Repeat("a", 65), "password123"}, errors.ErrInvalidArgument},
		{"Password too short", CredentialsRequest{"alice", "short"}, errors.ErrInvalidArgument},
		{"Password too long", CredentialsRequest{"alice", strings.Repeat("a", 73)}, errors.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	req := require.New(t)
	tokens, err := NewTokenIssuer("secret", time.Hour)
	req.NoError(err)

	token, err := tokens.Issue("alice")
	req.NoError(err)

	identity, err := tokens.Validate(token)
	req.NoError(err)
	req.Equal(domain.Username("alice"), identity)

	// Another secret does not accept it
	other, err := NewTokenIssuer("another-secret", time.Hour)
	req.NoError(err)
	_, err = other.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	_, err = tokens.Validate("not-a-token")
	req.ErrorIs(err, errors.ErrInvalidToken)

	_, err = NewTokenIssuer("", time.Hour)
	req.ErrorIs(err, errors.ErrInvalidArgument)
}

func TestTokenIssuer_Expired(t *testing.T) {
	req := require.New(t)
	tokens, err := NewTokenIssuer("secret", time.Minute)
	req.NoError(err)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := tokens.Issue("alice")
	req.NoError(err)

	tokens.now = time.Now
	_, err = tokens.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)
	token, ok := BearerToken("Bearer abc")
	req.True(ok)
	req.Equal("abc", token)

	_, ok = BearerToken("Basic abc")
	req.False(ok)
	_, ok = BearerToken("Bearer ")
	req.False(ok)
}

func TestAuthInterceptor(t *testing.T) {
	tokens, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	interceptor := AuthInterceptor(tokens, "/chatrelay.v1.Relay/Public")

	// The handler returns the context it received
	handler := func(ctx context.Context, req any) (any, error) {
		return ctx, nil
	}
	protected := &grpc.UnaryServerInfo{FullMethod: "/chatrelay.v1.Relay/Stats"}

	t.Run("should allow public methods without token", func(t *testing.T) {
		req := require.New(t)
		info := &grpc.UnaryServerInfo{FullMethod: "/chatrelay.v1.Relay/Public"}
		res, err := interceptor(context.Background(), nil, info, handler)
		req.NoError(err)
		req.NotNil(res)
	})

	t.Run("should fail when metadata is missing", func(t *testing.T) {
		req := require.New(t)
		_, err := interceptor(context.Background(), nil, protected, handler)
		req.Equal(codes.Unauthenticated, status.Code(err))
	})

	t.Run("should fail with invalid token", func(t *testing.T) {
		req := require.New(t)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer invalid"))
		_, err := interceptor(ctx, nil, protected, handler)
		req.Equal(codes.Unauthenticated, status.Code(err))
		req.Contains(err.Error(), "invalid or expired token")
	})

	t.Run("should inject the identity when token is valid", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.Issue("bob")
		req.NoError(err)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

		res, err := interceptor(ctx, nil, protected, handler)
		req.NoError(err)
		identity, ok := IdentityFromContext(res.(context.Context))
		req.True(ok)
		req.Equal(domain.Username("bob"), identity)
	})
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
