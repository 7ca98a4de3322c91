// Package grpc provides server interceptors that verify authkit access
// tokens carried in request metadata, for services that sit behind the same
// identity as the HTTP surface.
package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authkit "github.com/sandunsrimal/authkit"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Signer verifies incoming access tokens.
	Signer *authkit.Signer

	// RequireAuth when true rejects unauthenticated requests. When false,
	// requests proceed but ClaimsFromContext returns nil.
	RequireAuth bool

	// PublicMethods never require auth even when RequireAuth is true. Keys
	// are full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for every method
// except the listed public ones.
func NewInterceptorConfig(signer *authkit.Signer, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Signer:        signer,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the bearer
// token from the "authorization" metadata and puts its claims on the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is the stream counterpart of UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

func (c *InterceptorConfig) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	token := bearerFromMetadata(ctx)
	if token == "" {
		if c.RequireAuth && !c.PublicMethods[fullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}

	claims, err := c.Signer.Verify(token, authkit.TokenKindAccess)
	if err != nil {
		if c.RequireAuth && !c.PublicMethods[fullMethod] {
			if errors.Is(err, authkit.ErrTokenExpired) {
				return nil, status.Error(codes.Unauthenticated, "token expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return ctx, nil
	}
	return authkit.ContextWithClaims(ctx, claims), nil
}

// ClaimsFromContext returns the verified claims placed by the interceptors,
// or nil for unauthenticated requests under optional auth.
func ClaimsFromContext(ctx context.Context) *authkit.Claims {
	return authkit.ClaimsFromContext(ctx)
}

func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
