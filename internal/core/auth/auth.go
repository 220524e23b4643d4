// Package auth provides API key authentication for the transform service.
//
// Keys are configured through the environment only. The authenticator keeps
// HMAC-SHA256 digests of the accepted keys under a per-process secret, never
// the keys themselves, and compares in constant time.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HeaderName carries the API key in gRPC metadata and HTTP requests.
const HeaderName = "x-api-key"

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// keyIDKey is the context key for storing the authenticated key ID.
const keyIDKey = contextKey("key_id")

// Authenticator validates API keys against a fixed set.
// Holds the digest per key ID for O(1) lookup.
type Authenticator struct {
	secret []byte
	keys   map[string][]byte
}

// NewAuthenticator creates an authenticator accepting apiKeys.
// Every key must parse with ParseAPIKey.
func NewAuthenticator(apiKeys []string) (*Authenticator, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to create HMAC secret: %w", err)
	}

	keys := make(map[string][]byte, len(apiKeys))
	for _, key := range apiKeys {
		keyID, _, err := ParseAPIKey(key)
		if err != nil {
			return nil, fmt.Errorf("configured key %d: %w", len(keys)+1, err)
		}
		keys[keyID] = ComputeHMAC(secret, key)
	}

	return &Authenticator{secret: secret, keys: keys}, nil
}

// Authenticate validates API key and returns key_id on success.
func (a *Authenticator) Authenticate(apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrMissingKey
	}

	keyID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	expected, ok := a.keys[keyID]
	if !ok {
		return "", ErrUnknownKey
	}

	if !VerifyHMAC(expected, ComputeHMAC(a.secret, apiKey)) {
		return "", ErrInvalidKey
	}

	return keyID, nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod == "/grpc.health.v1.Health/Check" {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		var apiKey string
		if values := md.Get(HeaderName); len(values) > 0 {
			apiKey = values[0]
		}

		keyID, err := a.Authenticate(apiKey)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		// Inject key_id into context for downstream handlers
		return handler(WithKeyID(ctx, keyID), req)
	}
}

// Middleware returns HTTP middleware that authenticates requests.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID, err := a.Authenticate(r.Header.Get(HeaderName))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "ApiKey")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithKeyID(r.Context(), keyID)))
	})
}

// WithKeyID returns a context carrying the authenticated key ID.
func WithKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, keyIDKey, keyID)
}

// KeyIDFromContext extracts key ID from context.
// Returns empty string if not found.
func KeyIDFromContext(ctx context.Context) string {
	if keyID, ok := ctx.Value(keyIDKey).(string); ok {
		return keyID
	}
	return ""
}
