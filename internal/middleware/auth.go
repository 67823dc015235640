// Package middleware provides HTTP middleware for TaskFlow.
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"taskflow/internal/auth"
	"taskflow/internal/user"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	identityContextKey contextKey = "identity"
	profileContextKey  contextKey = "profile"
)

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (user.Identity, error)
}

// ProfileLookup loads a registered user profile. It returns
// user.ErrNotFound for callers that never registered.
type ProfileLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// GetIdentity retrieves the verified caller identity from the request context.
func GetIdentity(ctx context.Context) (user.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(user.Identity)
	return id, ok
}

// GetProfile retrieves the caller's profile loaded by RequireProfile or RequireRole.
func GetProfile(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(profileContextKey).(*user.User)
	return u, ok
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id user.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// RequireAuth returns middleware that verifies the bearer token and
// attaches the caller identity to the request.
//
// Error responses:
//   - 401 Unauthorized: missing, malformed or unverifiable token
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				auth.WriteUnauthorized(w)
				return
			}

			identity, err := verifier.Authenticate(r.Context(), token)
			if err != nil || identity.UserID == "" {
				log.Printf("token verification failed: %v", err)
				auth.WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireProfile returns middleware that loads the caller's profile.
// Must run after RequireAuth.
//
// Error responses:
//   - 401 Unauthorized: no identity on the request
//   - 403 Forbidden: caller has no profile
//   - 500 Internal Server Error: lookup failed
func RequireProfile(profiles ProfileLookup) func(http.Handler) http.Handler {
	return requireProfile(profiles, nil)
}

// RequireRole is RequireProfile plus a role check; a profile with another
// role gets 403.
func RequireRole(profiles ProfileLookup, role user.Role) func(http.Handler) http.Handler {
	return requireProfile(profiles, &role)
}

func requireProfile(profiles ProfileLookup, role *user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				auth.WriteUnauthorized(w)
				return
			}

			profile, err := profiles.Get(r.Context(), identity.UserID)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					auth.WriteForbidden(w)
					return
				}
				log.Printf("failed to load profile for %s: %v", identity.UserID, err)
				auth.WriteInternalError(w)
				return
			}

			if role != nil {
				if err := user.Authorize(profile, *role); err != nil {
					auth.WriteForbidden(w)
					return
				}
			}

			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain wraps h with mw, the first element outermost.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
