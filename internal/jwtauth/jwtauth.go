// Package jwtauth verifies identity-provider ID tokens (RS256 JWTs signed
// by keys published at a JWKS endpoint) and maps them to user identities.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskflow/internal/user"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the ID-token claims.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	AuthTime      int64  `json:"auth_time,omitempty"`
}

// UserID returns the stable user identifier (subject).
func (c *Claims) UserID() string {
	return c.Subject
}

// Identity returns the user identity carried by the token.
func (c *Claims) Identity() user.Identity {
	return user.Identity{UserID: c.Subject, Email: c.Email}
}

// Config holds ID-token verification configuration.
type Config struct {
	Issuer   string // e.g., "https://securetoken.google.com/<project>"
	Audience string // e.g., "<project>"
	JWKSURL  string
}

// Verifier verifies ID tokens.
type Verifier struct {
	issuer   string
	audience string
	jwks     *JWKSCache
	parser   *jwt.Parser
}

// NewVerifier creates a new ID-token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	if cfg.JWKSURL == "" {
		return nil, errors.New("JWKS URL is required")
	}

	return &Verifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		jwks:     NewJWKSCache(cfg.JWKSURL),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

// Verify verifies a token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid in token header")
		}
		return v.jwks.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return claims, nil
}

// Authenticate verifies a bearer token and returns the caller's identity.
func (v *Verifier) Authenticate(ctx context.Context, tokenString string) (user.Identity, error) {
	claims, err := v.Verify(ctx, tokenString)
	if err != nil {
		return user.Identity{}, err
	}
	return claims.Identity(), nil
}

// JWKSCache caches the provider's signing keys.
type JWKSCache struct {
	url        string
	mu         sync.RWMutex
	keys       map[string]any // kid -> public key
	lastFetch  time.Time
	cacheTTL   time.Duration
	httpClient *http.Client
}

// NewJWKSCache creates a new JWKS cache.
func NewJWKSCache(jwksURL string) *JWKSCache {
	return &JWKSCache{
		url:      jwksURL,
		keys:     make(map[string]any),
		cacheTTL: time.Hour,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetKey returns the public key for the given key ID.
// An unknown kid forces a refresh, since the provider rotates keys.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	needsRefresh := time.Since(c.lastFetch) > c.cacheTTL
	c.mu.RUnlock()

	if ok && !needsRefresh {
		return key, nil
	}

	if err := c.refresh(ctx, !ok); err != nil {
		if ok {
			log.Printf("JWKS refresh failed, using cached key: %v", err)
			return key, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}

	return key, nil
}

// JWKS represents a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

// minRefreshInterval throttles forced refreshes triggered by unknown kids.
const minRefreshInterval = 30 * time.Second

func (c *JWKSCache) refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	since := time.Since(c.lastFetch)
	if len(c.keys) > 0 && (since < minRefreshInterval || (!force && since < c.cacheTTL)) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := decodeJSON(resp.Body, &jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]any)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || (key.Use != "" && key.Use != "sig") {
			continue
		}

		publicKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			log.Printf("failed to parse RSA key %s: %v", key.Kid, err)
			continue
		}

		newKeys[key.Kid] = publicKey
	}

	c.keys = newKeys
	c.lastFetch = time.Now()

	return nil
}
