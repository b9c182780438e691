// Package auth resolves a request's bearer token to the owning user id.
//
// It makes no policy decisions beyond "who is this"; scoping by owner belongs
// to the callers.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Resolver maps a token to a user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// StaticTokens maps shared tokens to user ids. Intended for development and
// single-tenant deployments.
type StaticTokens map[string]string

func (s StaticTokens) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	var user string
	for known, owner := range s {
		// compare all entries; no early exit
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			user = owner
		}
	}
	if user == "" {
		return "", ErrUnauthorized
	}
	return user, nil
}

// JWT accepts HS256 tokens signed with Secret and returns their subject.
type JWT struct {
	Secret []byte
	Issuer string
	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration
}

func (j JWT) Resolve(_ context.Context, token string) (string, error) {
	if len(j.Secret) == 0 || token == "" {
		return "", ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(j.Leeway),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims.Subject, nil
}

// Chain tries each resolver in order and returns the first success.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, token string) (string, error) {
	for _, r := range c {
		if user, err := r.Resolve(ctx, token); err == nil {
			return user, nil
		}
	}
	return "", ErrUnauthorized
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context, token string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}
