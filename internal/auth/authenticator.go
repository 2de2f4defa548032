// Package auth identifies the user behind a request, either from an OIDC
// provider's tokens or from tokens signed with the studio's shared secret.
package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken  = errors.New("missing authorization header")
	ErrMalformed     = errors.New("invalid authorization header format")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("authentication not configured")
)

// Identity is the user a request acts for.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Authenticator resolves bearer tokens. The OIDC verifier is tried first and
// the shared secret second; either may be absent.
type Authenticator struct {
	verifier TokenVerifier
	secret   string
}

func NewAuthenticator(verifier TokenVerifier, secret string) *Authenticator {
	return &Authenticator{verifier: verifier, secret: secret}
}

// Resolve reads an Authorization header value.
func (a *Authenticator) Resolve(header string) (*Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	if a.verifier == nil && a.secret == "" {
		return nil, ErrNotConfigured
	}

	if a.verifier != nil {
		if claims, err := a.verifier.Validate(token); err == nil {
			return &Identity{UserID: claims.UserID, Email: claims.Email, Name: claims.Name}, nil
		}
	}
	if a.secret != "" {
		if claims, err := ValidateHMACToken(token, a.secret); err == nil {
			return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
		}
	}
	return nil, ErrInvalidToken
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrMalformed
	}
	return parts[1], nil
}
