package server

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teemow/gitmail/internal/google"
)

// UnverifiedIdentity reads the user ID token without checking signatures.
// It exists for local development against a tunnel; never use it in
// production.
type UnverifiedIdentity struct{}

// VerifySystem accepts every request.
func (UnverifiedIdentity) VerifySystem(context.Context, string) error {
	return nil
}

// VerifyUser returns the subject of the unverified token.
func (UnverifiedIdentity) VerifyUser(_ context.Context, token string) (google.Identity, error) {
	if token == "" {
		return google.Identity{}, google.ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return google.Identity{}, fmt.Errorf("malformed user ID token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return google.Identity{}, fmt.Errorf("user ID token has no subject")
	}
	email, _ := claims["email"].(string)
	return google.Identity{Subject: sub, Email: email}, nil
}
