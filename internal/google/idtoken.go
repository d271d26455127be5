package google

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ErrMissingToken is returned when a request carries no ID token.
var ErrMissingToken = errors.New("missing ID token")

// Identity is the Google user behind an add-on request.
type Identity struct {
	// Subject is the stable account ID. It keys the user's GitHub link.
	Subject string
	Email   string
}

// Validator checks a Google-signed ID token. *idtoken.Validator implements it.
type Validator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// IDTokenVerifier verifies the tokens in the add-on event's authorization
// object.
type IDTokenVerifier struct {
	validator Validator
	audience  string
}

// NewIDTokenVerifier creates a verifier that fetches Google's signing keys.
// audience is the add-on endpoint base URL the system ID token is minted for.
func NewIDTokenVerifier(ctx context.Context, audience string) (*IDTokenVerifier, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create ID token validator: %w", err)
	}
	return NewIDTokenVerifierWithValidator(v, audience), nil
}

// NewIDTokenVerifierWithValidator creates a verifier around v.
func NewIDTokenVerifierWithValidator(v Validator, audience string) *IDTokenVerifier {
	return &IDTokenVerifier{validator: v, audience: audience}
}

// VerifySystem checks that a request was sent by the add-on runtime.
func (v *IDTokenVerifier) VerifySystem(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if _, err := v.validator.Validate(ctx, token, v.audience); err != nil {
		return fmt.Errorf("invalid system ID token: %w", err)
	}
	return nil
}

// VerifyUser returns the identity in the user ID token. Its audience is the
// add-on's own OAuth client, so only the signature and expiry are checked.
func (v *IDTokenVerifier) VerifyUser(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	payload, err := v.validator.Validate(ctx, token, "")
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user ID token: %w", err)
	}
	if payload.Subject == "" {
		return Identity{}, errors.New("user ID token has no subject")
	}

	email, _ := payload.Claims["email"].(string)
	return Identity{Subject: payload.Subject, Email: email}, nil
}
