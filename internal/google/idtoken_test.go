package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type fakeValidator struct {
	payloads map[string]*idtoken.Payload
	audience string
}

func (f *fakeValidator) Validate(_ context.Context, token, audience string) (*idtoken.Payload, error) {
	f.audience = audience
	p, ok := f.payloads[token]
	if !ok {
		return nil, errors.New("idtoken: invalid token")
	}
	return p, nil
}

func TestIDTokenVerifier_VerifySystem(t *testing.T) {
	fake := &fakeValidator{payloads: map[string]*idtoken.Payload{"sys": {Subject: "addon-sa"}}}
	v := NewIDTokenVerifierWithValidator(fake, "https://gitmail.example.com")

	require.NoError(t, v.VerifySystem(context.Background(), "sys"))
	assert.Equal(t, "https://gitmail.example.com", fake.audience)

	assert.ErrorIs(t, v.VerifySystem(context.Background(), ""), ErrMissingToken)
	assert.Error(t, v.VerifySystem(context.Background(), "forged"))
}

func TestIDTokenVerifier_VerifyUser(t *testing.T) {
	fake := &fakeValidator{payloads: map[string]*idtoken.Payload{
		"user":       {Subject: "1234", Claims: map[string]interface{}{"email": "dev@example.com"}},
		"no-subject": {},
	}}
	v := NewIDTokenVerifierWithValidator(fake, "https://gitmail.example.com")

	id, err := v.VerifyUser(context.Background(), "user")
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "1234", Email: "dev@example.com"}, id)
	assert.Empty(t, fake.audience)

	_, err = v.VerifyUser(context.Background(), "no-subject")
	assert.Error(t, err)

	_, err = v.VerifyUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}
