package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/arbordesk/notify/pkg/errors"
)

func newTestJWTService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		Issuer:         "arbordesk",
		AccessTokenTTL: time.Minute,
		Clock:          clock,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestJWTService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Status: "active"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "active", claims.Status)
	require.Equal(t, "arbordesk", claims.Issuer)
}

func TestGenerateAccessTokenRequiresUserID(t *testing.T) {
	svc := newTestJWTService(t, nil)
	_, err := svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	current := base
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	current = base.Add(2 * time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateAccessTokenRejectsForeignSignature(t *testing.T) {
	svc := newTestJWTService(t, nil)

	other, err := NewJWTService(JWTConfig{Secret: "different-secret"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := newTestJWTService(t, nil)

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.ValidateAccessToken(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestJWTVerifierResolvesIdentity(t *testing.T) {
	svc := newTestJWTService(t, nil)
	verifier := NewJWTVerifier(svc)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Status: string(StatusSuspended)})
	require.NoError(t, err)

	identity, err := verifier.VerifyCredential(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.Equal(t, StatusSuspended, identity.Status)
}

func TestJWTVerifierDefaultsMissingStatusToActive(t *testing.T) {
	svc := newTestJWTService(t, nil)
	verifier := NewJWTVerifier(svc)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	identity, err := verifier.VerifyCredential(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, StatusActive, identity.Status)
}

func TestJWTVerifierRejectsBadToken(t *testing.T) {
	verifier := NewJWTVerifier(newTestJWTService(t, nil))

	_, err := verifier.VerifyCredential(context.Background(), "bogus")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestStaticVerifier(t *testing.T) {
	verifier := &StaticVerifier{Identities: map[string]Identity{
		"known": {UserID: "user-1", Status: StatusActive},
	}}

	identity, err := verifier.VerifyCredential(context.Background(), "known")
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)

	_, err = verifier.VerifyCredential(context.Background(), "unknown")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
