package auth

import (
	"context"

	apperrors "github.com/arbordesk/notify/pkg/errors"
)

// AccountStatus describes the state of the account behind a credential.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusPending   AccountStatus = "pending"
	StatusSuspended AccountStatus = "suspended"
)

// Identity is the result of resolving a credential.
type Identity struct {
	UserID string
	Status AccountStatus
}

// CredentialVerifier resolves a presented credential to a user identity. It
// is the single typed capability the gateway consumes; implementations are
// supplied once at wiring time.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier resolves credentials by validating signed access tokens.
type JWTVerifier struct {
	jwt *JWTService
}

// NewJWTVerifier wraps a JWTService as a CredentialVerifier.
func NewJWTVerifier(jwt *JWTService) *JWTVerifier {
	return &JWTVerifier{jwt: jwt}
}

// VerifyCredential validates the token and extracts the embedded identity.
func (v *JWTVerifier) VerifyCredential(ctx context.Context, token string) (Identity, error) {
	claims, err := v.jwt.ValidateAccessToken(token)
	if err != nil {
		return Identity{}, apperrors.ErrUnauthorized.WithInternal(err)
	}

	status := AccountStatus(claims.Status)
	if status == "" {
		status = StatusActive
	}

	return Identity{UserID: claims.UserID, Status: status}, nil
}

// StaticVerifier maps fixed tokens to identities. It exists only for tests
// and local development and must never be wired in production builds.
type StaticVerifier struct {
	Identities map[string]Identity
}

// VerifyCredential looks the token up in the static table.
func (v *StaticVerifier) VerifyCredential(_ context.Context, token string) (Identity, error) {
	identity, ok := v.Identities[token]
	if !ok {
		return Identity{}, apperrors.ErrUnauthorized
	}
	return identity, nil
}
