package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/astro-web3/print-gateway/pkg/logger"
)

// Authentication failure reasons.
const (
	ReasonNoToken          = "No token provided"
	ReasonInvalidToken     = "Failed to authenticate token"
	ReasonTokenRevoked     = "token has been revoked"
	ReasonRevocationFailed = "revocation check failed"
)

// ErrInvalidToken is returned by verifiers for any token that fails
// signature, expiry or structural checks.
var ErrInvalidToken = errors.New("invalid token")

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Authenticator struct {
	verifier    TokenVerifier
	revocations RevocationList
}

// NewAuthenticator builds an Authenticator. revocations may be nil.
func NewAuthenticator(verifier TokenVerifier, revocations RevocationList) *Authenticator {
	return &Authenticator{
		verifier:    verifier,
		revocations: revocations,
	}
}

// Authenticate verifies token. It never decides policy: whether a missing
// token is acceptable is up to the caller.
func (a *Authenticator) Authenticate(ctx context.Context, token string) Outcome {
	if token == "" {
		return Outcome{Kind: OutcomeNoToken}
	}

	claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "token verification failed", slog.String("error", err.Error()))
		return Outcome{Kind: OutcomeInvalid, Reason: err.Error()}
	}

	if a.revocations != nil && claims.TokenID != "" {
		revoked, err := a.revocations.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			// fail closed
			logger.WarnContext(ctx, "revocation lookup failed", slog.String("error", err.Error()))
			return Outcome{Kind: OutcomeInvalid, Reason: ReasonRevocationFailed}
		}
		if revoked {
			return Outcome{Kind: OutcomeInvalid, Reason: ReasonTokenRevoked}
		}
	}

	return Outcome{Kind: OutcomeValid, Claims: claims}
}
