package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astro-web3/print-gateway/internal/domain/authz"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
)

// validMethods are the HMAC algorithms accepted for a shared secret.
//
//nolint:gochecknoglobals // read-only list
var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// printClaims is the wire form of authz.Claims.
type printClaims struct {
	Action   *string `json:"action,omitempty"`
	Printer  *string `json:"printer,omitempty"`
	Type     *string `json:"type,omitempty"`
	CheckSum *string `json:"checkSum,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature, exp and nbf. Every failure wraps
// authz.ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, token string) (*authz.Claims, error) {
	_, span := tracer.Start(ctx, "infra.token.Verify")
	defer span.End()

	parsed, err := jwt.ParseWithClaims(token, &printClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods(validMethods))
	if err != nil {
		span.SetAttributes(attribute.Bool("token.valid", false))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", authz.ErrInvalidToken, ErrExpiredToken)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, fmt.Errorf("%w: %w", authz.ErrInvalidToken, ErrTokenNotYetValid)
		default:
			return nil, fmt.Errorf("%w: %w", authz.ErrInvalidToken, err)
		}
	}

	pc, ok := parsed.Claims.(*printClaims)
	if !ok || !parsed.Valid {
		return nil, authz.ErrInvalidToken
	}

	span.SetAttributes(attribute.Bool("token.valid", true))
	return &authz.Claims{
		Action:   pc.Action,
		Printer:  pc.Printer,
		Type:     pc.Type,
		CheckSum: pc.CheckSum,
		TokenID:  pc.ID,
	}, nil
}

// Signer issues scoped print tokens. The gateway itself never signs; this
// serves smoke tooling and tests that play the issuer's role.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns an HS256 token carrying claims, valid for ttl. A zero ttl
// produces a token without expiry.
func (s *Signer) Sign(claims authz.Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	id := claims.TokenID
	if id == "" {
		id = uuid.NewString()
	}

	pc := printClaims{
		Action:   claims.Action,
		Printer:  claims.Printer,
		Type:     claims.Type,
		CheckSum: claims.CheckSum,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		pc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, pc).SignedString(s.secret)
}
