// Package proof issues and verifies signed verification proofs: short-lived
// tokens a downstream service can check to confirm an attempt passed
// behavioral verification. Tokens are HMAC-signed; this is a real keyed
// signature, not a checksum.
package proof

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidProof = errors.New("invalid proof")
	ErrExpiredProof = errors.New("proof has expired")
)

const defaultTTL = 5 * time.Minute

// Claims carried by a verification proof.
type Claims struct {
	TrustScore float64 `json:"trustScore"`
	jwt.RegisteredClaims
}

// Issuer signs verification proofs with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer creates an issuer. A zero ttl falls back to five minutes.
func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if issuer == "" {
		issuer = "neurogate"
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue signs a proof for userID with the trust score of the passed attempt.
func (i *Issuer) Issue(userID string, trustScore float64) (string, error) {
	now := time.Now()
	claims := Claims{
		TrustScore: trustScore,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign proof: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredProof
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !token.Valid {
		return nil, ErrInvalidProof
	}
	return claims, nil
}
