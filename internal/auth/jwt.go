// Package auth issues and checks credentials for the two identity classes of
// HackHub: participants (users) and judges.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user signs up (or signs in with GitHub) and verifies their email
//  2. The server issues a JWT and stores it in an HttpOnly cookie
//  3. On every API call the middleware validates the JWT and puts the
//     user id in the request context
//  4. Judges log in against their own table and get a Bearer token instead
//
// WHY JWT?
// The token is stateless: subject, kind and expiry travel inside it and the
// HMAC signature makes them tamper-proof. Checking a request costs one HMAC,
// not a database read.
//
// TOKENS:
// Both classes receive an HS256-signed JWT. The subject is the account id and
// a "kind" claim records which class the token belongs to, so a user token can
// never pass the judge middleware and vice versa.
//
//	HEADER.PAYLOAD.SIGNATURE
//	payload → {"sub":"<id>","kind":"user","iss":"hackhub","exp":...}
//
// Users carry the token in the HttpOnly "token" cookie (or a Bearer header for
// API clients). Judges only use the Bearer header.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "hackhub"

// Kind is the identity class a token was issued to.
type Kind string

const (
	KindUser  Kind = "user"
	KindJudge Kind = "judge"
)

// ErrInvalidToken covers every reason a token is rejected.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and validates tokens with one HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService rejects secrets shorter than 16 characters.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. RegisteredClaims brings the standard fields
// (sub, iss, iat, exp); Kind is ours.
type claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// Issue signs a token for subject of the given kind, valid for ttl.
//
// HS256 is symmetric: the key that signs also verifies. That is enough while
// one service both issues and checks tokens; RS256 would let other services
// verify without holding the signing key.
func (s *TokenService) Issue(kind Kind, subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject is empty")
	}
	now := time.Now()
	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, issuer and expiry, and that the token
// was issued to kind. It returns the subject.
func (s *TokenService) Validate(tokenStr string, kind Kind) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// ALGORITHM CONFUSION:
			// Without this check a token with "alg":"none", or one signed
			// with an RSA public key used as an HMAC secret, could pass.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Kind != kind {
		return "", fmt.Errorf("%w: issued to %q, want %q", ErrInvalidToken, c.Kind, kind)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c.Subject, nil
}
