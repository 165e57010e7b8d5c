// Package auth issues identity tokens and guards requests by identity and role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scholarhub/apiserver/types"
)

// TokenTTL is the validity window of issued tokens.
const TokenTTL = 365 * 24 * time.Hour

var (
	// ErrUnauthenticated is returned when no valid credential is presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller's role is not permitted.
	ErrForbidden = errors.New("forbidden")
)

// Claims is an arbitrary identity claim set. Only "email" is interpreted.
type Claims map[string]any

// Email returns the normalized email claim, or "" when absent.
func (c Claims) Email() string {
	email, _ := c["email"].(string)
	return types.NormalizeEmail(email)
}

// Identity is the caller recovered from a verified token.
type Identity struct {
	Email  string
	Claims Claims
}

// Issuer mints and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer keyed by the server secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// Issue signs the claims with issued-at and expiry added. Claim contents are
// not validated; callers are expected to have proven the identity upstream.
func (i *Issuer) Issue(claims Claims) (string, error) {
	now := i.now()
	payload := jwt.MapClaims{}
	for key, value := range claims {
		payload[key] = value
	}
	payload["iat"] = jwt.NewNumericDate(now)
	payload["exp"] = jwt.NewNumericDate(now.Add(i.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
// Every failure is reported as ErrUnauthenticated.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	payload, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	claims := Claims(payload)
	email := claims.Email()
	if email == "" {
		return Identity{}, fmt.Errorf("%w: missing email claim", ErrUnauthenticated)
	}
	return Identity{Email: email, Claims: claims}, nil
}
