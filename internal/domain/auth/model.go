package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// AccessTokenClaims are the claims for the access token
type AccessTokenClaims struct {
	Sid   string
	Token jwt.Token
}

func newAccessTokenClaims(token jwt.Token) *AccessTokenClaims {
	claims := &AccessTokenClaims{Token: token}
	var sid any
	if token.Get("sid", &sid) == nil {
		if s, ok := sid.(string); ok {
			claims.Sid = s
		}
	}
	return claims
}

func (c *AccessTokenClaims) Subject() string {
	sub, _ := c.Token.Subject()
	return sub
}

func (c *AccessTokenClaims) Issuer() string {
	iss, _ := c.Token.Issuer()
	return iss
}

func (c *AccessTokenClaims) IssuedAt() time.Time {
	iat, _ := c.Token.IssuedAt()
	return iat
}

func (c *AccessTokenClaims) Expiration() time.Time {
	exp, _ := c.Token.Expiration()
	return exp
}

// GetSid returns the session ID carried in the token
func (c *AccessTokenClaims) GetSid() string {
	return c.Sid
}

// Validate checks expiry and issuer, returning the matching sentinel so the
// middleware can log which check failed.
func (c *AccessTokenClaims) Validate(issuer string) error {
	exp := c.Expiration()
	if exp.IsZero() {
		return ErrInvalidToken
	}
	if time.Now().After(exp) {
		return ErrExpiredToken
	}

	if issuer != "" && c.Issuer() != issuer {
		return ErrInvalidToken
	}

	return nil
}

// Identity represents the authenticated caller, attached explicitly to the
// request context by the middleware.
type Identity struct {
	UserID    uuid.UUID
	SessionID string
}
