package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatchboard/backend/internal/cache"
	"github.com/hatchboard/backend/internal/domain/user"
	"github.com/hatchboard/backend/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
)

// Middleware gates requests on a valid access token and an existing, active
// credential behind it.
type Middleware struct {
	keys        *KeyStore
	users       user.Repository
	revocations *cache.SessionRevocationCache
	issuer      string
}

// NewMiddleware constructs the middleware. Revocations may be nil.
func NewMiddleware(keys *KeyStore, users user.Repository, revocations *cache.SessionRevocationCache, issuer string) *Middleware {
	return &Middleware{
		keys:        keys,
		users:       users,
		revocations: revocations,
		issuer:      issuer,
	}
}

// RequireAuth rejects every request without a valid access token. Failure
// reasons stay distinguishable in logs; the HTTP contract is a plain 401.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := m.authenticate(c)
		if err != nil {
			slog.Debug("request authentication failed", "reason", err, "path", c.Path())
			if isAuthFailure(err) {
				return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
			}
			return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
		}

		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is presented and
// proceeds anonymously on every failure path.
func (m *Middleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := m.authenticate(c)
		if err != nil {
			slog.Debug("optional authentication skipped", "reason", err, "path", c.Path())
			return c.Next()
		}

		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

// authenticate runs the full verification chain: header shape, signature,
// claims, revocation, then the credential itself.
func (m *Middleware) authenticate(c *fiber.Ctx) (*Identity, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingAuthHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrMalformedAuthHeader
	}

	token := parts[1]
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := m.keys.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if err := claims.Validate(m.issuer); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, ErrInvalidToken
	}

	if revoked := m.isRevoked(c.UserContext(), claims.GetSid()); revoked {
		return nil, ErrTokenRevoked
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUnknownUser
	}

	return &Identity{
		UserID:    userID,
		SessionID: claims.GetSid(),
	}, nil
}

// isRevoked consults the revocation cache. Cache errors degrade to the
// session row's natural expiry rather than rejecting the request.
func (m *Middleware) isRevoked(ctx context.Context, sessionID string) bool {
	if m.revocations == nil || sessionID == "" {
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	revoked, err := m.revocations.IsRevoked(cctx, sessionID)
	if err != nil {
		slog.Warn("Failed to check session revocation in cache", "error", err, "session_id", sessionID)
		return false
	}
	return revoked
}

func isAuthFailure(err error) bool {
	for _, sentinel := range []error{
		ErrMissingAuthHeader,
		ErrMalformedAuthHeader,
		ErrMissingToken,
		ErrInvalidToken,
		ErrExpiredToken,
		ErrTokenRevoked,
		ErrUnknownUser,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
