package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"gorm.io/gorm"

	"github.com/hatchboard/backend/internal/cache"
	"github.com/hatchboard/backend/internal/database"
	"github.com/hatchboard/backend/internal/domain/session"
	"github.com/hatchboard/backend/internal/domain/user"
)

// storeTimeout bounds every store call made by the token service
const storeTimeout = 5 * time.Second

// TokenPair is the result of a successful issuance
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    uuid.UUID
	ExpiresAt    time.Time
}

// TokenService mints, verifies, refreshes and revokes access/refresh token
// pairs. It is the single source of truth for session-creation side effects.
// Access tokens are signed RS256 via the key store; refresh tokens are signed
// HS256 with an independent secret, so compromise of one does not compromise
// the other.
type TokenService struct {
	users       user.Repository
	sessions    session.Repository
	keys        *KeyStore
	refreshKey  jwk.Key
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations *cache.SessionRevocationCache
}

// TokenServiceConfig carries the construction parameters for a TokenService
type TokenServiceConfig struct {
	Users         user.Repository
	Sessions      session.Repository
	Keys          *KeyStore
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Revocations is optional; without it access-token invalidation falls
	// back to natural expiry.
	Revocations *cache.SessionRevocationCache
}

// NewTokenService constructs a TokenService. All dependencies are passed in
// explicitly; nothing is reached through ambient globals.
func NewTokenService(cfg TokenServiceConfig) (*TokenService, error) {
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("refresh secret must not be empty")
	}

	refreshKey, err := jwk.Import(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to import refresh secret: %w", err)
	}

	s := &TokenService{
		users:       cfg.Users,
		sessions:    cfg.Sessions,
		keys:        cfg.Keys,
		refreshKey:  refreshKey,
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		revocations: cfg.Revocations,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 15 * time.Minute
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	return s, nil
}

// IssueTokenPair mints an access/refresh pair for the user and persists the
// backing session row. If persistence fails after signing, the tokens are
// never handed to the caller; issuing tokens without a session record would
// make revocation impossible.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID uuid.UUID, device session.DeviceInfo) (*TokenPair, error) {
	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.FindByID(tctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sid := uuid.New()
	expiresAt := now.Add(s.refreshTTL)

	access, err := s.signAccessToken(userID, sid, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	refresh, err := s.signRefreshToken(userID, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	sess := &session.Session{
		BaseModel:    database.BaseModel{ID: sid},
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		IsActive:     true,
		UserAgent:    device.UserAgent,
		IPAddress:    device.IPAddress,
		Device:       device.Device,
	}

	if err := s.sessions.Create(tctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sid,
		ExpiresAt:    expiresAt,
	}, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token. Both
// the token signature and an active, unexpired session row must check out;
// every failure mode collapses to ErrInvalidRefreshToken so a revoked
// session is indistinguishable from a forged token. The refresh token is not
// rotated and the session expiry is not extended.
func (s *TokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if err := s.verifyRefreshToken(refreshToken); err != nil {
		slog.Debug("refresh token verification failed", "error", err)
		return "", ErrInvalidRefreshToken
	}

	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sess, err := s.sessions.FindActiveByToken(tctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidRefreshToken
		}
		// A timed-out lookup fails closed: the caller is told the token is
		// invalid, never treated as authenticated.
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("session lookup timed out during refresh")
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("session lookup failed: %w", err)
	}

	access, err := s.signAccessToken(sess.UserID, sess.ID, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return access, nil
}

// RevokeToken marks the session backing the refresh token inactive. It is
// idempotent: revoking an already-revoked or unknown token reports false
// without erroring.
func (s *TokenService) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sess, err := s.sessions.FindByToken(tctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("session lookup failed: %w", err)
	}

	revoked, err := s.sessions.RevokeByToken(tctx, refreshToken)
	if err != nil {
		return false, fmt.Errorf("session revoke failed: %w", err)
	}

	if revoked {
		s.markRevoked(ctx, sess.ID, sess.ExpiresAt)
	}

	return revoked, nil
}

// RevokeAllUserTokens marks every active session of the user inactive,
// including the one that initiated the call. Invoked on logout-everywhere
// and password change; the caller must re-authenticate afterwards.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sessions, err := s.sessions.ListActiveByUser(tctx, userID)
	if err != nil {
		return fmt.Errorf("session listing failed: %w", err)
	}

	if _, err := s.sessions.RevokeAllForUser(tctx, userID); err != nil {
		return fmt.Errorf("bulk revoke failed: %w", err)
	}

	for _, sess := range sessions {
		s.markRevoked(ctx, sess.ID, sess.ExpiresAt)
	}

	return nil
}

// ListActiveSessions returns the user's live sessions, most recent first,
// with the refresh token stripped.
func (s *TokenService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]session.Info, error) {
	tctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sessions, err := s.sessions.ListActiveByUser(tctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session listing failed: %w", err)
	}

	infos := make([]session.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.ToInfo())
	}
	return infos, nil
}

// markRevoked records the revocation in the cache so outstanding access
// tokens are rejected before expiry. Best effort: the session row is
// authoritative, so a cache failure only delays invalidation.
func (s *TokenService) markRevoked(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) {
	if s.revocations == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	ttl := time.Until(expiresAt)
	if err := s.revocations.MarkRevoked(cctx, sessionID.String(), ttl); err != nil {
		slog.Warn("Failed to record session revocation in cache", "error", err, "session_id", sessionID.String())
	}
}

func (s *TokenService) signAccessToken(userID, sid uuid.UUID, now time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(now.Add(s.accessTTL)).
		Claim("sid", sid.String()).
		Build()
	if err != nil {
		return "", err
	}

	return s.keys.Sign(token)
}

func (s *TokenService) signRefreshToken(userID uuid.UUID, now, expiresAt time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(expiresAt).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), s.refreshKey))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func (s *TokenService) verifyRefreshToken(refreshToken string) error {
	_, err := jwt.Parse(
		[]byte(refreshToken),
		jwt.WithKey(jwa.HS256(), s.refreshKey),
		jwt.WithValidate(true),
	)
	return err
}
