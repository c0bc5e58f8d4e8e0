package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, sess *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	FindActiveByToken(ctx context.Context, token string) (*Session, error)
	RevokeByToken(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create persists a new session row. The unique index on refresh_token turns
// a token collision into a hard error rather than a silent overwrite.
func (r *repository) Create(ctx context.Context, sess *Session) error {
	return r.db.WithContext(ctx).Create(sess).Error
}

// FindByToken looks a session up by refresh token regardless of its state.
func (r *repository) FindByToken(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := r.db.WithContext(ctx).Where("refresh_token = ?", token).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// FindActiveByToken evaluates all three validity predicates in a single read
// so a revoke acknowledged before this call can never be missed.
func (r *repository) FindActiveByToken(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := r.db.WithContext(ctx).
		Where("refresh_token = ? AND is_active = ? AND expires_at > ?", token, true, time.Now().UTC()).
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// RevokeByToken flips is_active to false with a compare-and-set on the
// current flag. Reports whether a row actually changed, which makes revoke
// idempotent for callers.
func (r *repository) RevokeByToken(ctx context.Context, token string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("refresh_token = ? AND is_active = ?", token, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeAllForUser flips is_active for every active session the user owns.
func (r *repository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListActiveByUser returns the user's live sessions, most recent first.
func (r *repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, time.Now().UTC()).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteExpired removes rows whose expiry has passed. Expired sessions are
// already rejected at read time; this only reclaims space.
func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&Session{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
